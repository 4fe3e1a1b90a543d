package gateway

import (
	"errors"
	"net"
	"os"
)

var (
	// ErrTimeout means no description arrived before the timer fired.
	ErrTimeout = errors.New("gateway: description request timed out")
	// ErrInvalidResponse means the reply was not a usable DESCRIPTION_RESPONSE.
	ErrInvalidResponse = errors.New("gateway: invalid description response")
	// ErrDecodeFault means the decoder failed unexpectedly on the reply.
	ErrDecodeFault = errors.New("gateway: description decoder fault")
	// ErrConnectionLost means the channel closed before any reply arrived.
	ErrConnectionLost = errors.New("gateway: channel closed before a description arrived")
	// ErrSearchFailed means the search request could not be sent.
	ErrSearchFailed = errors.New("gateway: search request failed")
)

// GetTroubleshootingHint returns user-facing hints for err.
func GetTroubleshootingHint(err error) []string {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout):
		return []string{
			"Check that the gateway is powered and reachable (ping its address)",
			"Make sure no firewall drops UDP port 3671 in either direction",
			"Try a longer --timeout if the network is slow",
		}
	case errors.Is(err, ErrConnectionLost):
		return []string{
			"The request was cancelled before the gateway answered",
		}
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrDecodeFault):
		return []string{
			"The device answered but not with a valid KNXnet/IP description",
			"Confirm the address belongs to a KNXnet/IP interface or router",
			"Run with --log-level debug to see the raw datagram",
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(err, os.ErrPermission) {
			return []string{"The operating system refused the socket; check firewall or sandbox rules"}
		}
		return []string{
			"Check that a network interface with an IPv4 address is up",
			"Select the interface facing the KNX installation with --interface",
		}
	}
	if errors.Is(err, ErrSearchFailed) {
		return []string{"Select the interface facing the KNX installation with --interface"}
	}
	return nil
}
