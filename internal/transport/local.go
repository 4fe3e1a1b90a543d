package transport

import (
	"fmt"
	"net"
	"net/netip"
)

func lookupInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown interface %q: %w", name, err)
	}
	return ifi, nil
}

// resolveLocal turns the bound socket address into one a gateway can reply
// to. A wildcard bind is replaced by the interface address, or by the
// address the kernel routes toward target. If neither is known the wildcard
// stays, which KNXnet/IP peers treat as "reply to the sender".
func resolveLocal(bound netip.AddrPort, ifi *net.Interface, target netip.AddrPort) netip.AddrPort {
	if !bound.Addr().IsUnspecified() {
		return bound
	}
	if ifi != nil {
		if addr, ok := interfaceIPv4(ifi); ok {
			return netip.AddrPortFrom(addr, bound.Port())
		}
	}
	if target.IsValid() {
		if addr, ok := routeSource(target); ok {
			return netip.AddrPortFrom(addr, bound.Port())
		}
	}
	return bound
}

func interfaceIPv4(ifi *net.Interface) (netip.Addr, bool) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ipnet.IP); ok && addr.Unmap().Is4() {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}

// routeSource asks the kernel which source address it would use for target.
// Connecting a UDP socket sends nothing.
func routeSource(target netip.AddrPort) (netip.Addr, bool) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(target))
	if err != nil {
		return netip.Addr{}, false
	}
	defer conn.Close()
	addr := conn.LocalAddr().(*net.UDPAddr).AddrPort().Addr().Unmap()
	if addr.IsUnspecified() {
		return netip.Addr{}, false
	}
	return addr, true
}
