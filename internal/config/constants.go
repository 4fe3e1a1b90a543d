package config

import (
	"fmt"
	"net/netip"
	"time"
)

// KNXnet/IP well-known values
const (
	DefaultMulticastAddr      = "224.0.23.12"
	DefaultPort               = 3671
	DefaultDescriptionTimeout = 2 * time.Second
	DefaultDiscoveryWindow    = 3 * time.Second
	DefaultMulticastTTL       = 16

	currentVersion = 1
)

// Constants are the process wide protocol constants. They are read once and
// never change afterwards.
type Constants struct {
	Version            int           `yaml:"version"`
	MulticastAddr      netip.Addr    `yaml:"multicast_addr"`
	DefaultPort        uint16        `yaml:"default_port"`
	DescriptionTimeout time.Duration `yaml:"description_timeout"`
	DiscoveryWindow    time.Duration `yaml:"discovery_window"`
	MulticastTTL       int           `yaml:"multicast_ttl"`
	Interface          string        `yaml:"interface,omitempty"`
}

// Defaults returns the constants used when no config file exists.
func Defaults() Constants {
	return Constants{
		Version:            currentVersion,
		MulticastAddr:      netip.MustParseAddr(DefaultMulticastAddr),
		DefaultPort:        DefaultPort,
		DescriptionTimeout: DefaultDescriptionTimeout,
		DiscoveryWindow:    DefaultDiscoveryWindow,
		MulticastTTL:       DefaultMulticastTTL,
	}
}

// Group returns the search destination: multicast address and default port.
func (c Constants) Group() netip.AddrPort {
	return netip.AddrPortFrom(c.MulticastAddr, c.DefaultPort)
}

// Validate checks that the constants can be used on the wire.
func (c Constants) Validate() error {
	if c.Version != currentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, currentVersion)
	}
	if !c.MulticastAddr.Is4() || !c.MulticastAddr.IsMulticast() {
		return fmt.Errorf("multicast_addr %s is not an IPv4 multicast address", c.MulticastAddr)
	}
	if c.DefaultPort == 0 {
		return fmt.Errorf("default_port must not be 0")
	}
	if c.DescriptionTimeout <= 0 {
		return fmt.Errorf("description_timeout must be positive, got %s", c.DescriptionTimeout)
	}
	if c.DiscoveryWindow <= 0 {
		return fmt.Errorf("discovery_window must be positive, got %s", c.DiscoveryWindow)
	}
	if c.MulticastTTL < 1 || c.MulticastTTL > 255 {
		return fmt.Errorf("multicast_ttl %d out of range 1-255", c.MulticastTTL)
	}
	return nil
}
