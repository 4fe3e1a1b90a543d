// Package config holds the KNXnet/IP constants registry: the multicast group,
// the default port and the exchange timings.
//
// The registry is loaded once per process and is read-only afterwards.
// Command line flags override values for a single run by copying them into
// the scanner, never by changing the registry.
//
// # Configuration File Location
//
// An optional YAML file overrides the defaults:
//   - Linux: $XDG_CONFIG_HOME/knxgw/config.yaml or $HOME/.config/knxgw/config.yaml
//   - macOS: $HOME/.config/knxgw/config.yaml
//   - Windows: %LOCALAPPDATA%\knxgw\config.yaml
//
// KNXGW_CONFIG points at a different file.
//
// # File Format
//
//	version: 1
//	multicast_addr: 224.0.23.12
//	default_port: 3671
//	description_timeout: 2s
//	discovery_window: 3s
//	multicast_ttl: 16
//	interface: eth0
package config
