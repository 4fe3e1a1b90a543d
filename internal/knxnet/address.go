package knxnet

import (
	"fmt"
	"strconv"
	"strings"
)

// IndividualAddress is a KNX device address in area.line.device form.
type IndividualAddress uint16

// NewIndividualAddress builds an address from its parts.
func NewIndividualAddress(area, line, device uint8) (IndividualAddress, error) {
	if area > 0x0F || line > 0x0F {
		return 0, fmt.Errorf("individual address %d.%d.%d out of range", area, line, device)
	}
	return IndividualAddress(uint16(area)<<12 | uint16(line)<<8 | uint16(device)), nil
}

// ParseIndividualAddress parses "1.1.250".
func ParseIndividualAddress(s string) (IndividualAddress, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid individual address %q: want area.line.device", s)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid individual address %q: %w", s, err)
		}
		v[i] = uint8(n)
	}
	return NewIndividualAddress(v[0], v[1], v[2])
}

func (a IndividualAddress) Area() uint8   { return uint8(a >> 12) }
func (a IndividualAddress) Line() uint8   { return uint8(a>>8) & 0x0F }
func (a IndividualAddress) Device() uint8 { return uint8(a) }

func (a IndividualAddress) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Area(), a.Line(), a.Device())
}

// Medium is the KNX medium a device is attached to.
type Medium byte

// KNX media codes
const (
	MediumTP1   Medium = 0x02
	MediumPL110 Medium = 0x04
	MediumRF    Medium = 0x10
	MediumIP    Medium = 0x20
)

func (m Medium) String() string {
	switch m {
	case MediumTP1:
		return "TP1"
	case MediumPL110:
		return "PL110"
	case MediumRF:
		return "RF"
	case MediumIP:
		return "KNX IP"
	default:
		return fmt.Sprintf("medium 0x%02x", byte(m))
	}
}

// SerialNumber is the six byte KNX serial number, manufacturer id first.
type SerialNumber [6]byte

// Manufacturer returns the KNX manufacturer code.
func (s SerialNumber) Manufacturer() uint16 {
	return uint16(s[0])<<8 | uint16(s[1])
}

func (s SerialNumber) String() string {
	return fmt.Sprintf("%02X%02X:%02X%02X%02X%02X", s[0], s[1], s[2], s[3], s[4], s[5])
}
