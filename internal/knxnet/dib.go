package knxnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DIBType identifies a description information block.
type DIBType byte

// DIB type codes
const (
	DIBDeviceInfo       DIBType = 0x01
	DIBSuppSvcFamilies  DIBType = 0x02
	DIBIPConfig         DIBType = 0x03
	DIBIPCurrentConfig  DIBType = 0x04
	DIBKNXAddresses     DIBType = 0x05
	DIBSecuredSvcFamily DIBType = 0x06
	DIBTunnellingInfo   DIBType = 0x07
	DIBExtendedDevice   DIBType = 0x08
	DIBManufacturerData DIBType = 0xFE
)

const (
	deviceInfoSize       = 0x36
	friendlyNameSize     = 30
	statusProgrammingBit = 0x01
)

func (t DIBType) String() string {
	switch t {
	case DIBDeviceInfo:
		return "DEVICE_INFO"
	case DIBSuppSvcFamilies:
		return "SUPP_SVC_FAMILIES"
	case DIBIPConfig:
		return "IP_CONFIG"
	case DIBIPCurrentConfig:
		return "IP_CUR_CONFIG"
	case DIBKNXAddresses:
		return "KNX_ADDRESSES"
	case DIBSecuredSvcFamily:
		return "SECURED_SERVICE_FAMILIES"
	case DIBTunnellingInfo:
		return "TUNNELLING_INFO"
	case DIBExtendedDevice:
		return "EXTENDED_DEVICE_INFO"
	case DIBManufacturerData:
		return "MFR_DATA"
	default:
		return fmt.Sprintf("DIB 0x%02x", byte(t))
	}
}

// DeviceInfo is the content of a DEVICE_INFO DIB.
type DeviceInfo struct {
	Medium          Medium
	ProgrammingMode bool
	Address         IndividualAddress
	ProjectID       uint16
	Serial          SerialNumber
	Multicast       netip.Addr
	MAC             net.HardwareAddr
	Name            string
}

// FamilyID identifies a KNXnet/IP service family.
type FamilyID byte

// Service family codes
const (
	FamilyCore             FamilyID = 0x02
	FamilyDeviceManagement FamilyID = 0x03
	FamilyTunnelling       FamilyID = 0x04
	FamilyRouting          FamilyID = 0x05
	FamilyRemoteLogging    FamilyID = 0x06
	FamilyRemoteConfig     FamilyID = 0x07
	FamilyObjectServer     FamilyID = 0x08
	FamilySecurity         FamilyID = 0x09
)

func (f FamilyID) String() string {
	switch f {
	case FamilyCore:
		return "core"
	case FamilyDeviceManagement:
		return "device management"
	case FamilyTunnelling:
		return "tunnelling"
	case FamilyRouting:
		return "routing"
	case FamilyRemoteLogging:
		return "remote logging"
	case FamilyRemoteConfig:
		return "remote configuration"
	case FamilyObjectServer:
		return "object server"
	case FamilySecurity:
		return "security"
	default:
		return fmt.Sprintf("family 0x%02x", byte(f))
	}
}

// ServiceFamily is one entry of a SUPP_SVC_FAMILIES DIB.
type ServiceFamily struct {
	ID      FamilyID
	Version uint8
}

func (s ServiceFamily) String() string {
	return fmt.Sprintf("%s v%d", s.ID, s.Version)
}

// DIB is a block this package does not interpret. It is kept verbatim.
type DIB struct {
	Type DIBType
	Data []byte
}

// dibSet is the decoded DIB sequence of a response body.
type dibSet struct {
	device   *DeviceInfo
	families []ServiceFamily
	extra    []DIB
}

func parseDIBs(data []byte) (dibSet, error) {
	var set dibSet
	for len(data) > 0 {
		if len(data) < 2 {
			return dibSet{}, formatErrorf(KindTruncated, "DIB header needs 2 bytes, %d left", len(data))
		}
		size := int(data[0])
		typ := DIBType(data[1])
		if size < 2 {
			return dibSet{}, formatErrorf(KindStructure, "%s length %d", typ, size)
		}
		if size > len(data) {
			return dibSet{}, formatErrorf(KindTruncated, "%s declares %d bytes, %d left", typ, size, len(data))
		}
		body := data[2:size]

		switch typ {
		case DIBDeviceInfo:
			if set.device != nil {
				return dibSet{}, formatErrorf(KindStructure, "duplicate %s", typ)
			}
			info, err := parseDeviceInfo(size, body)
			if err != nil {
				return dibSet{}, err
			}
			set.device = info
		case DIBSuppSvcFamilies:
			if len(body)%2 != 0 {
				return dibSet{}, formatErrorf(KindStructure, "%s body of odd length %d", typ, len(body))
			}
			for i := 0; i < len(body); i += 2 {
				set.families = append(set.families, ServiceFamily{ID: FamilyID(body[i]), Version: body[i+1]})
			}
		default:
			set.extra = append(set.extra, DIB{Type: typ, Data: bytes.Clone(body)})
		}
		data = data[size:]
	}
	return set, nil
}

func parseDeviceInfo(size int, body []byte) (*DeviceInfo, error) {
	if size != deviceInfoSize {
		return nil, formatErrorf(KindStructure, "%s length %d (expected %d)", DIBDeviceInfo, size, deviceInfoSize)
	}
	info := &DeviceInfo{
		Medium:          Medium(body[0]),
		ProgrammingMode: body[1]&statusProgrammingBit != 0,
		Address:         IndividualAddress(binary.BigEndian.Uint16(body[2:4])),
		ProjectID:       binary.BigEndian.Uint16(body[4:6]),
		Serial:          SerialNumber(body[6:12]),
		Multicast:       netip.AddrFrom4([4]byte(body[12:16])),
		MAC:             net.HardwareAddr(bytes.Clone(body[16:22])),
	}

	name := body[22 : 22+friendlyNameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(name)
	if err != nil {
		return nil, &FormatError{Kind: KindStructure, Message: "friendly name", Err: err}
	}
	info.Name = string(decoded)
	return info, nil
}

func appendDeviceInfo(b []byte, info *DeviceInfo) ([]byte, error) {
	mac := info.MAC
	if mac == nil {
		mac = make(net.HardwareAddr, 6)
	}
	if len(mac) != 6 {
		return nil, formatErrorf(KindEncoding, "MAC address %s is not 6 bytes", mac)
	}
	mcast := info.Multicast.Unmap()
	if !mcast.IsValid() {
		mcast = netip.IPv4Unspecified()
	}
	if !mcast.Is4() {
		return nil, formatErrorf(KindEncoding, "multicast address %s is not IPv4", mcast)
	}

	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	name, err := enc.Bytes([]byte(info.Name))
	if err != nil {
		return nil, &FormatError{Kind: KindEncoding, Message: "friendly name", Err: err}
	}
	if len(name) > friendlyNameSize {
		name = name[:friendlyNameSize]
	}

	var status byte
	if info.ProgrammingMode {
		status |= statusProgrammingBit
	}
	b = append(b, deviceInfoSize, byte(DIBDeviceInfo), byte(info.Medium), status)
	b = binary.BigEndian.AppendUint16(b, uint16(info.Address))
	b = binary.BigEndian.AppendUint16(b, info.ProjectID)
	b = append(b, info.Serial[:]...)
	ip := mcast.As4()
	b = append(b, ip[:]...)
	b = append(b, mac...)
	b = append(b, name...)
	return append(b, make([]byte, friendlyNameSize-len(name))...), nil
}

func appendFamilies(b []byte, families []ServiceFamily) ([]byte, error) {
	size := 2 + 2*len(families)
	if size > 0xFF {
		return nil, formatErrorf(KindEncoding, "%d service families do not fit one DIB", len(families))
	}
	b = append(b, byte(size), byte(DIBSuppSvcFamilies))
	for _, f := range families {
		b = append(b, byte(f.ID), f.Version)
	}
	return b, nil
}

func appendDIB(b []byte, d DIB) ([]byte, error) {
	size := 2 + len(d.Data)
	if size > 0xFF {
		return nil, formatErrorf(KindEncoding, "%s of %d bytes does not fit", d.Type, size)
	}
	b = append(b, byte(size), byte(d.Type))
	return append(b, d.Data...), nil
}

// appendBody writes the DIB sequence shared by both response types.
func (s dibSet) appendBody(b []byte) ([]byte, error) {
	var err error
	if s.device != nil {
		if b, err = appendDeviceInfo(b, s.device); err != nil {
			return nil, err
		}
	}
	if s.device != nil || len(s.families) > 0 {
		if b, err = appendFamilies(b, s.families); err != nil {
			return nil, err
		}
	}
	for _, d := range s.extra {
		if b, err = appendDIB(b, d); err != nil {
			return nil, err
		}
	}
	return b, nil
}
