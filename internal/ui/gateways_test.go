package ui

import (
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/libknx/knxgw/internal/gateway"
	"github.com/libknx/knxgw/internal/knxnet"
)

func sampleRecord() gateway.SearchRecord {
	return gateway.SearchRecord{
		Sender: netip.MustParseAddrPort("192.168.1.10:3671"),
		Response: &knxnet.SearchResponse{
			Control: knxnet.UDPEndpoint(netip.MustParseAddrPort("192.168.1.10:3671")),
			Device: &knxnet.DeviceInfo{
				Medium:          knxnet.MediumTP1,
				ProgrammingMode: true,
				Address:         0x11FA,
				Serial:          knxnet.SerialNumber{0x00, 0xc5, 0x01, 0x04, 0x0a, 0xa5},
				Multicast:       netip.MustParseAddr("224.0.23.12"),
				MAC:             net.HardwareAddr{0x00, 0x24, 0x6d, 0x01, 0x02, 0x03},
				Name:            "KNX IP Router",
			},
			Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}, {ID: knxnet.FamilyRouting, Version: 1}},
		},
	}
}

func TestNewSearchView(t *testing.T) {
	v := NewSearchView(sampleRecord())

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"Name", v.Name, "KNX IP Router"},
		{"Control", v.Control, "192.168.1.10:3671"},
		{"Address", v.Address, "1.1.250"},
		{"Medium", v.Medium, "TP1"},
		{"Serial", v.Serial, "00C5:01040AA5"},
		{"MAC", v.MAC, "00:24:6d:01:02:03"},
		{"Families", strings.Join(v.Families, ","), "core v1,routing v1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
	if !v.ProgrammingMode {
		t.Error("ProgrammingMode = false, want true")
	}
}

func TestNewDescribeResultView(t *testing.T) {
	rec := sampleRecord()
	v := NewDescribeResultView(gateway.DescribeResult{
		Record: rec,
		Description: &knxnet.DescriptionResponse{
			Device:   &knxnet.DeviceInfo{Name: "Renamed", Address: 0x1101},
			Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyTunnelling, Version: 2}},
		},
	})
	if v.Name != "Renamed" || v.Address != "1.1.1" {
		t.Errorf("description did not win: %+v", v)
	}

	failed := NewDescribeResultView(gateway.DescribeResult{Record: rec, Err: gateway.ErrTimeout})
	if failed.Error != gateway.ErrTimeout.Error() {
		t.Errorf("Error = %q", failed.Error)
	}
	if failed.Name != "KNX IP Router" {
		t.Errorf("Name = %q, want search data kept", failed.Name)
	}
}

func TestGatewayViewJSON(t *testing.T) {
	data, err := json.Marshal(NewSearchView(sampleRecord()))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for _, key := range []string{`"name":"KNX IP Router"`, `"individual_address":"1.1.250"`, `"programming_mode":true`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s lacks %s", data, key)
		}
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("JSON %s has an error field", data)
	}
}

func TestRenderGatewayCard(t *testing.T) {
	out := RenderGatewayCard(NewSearchView(sampleRecord()), 80)
	for _, want := range []string{"KNX IP Router", "PROGRAMMING MODE", "1.1.250", "core v1, routing v1"} {
		if !strings.Contains(out, want) {
			t.Errorf("card lacks %q:\n%s", want, out)
		}
	}

	v := NewDescriptionView(netip.MustParseAddrPort("10.0.0.5:3671"), nil)
	v.Error = errors.New("timed out").Error()
	out = RenderGatewayCard(v, 80)
	if !strings.Contains(out, "(unnamed)") || !strings.Contains(out, "timed out") {
		t.Errorf("failed card:\n%s", out)
	}
}

func TestRenderGatewayTable(t *testing.T) {
	out := RenderGatewayTable([]GatewayView{NewSearchView(sampleRecord())})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("table has %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "KNX IP Router (prog)") || !strings.Contains(lines[1], "192.168.1.10:3671") {
		t.Errorf("row = %q", lines[1])
	}
}
