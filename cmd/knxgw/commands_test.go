package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/libknx/knxgw/internal/config"
	"github.com/libknx/knxgw/internal/knxnet"
	"github.com/libknx/knxgw/internal/ui"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		want    string
		wantErr bool
	}{
		{"192.168.1.10", "192.168.1.10:3671", false},
		{"192.168.1.10:50000", "192.168.1.10:50000", false},
		{"127.0.0.1:0", "", true},
		{"[::1]:3671", "", true},
		{"192.168.1.10:notaport", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := parseTarget(tt.target, config.DefaultPort)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("parseTarget(%q) = %s, want %s", tt.target, got, tt.want)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var to, win time.Duration
	var ttl int
	var iface string
	cmd.Flags().DurationVar(&to, "timeout", time.Second, "")
	cmd.Flags().DurationVar(&win, "window", time.Second, "")
	cmd.Flags().IntVar(&ttl, "ttl", 1, "")
	cmd.Flags().StringVar(&iface, "interface", "", "")
	if err := cmd.Flags().Parse([]string{"--timeout", "5s"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	timeout = 5 * time.Second

	got := applyFlags(cmd, config.Defaults())
	if got.DescriptionTimeout != 5*time.Second {
		t.Errorf("DescriptionTimeout = %v, want 5s", got.DescriptionTimeout)
	}
	if got.DiscoveryWindow != config.DefaultDiscoveryWindow {
		t.Errorf("DiscoveryWindow = %v, want unchanged default", got.DiscoveryWindow)
	}
	if got.MulticastTTL != config.DefaultMulticastTTL {
		t.Errorf("MulticastTTL = %d, want unchanged default", got.MulticastTTL)
	}
}

func TestOutputSummary(t *testing.T) {
	var buf bytes.Buffer
	o := &output{format: formatCompact, printer: ui.NewPrinter(&buf)}

	o.summary(0, 3*time.Second)
	o.summary(1, 3*time.Second)
	o.summary(4, 3*time.Second)

	want := ui.WarningMarker + " No gateways found\n" +
		ui.SuccessMarker + " 1 gateway found\n" +
		ui.SuccessMarker + " 4 gateways found\n"
	if buf.String() != want {
		t.Errorf("summary output = %q, want %q", buf.String(), want)
	}
}

func TestOutputJSONIsBare(t *testing.T) {
	var buf bytes.Buffer
	o := &output{format: formatJSON, printer: ui.NewPrinter(&buf)}

	o.header("Gateway search", "knxgw search", nil)
	if err := o.gateways([]ui.GatewayView{{Name: "a"}}); err != nil {
		t.Fatalf("gateways() error = %v", err)
	}
	o.summary(1, time.Second)

	var views []ui.GatewayView
	if err := json.Unmarshal(buf.Bytes(), &views); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(views) != 1 || views[0].Name != "a" {
		t.Errorf("views = %+v", views)
	}
}

// serveDescription answers one DESCRIPTION_REQUEST on loopback.
func serveDescription(t *testing.T, name string) netip.AddrPort {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	addr := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1500)
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return
		}
		if _, err := knxnet.DecodeDescriptionRequest(buf[:n]); err != nil {
			return
		}
		reply, err := knxnet.EncodeDescriptionResponse(&knxnet.DescriptionResponse{
			Device: &knxnet.DeviceInfo{
				Medium:    knxnet.MediumTP1,
				Address:   0x1100,
				Multicast: netip.MustParseAddr(config.DefaultMulticastAddr),
				MAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
				Name:      name,
			},
			Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}},
		})
		if err != nil {
			return
		}
		_, _ = conn.WriteToUDPAddrPort(reply, from)
	}()
	t.Cleanup(func() {
		conn.Close()
		<-done
	})
	return addr
}

func TestDescribeCommand(t *testing.T) {
	t.Setenv(config.PathEnvVar, filepath.Join(t.TempDir(), "config.yaml"))
	addr := serveDescription(t, "Living room router")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"describe", addr.String(), "--format", "json", "--timeout", "2s"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("describe error = %v", err)
	}

	var views []ui.GatewayView
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].Name != "Living room router" || views[0].Control != addr.String() || views[0].Address != "1.1.0" {
		t.Errorf("view = %+v", views[0])
	}
}

func TestConfigShowCommand(t *testing.T) {
	t.Setenv(config.PathEnvVar, filepath.Join(t.TempDir(), "config.yaml"))
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "show", "--format", "detailed", "--ttl", "4"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out.String(), "multicast_ttl: 4") {
		t.Errorf("output lacks flag override:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "multicast_addr: 224.0.23.12") {
		t.Errorf("output lacks multicast address:\n%s", out.String())
	}
}

func TestSetupRejectsInvalidOverrides(t *testing.T) {
	t.Setenv(config.PathEnvVar, filepath.Join(t.TempDir(), "config.yaml"))
	resetFlags := func() {
		flags := rootCmd.PersistentFlags()
		_ = flags.Set("ttl", "16")
		_ = flags.Set("window", config.DefaultDiscoveryWindow.String())
	}
	t.Cleanup(func() {
		resetFlags()
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ttl out of range", []string{"--ttl", "300"}, "multicast_ttl"},
		{"zero window", []string{"--window", "0s"}, "discovery_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(append([]string{"config", "show", "--format", "detailed"}, tt.args...))

			err := rootCmd.ExecuteContext(context.Background())
			if err == nil {
				t.Fatalf("config show %v succeeded:\n%s", tt.args, out.String())
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
