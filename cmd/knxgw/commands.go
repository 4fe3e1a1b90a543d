package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/libknx/knxgw/internal/config"
	"github.com/libknx/knxgw/internal/gateway"
	"github.com/libknx/knxgw/internal/logging"
	"github.com/libknx/knxgw/internal/ui"
)

// Global flags
var (
	logLevel     string
	outputFormat string
	timeout      time.Duration
	window       time.Duration
	ifaceName    string
	multicastTTL int
)

// Set up by setup before any command runs.
var (
	logger    = zap.NewNop()
	constants = config.Defaults()
)

const (
	formatDetailed = "detailed"
	formatCompact  = "compact"
	formatJSON     = "json"
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Log level on stderr (debug, info, warn, error); default $"+logging.LogLevelEnvVar)
	flags.StringVar(&outputFormat, "format", formatDetailed, "Output format (detailed, compact, json)")
	flags.DurationVar(&timeout, "timeout", config.DefaultDescriptionTimeout, "Description request timeout")
	flags.DurationVar(&window, "window", config.DefaultDiscoveryWindow, "How long to collect search responses")
	flags.StringVar(&ifaceName, "interface", "", "Network interface for multicast (default: system route)")
	flags.IntVar(&multicastTTL, "ttl", config.DefaultMulticastTTL, "Multicast TTL of search requests")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(scanCmd)
}

// setup loads the config file, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case formatDetailed, formatCompact, formatJSON:
	default:
		return fmt.Errorf("unknown --format %q (want detailed, compact or json)", outputFormat)
	}

	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	logger = log

	c, err := config.Load()
	if err != nil {
		logger.Warn("Config file ignored, using defaults", zap.Error(err))
	}
	c = applyFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	constants = c
	return nil
}

// applyFlags overrides c with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c config.Constants) config.Constants {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		c.DescriptionTimeout = timeout
	}
	if flags.Changed("window") {
		c.DiscoveryWindow = window
	}
	if flags.Changed("interface") {
		c.Interface = ifaceName
	}
	if flags.Changed("ttl") {
		c.MulticastTTL = multicastTTL
	}
	return c
}

func newScanner() *gateway.Scanner {
	s := gateway.NewScannerFromConstants(constants)
	s.Logger = logger
	return s
}

// parseTarget resolves "host" or "host:port" to an IPv4 endpoint.
func parseTarget(target string, defaultPort uint16) (netip.AddrPort, error) {
	host, port := target, strconv.Itoa(int(defaultPort))
	if h, p, err := net.SplitHostPort(target); err == nil {
		host, port = h, p
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, port))
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid gateway address %q: %w", target, err)
	}
	ap := addr.AddrPort()
	ap = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	if !ap.Addr().Is4() || ap.Port() == 0 {
		return netip.AddrPort{}, fmt.Errorf("invalid gateway address %q: need an IPv4 address and a non-zero port", target)
	}
	return ap, nil
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for KNXnet/IP gateways",
	Long: `Multicast a SEARCH_REQUEST to the KNXnet/IP system setup group
(224.0.23.12:3671 by default) and list every gateway that answers
within the discovery window.

A gateway answering more than once is listed once.`,
	Example: `  knxgw search
  knxgw search --window 10s --interface eth0
  knxgw search --format compact`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	scanner := newScanner()
	out := newOutput(cmd.OutOrStdout())

	out.header("Gateway search", "knxgw search", searchParams(scanner))

	records, err := discover(cmd.Context(), out, scanner)
	if err != nil && !errors.Is(err, context.Canceled) {
		return out.failure("Search failed", err)
	}

	views := make([]ui.GatewayView, len(records))
	for i, rec := range records {
		views[i] = ui.NewSearchView(rec)
	}
	if err := out.gateways(views); err != nil {
		return err
	}

	if errors.Is(err, context.Canceled) {
		out.warning("Search interrupted", []ui.Field{{Key: "Gateways", Value: strconv.Itoa(len(records))}})
		return &reportedError{err}
	}
	out.summary(len(views), scanner.Window)
	return nil
}

var describeCmd = &cobra.Command{
	Use:   "describe <host[:port]>",
	Short: "Describe one KNXnet/IP gateway",
	Long: `Send a DESCRIPTION_REQUEST to a gateway and print its answer.

The port defaults to 3671. The request fails if no valid
DESCRIPTION_RESPONSE arrives within --timeout.`,
	Example: `  knxgw describe 192.168.1.10
  knxgw describe 192.168.1.10:3671 --timeout 5s
  knxgw describe knx-router.local --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	out := newOutput(cmd.OutOrStdout())

	addr, err := parseTarget(args[0], constants.DefaultPort)
	if err != nil {
		return err
	}
	scanner := newScanner()

	out.header("Gateway description", "knxgw describe "+args[0], []ui.Field{
		{Key: "Gateway", Value: addr.String()},
		{Key: "Timeout", Value: scanner.Timeout.String()},
	})

	resp, err := scanner.DescribeWithContext(cmd.Context(), addr)
	if err != nil {
		return out.failure("Description failed", err)
	}

	if err := out.gateways([]ui.GatewayView{ui.NewDescriptionView(addr, resp)}); err != nil {
		return err
	}
	out.success("Gateway described", []ui.Field{{Key: "Gateway", Value: addr.String()}})
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search for gateways and describe each one",
	Long: `Run a search, then send a DESCRIPTION_REQUEST to the control
endpoint of every gateway found. Descriptions run in parallel; a gateway
that fails to answer is still listed with its search data and the error.`,
	Example: `  knxgw scan
  knxgw scan --format json > gateways.json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()
	scanner := newScanner()
	out := newOutput(cmd.OutOrStdout())

	out.header("Gateway scan", "knxgw scan", append(searchParams(scanner),
		ui.Field{Key: "Timeout", Value: scanner.Timeout.String()}))

	records, err := discover(ctx, out, scanner)
	if err != nil {
		return out.failure("Search failed", err)
	}

	results, err := scanner.DescribeAll(ctx, records)
	if err != nil {
		return out.failure("Scan interrupted", err)
	}

	views := make([]ui.GatewayView, len(results))
	failed := 0
	for i, r := range results {
		views[i] = ui.NewDescribeResultView(r)
		if r.Err != nil {
			failed++
			logger.Debug("Description failed", logging.Endpoint("gateway", r.Record.ControlEndpoint()), zap.Error(r.Err))
		}
	}
	if err := out.gateways(views); err != nil {
		return err
	}

	if failed > 0 {
		out.warning(fmt.Sprintf("%d of %d gateways did not answer the description request", failed, len(views)), nil)
		return nil
	}
	out.summary(len(views), scanner.Window)
	return nil
}

func searchParams(s *gateway.Scanner) []ui.Field {
	iface := s.Interface
	if iface == "" {
		iface = "default route"
	}
	return []ui.Field{
		{Key: "Group", Value: s.Group.String()},
		{Key: "Window", Value: s.Window.String()},
		{Key: "Interface", Value: iface},
	}
}

func discover(ctx context.Context, out *output, s *gateway.Scanner) ([]gateway.SearchRecord, error) {
	var records []gateway.SearchRecord
	err := out.window(ctx, "Searching for gateways", s.Window, func(ctx context.Context) error {
		var err error
		records, err = s.DiscoverWithContext(ctx)
		return err
	})
	return records, err
}
