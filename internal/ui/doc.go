// Package ui renders knxgw command output in the terminal.
//
// Output is "run once and exit": a header box, the gateways found, and a
// success, warning or failure box. Colors and borders come from lipgloss.
// While a discovery window is open, RunWindow shows a Bubble Tea spinner
// with a progress bar; when stdout is not a terminal it stays quiet.
//
// # Components
//
//   - Header: command banner with ordered parameters
//   - Gateway card: one gateway with all DEVICE_INFO fields
//   - Gateway table: one line per gateway (compact format)
//   - Result boxes: success, warning, failure with troubleshooting tips
//
// # Logging Integration
//
// zap output goes to stderr and is silent unless KNXGW_LOG_LEVEL or
// --log-level is set, so the styled output on stdout stays clean.
package ui
