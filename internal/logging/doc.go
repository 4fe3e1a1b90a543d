// Package logging builds the zap loggers handed to the transport and gateway
// packages.
//
// Nothing in this module logs through a package level logger. The command
// builds one logger with New and passes it down; library callers may pass
// any *zap.Logger, or nil for silence.
//
// # Log Levels
//
//   - Debug: every datagram sent and received, with hex dumps
//   - Info: gateways discovered, descriptions resolved
//   - Warn: socket option failures, read errors
//   - Error: decoder faults recovered at the exchange boundary
//
// # Configuration
//
//	log, err := logging.New(flagLevel) // falls back to KNXGW_LOG_LEVEL
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = log.Sync() }()
//
// Output goes to stderr in zap's console format so command output on stdout
// stays machine readable.
package logging
