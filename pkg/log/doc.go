// Package log provides structured event logging for the property tree and
// its control protocol.
//
// It is separate from operational logging (slog): events form a complete,
// machine-readable trace of what happened to the tree (writes, creations,
// removals, aliases, component registrations, rollbacks and slow callbacks)
// and of the protocol traffic that caused it.
//
//	// Development: events on the console
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: binary file, read back with radiotree-log
//	fl, _ := log.NewFileLogger("/var/log/radiotree/device.rtlog")
//	cfg.EventLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Log files are a sequence of CBOR-encoded Event values with integer keys.
package log
