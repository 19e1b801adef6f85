// Package log captures protocol events for debugging and analysis.
//
// It is separate from operational logging (slog). A Logger receives an
// Event for every frame, decoded message, state change and error, and can
// print it (SlogAdapter), persist it (FileLogger) or both (MultiLogger).
//
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Capture files are a plain CBOR sequence of Event values with integer
// keys. Reader streams them back, optionally through a Filter.
package log
