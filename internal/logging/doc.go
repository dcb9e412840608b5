// Package logging builds the slog loggers used by the signdata CLI and its
// build pipeline.
//
// Two output formats are supported: a compact console format for terminals
// and a JSON format for log shipping. Both write to stdout and, when a log
// directory is configured, to signdata.log inside it. Helpers in this package
// attach the standard field names (component, build_id, split, asset) so log
// lines from the resolver, the downloader and the split generators can be
// filtered the same way.
//
// Use NewNop in tests and in wiring code that has no logger to pass.
package logging
