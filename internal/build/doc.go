// Package build runs a complete dataset build.
//
// A Builder resolves the split-manifest archives first, then the video and
// depth archives, and generates every requested split against the shared
// resolution table. Splits run concurrently up to build.workers; each one is
// written to <output_dir>/<build_id>/<split>.jsonl and, when enabled, into
// the SQLite catalog. Only one build may run per output directory at a time.
// Any resolution, lookup, parse or duplicate-key error fails the whole build
// and is recorded with its kind.
package build
