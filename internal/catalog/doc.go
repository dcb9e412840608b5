// Package catalog records dataset builds and their examples in SQLite.
//
// Every build gets a row in builds with its status, the corpus metadata, the
// output directory and, on failure, the error kind. Emitted examples are
// stored per split under the primary key (build_id, split, key), so the
// database itself rejects duplicate emission keys. The schema is managed with
// golang-migrate from SQL files embedded in the binary.
package catalog
