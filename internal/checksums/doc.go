// Package checksums loads the registry of expected archive digests.
//
// The registry is a tab-separated text file with one archive per line:
//
//	<url>\t<sha256>\t<unused>
//
// Lines that do not have exactly three columns, blank lines and lines starting
// with '#' are ignored. A URL without an entry is downloaded without an
// integrity check.
package checksums
