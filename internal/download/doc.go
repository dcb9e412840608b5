// Package download fetches corpus archives into a local cache.
//
// Manager implements assets.Downloader. Each archive is downloaded once with
// request pacing, retried with exponential backoff on transient failures,
// verified against the registry checksum when one is known and optionally
// unpacked. A JSON marker next to every cache entry records the URL and
// checksum it was produced from, so repeated builds reuse the cache and a
// changed checksum forces a fresh download. Stats and Prune keep the cache
// within its size budget and free-space floor.
package download
