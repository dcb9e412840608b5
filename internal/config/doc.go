// Package config loads, normalizes, and validates signdata configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SIGNDATA_CACHE_DIR and
// SIGNDATA_CHECKSUMS environment fallbacks. The Config type centralizes every
// knob the resolver, the downloader, the split generators and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical schema names and clear validation errors.
package config
