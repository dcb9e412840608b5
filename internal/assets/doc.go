// Package assets turns the fixed GSL archive layout into download requests and
// resolves them to local locations.
//
// Descriptors are generated from the {scenario}{index} and
// {scenario}{index}_Depth naming template plus the two supplementary archives.
// The Resolver looks up each archive's expected checksum, hands the request to
// a Downloader and returns a read-only Resolved table keyed by asset name.
// Any failure aborts resolution; there is no partial result.
package assets
