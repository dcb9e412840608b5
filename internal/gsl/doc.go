// Package gsl turns Greek Sign Language split manifests into example records.
//
// A Generator reads one split manifest and joins every row to the video and
// depth files of the resolved archives through a shared Index. Records are
// pulled one at a time from an Iterator; each call to Examples starts over
// from the first manifest row, so a split can be enumerated any number of
// times. Two record layouts are supported: the rich continuous-sentence
// layout keyed by video id and the simple isolated-gloss layout keyed by row
// ordinal.
package gsl
