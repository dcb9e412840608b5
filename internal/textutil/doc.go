// Package textutil normalizes manifest text and builds filesystem-safe names.
//
// Manifest fields carry Greek translations whose accented letters may arrive
// either precomposed or as base letter plus combining mark; Normalize folds
// both spellings to NFC so equal sentences compare equal.
package textutil
