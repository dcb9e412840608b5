// Package manifest reads GSL split manifests.
//
// Two layouts exist. The continuous-sentence split ships CSV files with a
// header row (video_id, signer, sentence, translation, annotation, instance)
// that are read completely before the first row is returned. The isolated
// split ships video_id|gloss lines that are read one at a time. Both are
// exposed through the Source interface, which returns io.EOF once the rows are
// exhausted.
package manifest
