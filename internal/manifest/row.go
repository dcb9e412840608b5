package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Row is one annotated video instance from a split manifest. Fields that the
// manifest layout does not carry are left empty.
type Row struct {
	Line        int
	VideoID     string
	Signer      string
	SentenceID  string
	Translation string
	Annotation  string
	Instance    int
	Gloss       string
}

// Glosses splits the annotation into sign glosses on whitespace. Order is
// preserved and repeated glosses are kept.
func (r Row) Glosses() []string {
	return strings.Fields(r.Annotation)
}

// VideoRef is the archive coordinates encoded in a video identifier.
type VideoRef struct {
	// Asset is the text before the first underscore, e.g. "health3".
	Asset string
	// Scenario is the leading run of letters, e.g. "health".
	Scenario string
	// Index is the number that follows the scenario, 0 when absent.
	Index int
}

// ParseVideoID derives the asset, scenario and index from a video identifier
// such as "health3_signer1_sent2".
func ParseVideoID(id string) (VideoRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return VideoRef{}, errors.New("empty video id")
	}
	asset, _, _ := strings.Cut(id, "_")

	end := strings.IndexFunc(asset, func(r rune) bool { return !unicode.IsLetter(r) })
	if end == -1 {
		end = len(asset)
	}
	if end == 0 {
		return VideoRef{}, fmt.Errorf("video id %q does not start with a scenario name", id)
	}
	ref := VideoRef{Asset: asset, Scenario: strings.ToLower(asset[:end])}

	digits := asset[end:]
	if stop := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }); stop != -1 {
		digits = digits[:stop]
	}
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return VideoRef{}, fmt.Errorf("video id %q: %w", id, err)
		}
		ref.Index = n
	}
	return ref, nil
}
