package gsl

import "encoding/json"

// Sentence is the annotated sentence of a rich record.
type Sentence struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Glosses []string `json:"glosses"`
}

// Example is one emitted record. Which fields are populated depends on
// Schema; MarshalJSON writes only the fields of that layout.
type Example struct {
	Key    string
	Schema Schema
	Line   int

	ID        string
	Signer    string
	Sentence  Sentence
	Instance  int
	Gloss     string
	VideoPath string
	DepthPath string
}

type richRecord struct {
	ID         string   `json:"id"`
	Signer     string   `json:"signer"`
	Sentence   Sentence `json:"sentence"`
	Instance   int      `json:"instance"`
	Video      string   `json:"video"`
	DepthVideo string   `json:"depth_video"`
}

type simpleRecord struct {
	ID        string `json:"id"`
	Gloss     string `json:"gloss"`
	VideoPath string `json:"video_path"`
	DepthPath string `json:"depth_path"`
}

// MarshalJSON encodes the record in the layout of its schema.
func (e Example) MarshalJSON() ([]byte, error) {
	if e.Schema == SchemaSimple {
		return json.Marshal(simpleRecord{
			ID:        e.ID,
			Gloss:     e.Gloss,
			VideoPath: e.VideoPath,
			DepthPath: e.DepthPath,
		})
	}
	sentence := e.Sentence
	if sentence.Glosses == nil {
		sentence.Glosses = []string{}
	}
	return json.Marshal(richRecord{
		ID:         e.ID,
		Signer:     e.Signer,
		Sentence:   sentence,
		Instance:   e.Instance,
		Video:      e.VideoPath,
		DepthVideo: e.DepthPath,
	})
}
