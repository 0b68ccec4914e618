package comment

import (
	"time"
)

type Rejection string

const (
	Retained          Rejection = ""
	RejectEmpty       Rejection = "empty"
	RejectGibberish   Rejection = "gibberish"
	RejectTooFewWords Rejection = "too_few_tokens"
	RejectOutlier     Rejection = "outlier"
)

// RawRecord is one acquired comment. Fields keeps every input column in input order
// so the cleaned table can reproduce them.
type RawRecord struct {
	Author      string     `json:"author,omitempty"`
	Text        string     `json:"text"`
	LikeCount   *int       `json:"like_count,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Fields      []Field    `json:"-"`
}

type Field struct {
	Name  string
	Value string
}

// Get returns the value of the named input column.
func (r RawRecord) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

type CleanedRecord struct {
	RawRecord
	CleanText  string    `json:"clean_text"`
	Embedding  []float32 `json:"-"`
	Similarity *float64  `json:"similarity,omitempty"`
	Rejection  Rejection `json:"rejection,omitempty"`
}

func (c CleanedRecord) Rejected() bool {
	return c.Rejection != Retained
}
