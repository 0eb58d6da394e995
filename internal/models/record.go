// Package models defines the domain types of the archive.
package models

import (
	"bytes"
	"encoding/json"

	"github.com/starford/archiver/internal/fingerprint"
)

// Record is an archived book. It is never modified after creation.
type Record struct {
	Title      []byte
	Author     []byte
	ContentRef []byte
	Submitter  string
	CreatedAt  uint64
}

// Clone returns a deep copy so callers cannot alias stored byte slices.
func (r Record) Clone() Record {
	return Record{
		Title:      bytes.Clone(r.Title),
		Author:     bytes.Clone(r.Author),
		ContentRef: bytes.Clone(r.ContentRef),
		Submitter:  r.Submitter,
		CreatedAt:  r.CreatedAt,
	}
}

// Equal reports whether both records carry identical fields.
func (r Record) Equal(o Record) bool {
	return bytes.Equal(r.Title, o.Title) &&
		bytes.Equal(r.Author, o.Author) &&
		bytes.Equal(r.ContentRef, o.ContentRef) &&
		r.Submitter == o.Submitter &&
		r.CreatedAt == o.CreatedAt
}

type recordJSON struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ContentRef string `json:"content_ref"`
	Submitter  string `json:"submitter"`
	CreatedAt  uint64 `json:"created_at"`
}

// MarshalJSON renders byte fields as strings.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Title:      string(r.Title),
		Author:     string(r.Author),
		ContentRef: string(r.ContentRef),
		Submitter:  r.Submitter,
		CreatedAt:  r.CreatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var v recordJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Record{
		Title:      []byte(v.Title),
		Author:     []byte(v.Author),
		ContentRef: []byte(v.ContentRef),
		Submitter:  v.Submitter,
		CreatedAt:  v.CreatedAt,
	}
	return nil
}

// BookArchived is emitted once a record has been stored.
type BookArchived struct {
	Submitter   string                  `json:"submitter"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}
