// Package manifest reads bulk-import files of books to archive.
//
// Two formats are accepted. A YAML manifest lists many books:
//
//	books:
//	  - title: Dune
//	    author: Frank Herbert
//	    content_ref: ipfs://bafy...
//
// A Markdown file describes a single book in its YAML frontmatter, using the
// same three keys.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter is returned for Markdown input without a frontmatter block.
var ErrNoFrontmatter = errors.New("manifest: markdown has no frontmatter")

// Entry is one book to archive. Empty strings are valid values; missing keys
// are not.
type Entry struct {
	Title      *string `yaml:"title"`
	Author     *string `yaml:"author"`
	ContentRef *string `yaml:"content_ref"`
}

// Validate implements validation.Validatable.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.NotNil),
		validation.Field(&e.Author, validation.NotNil),
		validation.Field(&e.ContentRef, validation.NotNil),
	)
}

// Label is a short human-readable name for log lines.
func (e Entry) Label() string {
	return fmt.Sprintf("%q by %q", deref(e.Title), deref(e.Author))
}

// Fields returns the entry as the byte sequences the registry takes.
func (e Entry) Fields() (title, author, contentRef []byte) {
	return []byte(deref(e.Title)), []byte(deref(e.Author)), []byte(deref(e.ContentRef))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type document struct {
	Books []Entry `yaml:"books"`
}

// Parse decodes data according to the extension of name: ".md" files are
// read as a single frontmatter entry, everything else as a YAML manifest.
func Parse(name string, data []byte) ([]Entry, error) {
	if strings.EqualFold(filepath.Ext(name), ".md") {
		e, err := ParseMarkdown(data)
		if err != nil {
			return nil, err
		}
		return []Entry{e}, nil
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML manifest. Every entry is validated; the first
// invalid entry fails the whole manifest.
func ParseYAML(data []byte) ([]Entry, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	for i, e := range doc.Books {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("manifest: book %d: %w", i+1, err)
		}
	}
	return doc.Books, nil
}

// ParseMarkdown reads the frontmatter (between leading --- delimiters) of a
// Markdown file as a single entry. The body is ignored.
func ParseMarkdown(data []byte) (Entry, error) {
	block, ok := frontmatter(data)
	if !ok {
		return Entry{}, ErrNoFrontmatter
	}
	var e Entry
	if err := yaml.Unmarshal(block, &e); err != nil {
		return Entry{}, fmt.Errorf("manifest: frontmatter: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Entry{}, fmt.Errorf("manifest: frontmatter: %w", err)
	}
	return e, nil
}

func frontmatter(data []byte) ([]byte, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, false
	}
	return rest[:idx], true
}
