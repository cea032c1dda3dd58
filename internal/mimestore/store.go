// Package mimestore keeps a bidirectional table between file extensions and MIME types.
//
// A Store is the mutable source of truth: MIME type to an ordered list of extensions.
// Lookup tables are derived from it on demand with Index, so mutations become visible
// to lookups only after the caller re-indexes.
package mimestore

import (
	"slices"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// Store maps MIME types to their extensions.
// A Store is not safe for concurrent use.
type Store struct {
	types map[string][]string
}

// New returns a store seeded with the built-in table, then adds every
// extension to MIME type pair of extra.
func New(extra map[string]string) *Store {
	s := &Store{types: make(map[string][]string, len(defaultTypes))}
	for mime, exts := range defaultTypes {
		s.types[mime] = slices.Clone(exts)
	}
	return s.AddAll(extra)
}

// NewEmpty is like New but starts without the built-in table.
func NewEmpty(extra map[string]string) *Store {
	s := &Store{types: make(map[string][]string)}
	return s.AddAll(extra)
}

// AddAll adds every extension to MIME type pair of extra in sorted extension
// order, so the resulting extension order is the same on every run.
func (s *Store) AddAll(extra map[string]string) *Store {
	exts := make([]string, 0, len(extra))
	for ext := range extra {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		s.Add(ext, extra[ext])
	}
	return s
}

// Add associates ext with mime. Adding a pair that already exists is a no-op.
func (s *Store) Add(ext, mime string) *Store {
	if !ValidMapping(ext, mime) {
		log.Debugf("Ignoring invalid mapping %q -> %q", ext, mime)
		return s
	}
	exts := s.types[mime]
	if slices.Contains(exts, ext) {
		return s
	}
	s.types[mime] = append(exts, ext)
	return s
}

// Remove drops the association between ext and mime. When mime is left
// without extensions its entry is deleted.
func (s *Store) Remove(ext, mime string) *Store {
	exts, ok := s.types[mime]
	if !ok {
		return s
	}
	i := slices.Index(exts, ext)
	if i < 0 {
		return s
	}
	exts = slices.Delete(exts, i, i+1)
	if len(exts) == 0 {
		delete(s.types, mime)
		return s
	}
	s.types[mime] = exts
	return s
}

// Index derives the forward (extension to MIME type) and backward (MIME type to
// extensions) tables from the current contents. Both are fresh copies.
//
// MIME types are visited in sorted order; when two of them claim the same
// extension, the one visited last wins the forward entry.
func (s *Store) Index() (map[string]string, map[string][]string) {
	forward := make(map[string]string)
	backward := make(map[string][]string, len(s.types))
	for _, mime := range s.Types() {
		exts := s.types[mime]
		for _, ext := range exts {
			forward[ext] = mime
		}
		backward[mime] = slices.Clone(exts)
	}
	return forward, backward
}

// Types returns the MIME types in the store, sorted.
func (s *Store) Types() []string {
	types := make([]string, 0, len(s.types))
	for mime := range s.types {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}

// Extensions returns a copy of the extensions registered for mime, or nil.
func (s *Store) Extensions(mime string) []string {
	return slices.Clone(s.types[mime])
}

// Len returns the number of MIME types in the store.
func (s *Store) Len() int {
	return len(s.types)
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{types: make(map[string][]string, len(s.types))}
	for mime, exts := range s.types {
		c.types[mime] = slices.Clone(exts)
	}
	return c
}

// ValidMapping reports whether Add would store the pair: both tokens are
// non-empty, free of whitespace, ';', '{' and '}', and mime does not start with '#'.
func ValidMapping(ext, mime string) bool {
	return validToken(ext) && validToken(mime) && !strings.HasPrefix(mime, "#")
}

// validToken reports whether v survives a Save and Load as a single field.
func validToken(v string) bool {
	return v != "" && !strings.ContainsAny(v, " \t\r\n\v\f;{}")
}
