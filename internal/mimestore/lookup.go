package mimestore

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultContentType is returned by ContentType for unknown extensions.
const DefaultContentType = "application/octet-stream"

// Lookup is a read-only view over one Index result.
type Lookup struct {
	forward  map[string]string
	backward map[string][]string
}

// NewLookup indexes s and wraps the result. Later changes to s are not reflected.
func NewLookup(s *Store) *Lookup {
	forward, backward := s.Index()
	return &Lookup{forward: forward, backward: backward}
}

// TypeByExtension returns the MIME type registered for ext. A leading dot is ignored.
func (l *Lookup) TypeByExtension(ext string) (string, bool) {
	mime, ok := l.forward[strings.TrimPrefix(ext, ".")]
	return mime, ok
}

// ExtensionsByType returns a copy of the extensions registered for mime.
func (l *Lookup) ExtensionsByType(mime string) []string {
	return slices.Clone(l.backward[mime])
}

// ContentType returns the MIME type for filename based on its extension.
// An exact match is tried before a lower-cased one; unknown extensions
// yield DefaultContentType.
func (l *Lookup) ContentType(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return DefaultContentType
	}
	if mime, ok := l.forward[ext]; ok {
		return mime
	}
	if mime, ok := l.forward[strings.ToLower(ext)]; ok {
		return mime
	}
	return DefaultContentType
}

// Forward returns a copy of the extension to MIME type table.
func (l *Lookup) Forward() map[string]string {
	return maps.Clone(l.forward)
}

// Backward returns a copy of the MIME type to extensions table.
func (l *Lookup) Backward() map[string][]string {
	m := make(map[string][]string, len(l.backward))
	for k, v := range l.backward {
		m[k] = slices.Clone(v)
	}
	return m
}

// NumTypes returns the number of MIME types in the view.
func (l *Lookup) NumTypes() int { return len(l.backward) }

// NumExtensions returns the number of distinct extensions in the view.
func (l *Lookup) NumExtensions() int { return len(l.forward) }
