package mimestore

import (
	_ "embed"
	"strings"
)

//go:embed mime.types
var builtinTable string

// defaultTypes is the parsed built-in table. It is never handed out directly;
// New copies it into every store.
var defaultTypes = func() map[string][]string {
	s, _ := Parse(strings.NewReader(builtinTable))
	return s.types
}()
