package mimestore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads a store from a mime.types style file at path.
// An unreadable file is not an error: a warning is logged and an empty
// store is returned.
func Load(path string) *Store {
	f, err := os.Open(path)
	if err != nil {
		log.Warnf("Cannot open MIME types file %s: %v", path, err)
		return NewEmpty(nil)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		log.Warnf("Failed to read MIME types file %s completely: %v", path, err)
	}
	log.Debugf("Loaded %d MIME types from %s", s.Len(), path)
	return s
}

// Parse reads lines of the form "<mime> <ext> <ext>...". Blank lines, lines
// starting with '#' and lines containing '{' or '}' are skipped, semicolons are
// ignored, and lines with fewer than two fields are dropped.
// The error is only set when reading from r fails; the store then holds
// everything parsed up to that point.
func Parse(r io.Reader) (*Store, error) {
	s := NewEmpty(nil)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		for _, ext := range fields[1:] {
			s.Add(ext, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return s, fmt.Errorf("failed to parse MIME types: %w", err)
	}
	return s, nil
}

func parseLine(line string) ([]string, bool) {
	line = strings.ReplaceAll(line, ";", "")
	line = strings.TrimLeft(line, " \t\r\v\f")
	switch {
	case line == "":
		return nil, false
	case strings.HasPrefix(line, "#"):
		return nil, false
	case strings.ContainsAny(line, "{}"):
		return nil, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, false
	}
	return fields, true
}

// WriteTo writes one "<mime> <ext> <ext>..." line per MIME type, sorted by MIME type.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, mime := range s.Types() {
		n, err := fmt.Fprintf(bw, "%s %s\n", mime, strings.Join(s.types[mime], " "))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// Save writes the store to path in the format read by Load.
// Failures are logged and returned; nothing is fatal.
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		log.Warnf("Cannot open %s for writing: %v", path, err)
		return fmt.Errorf("failed to save MIME types: %w", err)
	}

	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		log.Warnf("Failed to write MIME types to %s: %v", path, err)
		return fmt.Errorf("failed to save MIME types: %w", err)
	}
	if err := f.Close(); err != nil {
		log.Warnf("Failed to close %s: %v", path, err)
		return fmt.Errorf("failed to save MIME types: %w", err)
	}
	log.Debugf("Saved %d MIME types to %s", s.Len(), path)
	return nil
}
