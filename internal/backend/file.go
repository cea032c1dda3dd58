package backend

import (
	"context"

	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

// FileBackend keeps the database in a mime.types style text file.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend for the file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Name() string { return "file" }

// Load never fails: a missing or unreadable file yields an empty store.
func (b *FileBackend) Load(ctx context.Context) (*mimestore.Store, error) {
	return mimestore.Load(b.Path), nil
}

func (b *FileBackend) Save(ctx context.Context, s *mimestore.Store) error {
	return s.Save(b.Path)
}

func (b *FileBackend) Close() error { return nil }
