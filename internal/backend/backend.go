// Package backend persists the MIME database outside the process.
package backend

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"git.uuxo.net/uuxo/mimedb/internal/config"
	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// Backend loads and saves a whole store.
type Backend interface {
	Name() string
	Load(ctx context.Context) (*mimestore.Store, error)
	Save(ctx context.Context, s *mimestore.Store) error
	Close() error
}

// New returns the backend selected by cfg.Database.Backend.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Database.Backend {
	case config.BackendFile:
		return NewFileBackend(cfg.Database.Path), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLite.DBPath)
	case config.BackendRedis:
		return NewRedisBackend(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Database.Backend)
	}
}
