// Package registry shares one MIME store between concurrent callers.
//
// Mutations go to the store; lookups are served from the last published
// index. Reindex publishes the current store contents, either on request
// or after every mutation when AutoReindex is set.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"git.uuxo.net/uuxo/mimedb/internal/backend"
	"git.uuxo.net/uuxo/mimedb/internal/metrics"
	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// ErrInvalidMapping is returned for a pair the store would not keep.
var ErrInvalidMapping = errors.New("extension and MIME type must be non-empty single tokens without ';', '{' or '}', and the type must not start with '#'")

// ErrNoBackend is returned by Save and Reload when no backend is configured.
var ErrNoBackend = errors.New("no backend configured")

// Options configures a Registry.
type Options struct {
	Backend     backend.Backend
	AutoReindex bool
	// CacheTTL enables memoised lookups when positive.
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

// Registry guards a store and its published lookup view.
type Registry struct {
	mu      sync.RWMutex
	store   *mimestore.Store
	lookup  *mimestore.Lookup
	opts    Options
	cache   *cache.Cache
	gen     uint64
	pending int
}

// New wraps store and publishes its first index.
func New(store *mimestore.Store, opts Options) *Registry {
	r := &Registry{store: store, opts: opts}
	if opts.CacheTTL > 0 {
		r.cache = cache.New(opts.CacheTTL, opts.CleanupInterval)
	}
	r.Reindex()
	return r
}

// Add associates ext with mime.
func (r *Registry) Add(ext, mime string) error {
	if !mimestore.ValidMapping(ext, mime) {
		return ErrInvalidMapping
	}
	r.mu.Lock()
	r.store.Add(ext, mime)
	r.pending++
	r.mu.Unlock()

	metrics.MutationsTotal.WithLabelValues("add").Inc()
	log.Debugf("Added %s -> %s", ext, mime)
	if r.opts.AutoReindex {
		r.Reindex()
	}
	return nil
}

// Remove drops the association between ext and mime.
func (r *Registry) Remove(ext, mime string) error {
	if ext == "" || mime == "" {
		return ErrInvalidMapping
	}
	r.mu.Lock()
	r.store.Remove(ext, mime)
	r.pending++
	r.mu.Unlock()

	metrics.MutationsTotal.WithLabelValues("remove").Inc()
	log.Debugf("Removed %s -> %s", ext, mime)
	if r.opts.AutoReindex {
		r.Reindex()
	}
	return nil
}

// Reindex rebuilds the lookup view from the store and publishes it.
func (r *Registry) Reindex() *mimestore.Lookup {
	start := time.Now()

	r.mu.Lock()
	l := mimestore.NewLookup(r.store)
	r.lookup = l
	r.gen++
	r.pending = 0
	if r.cache != nil {
		r.cache.Flush()
	}
	r.mu.Unlock()

	metrics.ReindexDuration.Observe(time.Since(start).Seconds())
	metrics.Types.Set(float64(l.NumTypes()))
	metrics.Extensions.Set(float64(l.NumExtensions()))
	log.Debugf("Index rebuilt: %d types, %d extensions", l.NumTypes(), l.NumExtensions())
	return l
}

// Lookup returns the published view.
func (r *Registry) Lookup() *mimestore.Lookup {
	l, _ := r.view()
	return l
}

// view returns the published lookup with its generation. Cache keys carry the
// generation so a result computed from an older view is never served after Reindex.
func (r *Registry) view() (*mimestore.Lookup, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup, r.gen
}

// Pending returns the number of mutations not yet published by Reindex.
func (r *Registry) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending
}

// TypeByExtension looks ext up in the published view.
func (r *Registry) TypeByExtension(ext string) (string, bool) {
	l, gen := r.view()
	key := fmt.Sprintf("%d:ext:%s", gen, ext)
	if r.cache != nil {
		if v, found := r.cache.Get(key); found {
			mime := v.(string)
			observeLookup("extension", mime != "")
			return mime, mime != ""
		}
	}

	mime, ok := l.TypeByExtension(ext)
	if r.cache != nil {
		r.cache.SetDefault(key, mime)
	}
	observeLookup("extension", ok)
	return mime, ok
}

// ExtensionsByType looks mime up in the published view.
func (r *Registry) ExtensionsByType(mime string) []string {
	exts := r.Lookup().ExtensionsByType(mime)
	observeLookup("type", len(exts) > 0)
	return exts
}

// ContentType returns the MIME type for filename, falling back to
// mimestore.DefaultContentType.
func (r *Registry) ContentType(filename string) string {
	l, gen := r.view()
	key := fmt.Sprintf("%d:file:%s", gen, filename)
	if r.cache != nil {
		if v, found := r.cache.Get(key); found {
			mime := v.(string)
			observeLookup("filename", mime != mimestore.DefaultContentType)
			return mime
		}
	}

	mime := l.ContentType(filename)
	if r.cache != nil {
		r.cache.SetDefault(key, mime)
	}
	observeLookup("filename", mime != mimestore.DefaultContentType)
	return mime
}

// Snapshot returns a copy of the store including unpublished mutations.
func (r *Registry) Snapshot() *mimestore.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Clone()
}

// Save writes the store, including unpublished mutations, to the backend.
func (r *Registry) Save(ctx context.Context) error {
	b := r.opts.Backend
	if b == nil {
		return ErrNoBackend
	}
	err := b.Save(ctx, r.Snapshot())
	metrics.ObserveBackend(b.Name(), "save", err)
	if err != nil {
		log.Errorf("Failed to save MIME database to %s backend: %v", b.Name(), err)
		return fmt.Errorf("save to %s backend: %w", b.Name(), err)
	}
	log.Infof("MIME database saved to %s backend", b.Name())
	return nil
}

// Reload replaces the store with the backend contents and reindexes.
func (r *Registry) Reload(ctx context.Context) error {
	b := r.opts.Backend
	if b == nil {
		return ErrNoBackend
	}
	s, err := b.Load(ctx)
	metrics.ObserveBackend(b.Name(), "load", err)
	if err != nil {
		log.Errorf("Failed to reload MIME database from %s backend: %v", b.Name(), err)
		return fmt.Errorf("load from %s backend: %w", b.Name(), err)
	}

	r.mu.Lock()
	r.store = s
	r.mu.Unlock()
	r.Reindex()
	log.Infof("MIME database reloaded from %s backend: %d types", b.Name(), s.Len())
	return nil
}

func observeLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.LookupsTotal.WithLabelValues(kind, result).Inc()
}
