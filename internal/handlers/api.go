package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.uuxo.net/uuxo/mimedb/internal/auth"
	"git.uuxo.net/uuxo/mimedb/internal/registry"
)

// Options controls which routes are mounted and how they are guarded.
type Options struct {
	CORSOrigins    string
	MetricsEnabled bool
	MetricsPath    string
	RequireJWT     bool
	JWTSecret      string
}

// MappingRequest is the body of POST /api/v1/mappings.
type MappingRequest struct {
	Extension string `json:"extension"`
	Type      string `json:"type"`
}

// API serves lookups and mutations for one registry.
type API struct {
	reg  *registry.Registry
	opts Options
}

// NewAPI returns an API over reg.
func NewAPI(reg *registry.Registry, opts Options) *API {
	return &API{reg: reg, opts: opts}
}

// Routes returns a mux with every endpoint mounted.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	read := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, countRequests(pattern, CORSWrapper(a.opts.CORSOrigins, h)))
	}
	write := func(pattern string, h http.HandlerFunc) {
		guarded := auth.Middleware(a.opts.RequireJWT, a.opts.JWTSecret, h)
		mux.HandleFunc(pattern, countRequests(pattern, CORSWrapper(a.opts.CORSOrigins, guarded)))
	}

	mux.HandleFunc("OPTIONS /", CORSWrapper(a.opts.CORSOrigins, nil))
	read("GET /health", HealthHandler())
	read("GET /api/v1/type", a.handleType)
	read("GET /api/v1/extensions", a.handleExtensions)
	read("GET /api/v1/content-type", a.handleContentType)
	read("GET /api/v1/index", a.handleIndex)
	write("POST /api/v1/mappings", a.handleAddMapping)
	write("DELETE /api/v1/mappings", a.handleRemoveMapping)
	write("POST /api/v1/reindex", a.handleReindex)
	write("POST /api/v1/save", a.handleSave)
	write("POST /api/v1/reload", a.handleReload)

	if a.opts.MetricsEnabled {
		path := a.opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.Handler())
	}
	return mux
}

func (a *API) handleType(w http.ResponseWriter, r *http.Request) {
	ext := r.URL.Query().Get("ext")
	if ext == "" {
		WriteJSONError(w, http.StatusBadRequest, "missing 'ext' query parameter")
		return
	}
	mime, ok := a.reg.TypeByExtension(ext)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "unknown extension: "+ext)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"extension": ext, "type": mime})
}

func (a *API) handleExtensions(w http.ResponseWriter, r *http.Request) {
	mime := r.URL.Query().Get("type")
	if mime == "" {
		WriteJSONError(w, http.StatusBadRequest, "missing 'type' query parameter")
		return
	}
	exts := a.reg.ExtensionsByType(mime)
	if len(exts) == 0 {
		WriteJSONError(w, http.StatusNotFound, "unknown MIME type: "+mime)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"type": mime, "extensions": exts})
}

func (a *API) handleContentType(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		WriteJSONError(w, http.StatusBadRequest, "missing 'filename' query parameter")
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{
		"filename": filename,
		"type":     a.reg.ContentType(filename),
	})
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	l := a.reg.Lookup()
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"forward":  l.Forward(),
		"backward": l.Backward(),
	})
}

func (a *API) handleAddMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := a.reg.Add(req.Extension, req.Type); err != nil {
		a.writeMutationError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "added",
		"pending": a.reg.Pending(),
	})
}

func (a *API) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := a.reg.Remove(q.Get("ext"), q.Get("type")); err != nil {
		a.writeMutationError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "removed",
		"pending": a.reg.Pending(),
	})
}

func (a *API) handleReindex(w http.ResponseWriter, r *http.Request) {
	l := a.reg.Reindex()
	WriteJSONResponse(w, http.StatusOK, map[string]int{
		"types":      l.NumTypes(),
		"extensions": l.NumExtensions(),
	})
}

func (a *API) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := a.reg.Save(r.Context()); err != nil {
		a.writeBackendError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := a.reg.Reload(r.Context()); err != nil {
		a.writeBackendError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"types":  a.reg.Lookup().NumTypes(),
	})
}

func (a *API) writeMutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrInvalidMapping) {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Errorf("Mutation failed: %v", err)
	WriteJSONError(w, http.StatusInternalServerError, "internal error")
}

func (a *API) writeBackendError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNoBackend) {
		WriteJSONError(w, http.StatusNotImplemented, err.Error())
		return
	}
	WriteJSONError(w, http.StatusBadGateway, err.Error())
}
