package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_address = "9090"
bind_ip = "0.0.0.0"

[metrics]
enabled = false
path = "/prom"
`), 0644))

	s, err := loadSettings([]string{filepath.Join(dir, "missing.toml"), path})
	require.NoError(t, err)
	assert.Equal(t, path, s.configFile)
	assert.Equal(t, "http://localhost:9090", s.baseURL)
	assert.Equal(t, "http://localhost:9090/prom", s.metricsURL)
	assert.False(t, s.metricsEnabled)
}

func TestLoadSettings_hostInListenAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nlisten_address = \"127.0.0.2:7000\"\n"), 0644))

	s, err := loadSettings([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.2:7000", s.baseURL)
	assert.Equal(t, "http://127.0.0.2:7000/metrics", s.metricsURL)
	assert.True(t, s.metricsEnabled)
}

func TestLoadSettings_noFile(t *testing.T) {
	_, err := loadSettings([]string{filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestParseMetrics(t *testing.T) {
	exposition := `# HELP mimedb_types Number of MIME types in the published index.
# TYPE mimedb_types gauge
mimedb_types 105
# HELP mimedb_lookups_total Total number of lookups by kind and result.
# TYPE mimedb_lookups_total counter
mimedb_lookups_total{kind="extension",result="hit"} 7
# HELP mimedb_reindex_duration_seconds Time spent rebuilding the lookup tables.
# TYPE mimedb_reindex_duration_seconds histogram
mimedb_reindex_duration_seconds_bucket{le="+Inf"} 3
mimedb_reindex_duration_seconds_sum 0.002
mimedb_reindex_duration_seconds_count 3
# HELP go_threads Number of OS threads created.
# TYPE go_threads gauge
go_threads 9
`
	got, err := parseMetrics(strings.NewReader(exposition))
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"mimedb_types": 105,
		`mimedb_lookups_total{kind="extension",result="hit"}`: 7,
		"mimedb_reindex_duration_seconds":                     3,
	}, got)
}

func TestFetchIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/index", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"forward":{"htm":"text/html"},"backward":{"text/html":["htm","html"]}}`))
	}))
	defer srv.Close()

	index, err := fetchIndex(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"text/html": {"htm", "html"}}, index)
}

func TestFilterTypes(t *testing.T) {
	index := map[string][]string{
		"text/html":  {"html", "htm"},
		"text/css":   {"css"},
		"image/jpeg": {"jpeg", "jpg"},
	}

	all := filterTypes(index, "")
	require.Len(t, all, 3)
	assert.Equal(t, "image/jpeg", all[0].Type)

	assert.Equal(t, []typeRow{{Type: "image/jpeg", Extensions: "jpeg jpg"}}, filterTypes(index, "JPG"))
	assert.Equal(t, []typeRow{{Type: "text/css", Extensions: "css"}, {Type: "text/html", Extensions: "html htm"}}, filterTypes(index, "text/"))
}

func TestSumSeries(t *testing.T) {
	metrics := map[string]float64{
		`requests_total{method="GET",path="GET /api/v1/type"}`: 4,
		`requests_total{method="POST",path="POST /api/v1/mappings"}`: 2,
		"requests_total_other": 100,
		"goroutines":           12,
	}
	assert.Equal(t, 6.0, sumSeries(metrics, "requests_total"))
	assert.Equal(t, 12.0, sumSeries(metrics, "goroutines"))
}
