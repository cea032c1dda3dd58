package mimestore_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

func TestParse(t *testing.T) {
	s, err := mimestore.Parse(strings.NewReader(`# comment line
types {
    text/html    html htm;
   text/x-foo foo;bar
application/x-single

    # indented comment
application/json json json
}
`))
	if err != nil {
		t.Fatal(err)
	}

	_, got := s.Index()
	want := map[string][]string{
		"text/html":        {"html", "htm"},
		"text/x-foo":       {"foobar"},
		"application/json": {"json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_bracesSkipWholeLine(t *testing.T) {
	s, err := mimestore.Parse(strings.NewReader("text/plain txt {\n} text/csv csv\ntext/css css\n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"text/css"}, s.Types()); diff != "" {
		t.Errorf("Types() mismatch (-want +got):\n%s", diff)
	}
}

type failingReader struct{ data io.Reader }

func (r failingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if err == io.EOF {
		return n, errors.New("disk on fire")
	}
	return n, err
}

func TestParse_readError(t *testing.T) {
	s, err := mimestore.Parse(failingReader{strings.NewReader("text/plain txt\n")})
	if err == nil {
		t.Fatal("Parse() error = nil, want read error")
	}
	if diff := cmp.Diff([]string{"txt"}, s.Extensions("text/plain")); diff != "" {
		t.Errorf("lines before the error were lost (-want +got):\n%s", diff)
	}
}

func TestLoad_unreadablePath(t *testing.T) {
	got := mimestore.Load("/path/does/not/exist")
	if got == nil {
		t.Fatal("Load() returned nil")
	}

	wantForward, wantBackward := mimestore.NewEmpty(nil).Index()
	gotForward, gotBackward := got.Index()
	if diff := cmp.Diff(wantForward, gotForward); diff != "" {
		t.Errorf("forward mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantBackward, gotBackward); diff != "" {
		t.Errorf("backward mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.types")
	s := mimestore.New(map[string]string{"md": "text/markdown"})
	s.Add("ht", "text/html").Remove("txt", "text/plain")

	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}

	wantForward, wantBackward := s.Index()
	gotForward, gotBackward := mimestore.Load(path).Index()
	if diff := cmp.Diff(wantForward, gotForward); diff != "" {
		t.Errorf("forward mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantBackward, gotBackward); diff != "" {
		t.Errorf("backward mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.types")
	s := mimestore.NewEmpty(nil).
		Add("txt", "text/plain").
		Add("jpeg", "image/jpeg").
		Add("jpg", "image/jpeg").
		Add("css", "text/css")

	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := "image/jpeg jpeg jpg\ntext/css css\ntext/plain txt\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("saved file mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_unwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "mime.types")
	if err := mimestore.New(nil).Save(path); err == nil {
		t.Error("Save() error = nil, want error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat() error = %v, want not exist", err)
	}
}

func TestStore_WriteTo(t *testing.T) {
	var sb strings.Builder
	n, err := mimestore.NewEmpty(map[string]string{"foo": "application/x-foo"}).WriteTo(&sb)
	if err != nil {
		t.Fatal(err)
	}
	if want := "application/x-foo foo\n"; sb.String() != want || n != int64(len(want)) {
		t.Errorf("WriteTo() = %d, %q; want %d, %q", n, sb.String(), len(want), want)
	}
}
