package mimestore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

func TestNew_defaultTable(t *testing.T) {
	forward, backward := mimestore.New(nil).Index()

	for ext, want := range map[string]string{
		"txt":  "text/plain",
		"html": "text/html",
		"htm":  "text/html",
		"png":  "image/png",
		"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"iso":  "application/octet-stream",
	} {
		if got := forward[ext]; got != want {
			t.Errorf("forward[%q] = %q, want %q", ext, got, want)
		}
	}

	if diff := cmp.Diff([]string{"jpeg", "jpg"}, backward["image/jpeg"]); diff != "" {
		t.Errorf("backward[image/jpeg] mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_instancesAreIndependent(t *testing.T) {
	a := mimestore.New(nil)
	a.Add("foo", "text/html").Remove("txt", "text/plain")

	_, backward := mimestore.New(nil).Index()
	if diff := cmp.Diff([]string{"html", "htm", "shtml"}, backward["text/html"]); diff != "" {
		t.Errorf("text/html leaked between stores (-want +got):\n%s", diff)
	}
	if _, ok := backward["text/plain"]; !ok {
		t.Error("text/plain removed from a fresh store")
	}
}

func TestNew_extraMappings(t *testing.T) {
	s := mimestore.New(map[string]string{
		"md":   "text/markdown",
		"html": "text/html",
	})
	forward, backward := s.Index()

	if got := forward["md"]; got != "text/markdown" {
		t.Errorf(`forward["md"] = %q, want "text/markdown"`, got)
	}
	if diff := cmp.Diff([]string{"html", "htm", "shtml"}, backward["text/html"]); diff != "" {
		t.Errorf("duplicate extra mapping changed text/html (-want +got):\n%s", diff)
	}
}

func TestNewEmpty(t *testing.T) {
	forward, backward := mimestore.NewEmpty(nil).Index()
	if len(forward) != 0 || len(backward) != 0 {
		t.Errorf("empty store indexed to %v, %v", forward, backward)
	}

	s := mimestore.NewEmpty(map[string]string{"foo": "application/x-foo"})
	if diff := cmp.Diff([]string{"application/x-foo"}, s.Types()); diff != "" {
		t.Errorf("Types() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Add_idempotent(t *testing.T) {
	once := mimestore.NewEmpty(nil).Add("foo", "application/x-foo")
	twice := mimestore.NewEmpty(nil).Add("foo", "application/x-foo").Add("foo", "application/x-foo")

	if diff := cmp.Diff(once.Extensions("application/x-foo"), twice.Extensions("application/x-foo")); diff != "" {
		t.Errorf("Add() not idempotent (-once +twice):\n%s", diff)
	}
}

func TestStore_Add_preservesOrder(t *testing.T) {
	s := mimestore.NewEmpty(nil).
		Add("c", "text/x-abc").
		Add("a", "text/x-abc").
		Add("b", "text/x-abc").
		Add("a", "text/x-abc")

	if diff := cmp.Diff([]string{"c", "a", "b"}, s.Extensions("text/x-abc")); diff != "" {
		t.Errorf("Extensions() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Add_invalidTokens(t *testing.T) {
	s := mimestore.NewEmpty(nil).
		Add("", "text/plain").
		Add("txt", "").
		Add("a b", "text/plain").
		Add("txt;", "text/plain").
		Add("txt", "#text/plain")

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0; types: %v", s.Len(), s.Types())
	}
}

func TestValidMapping(t *testing.T) {
	tests := []struct {
		ext, mime string
		want      bool
	}{
		{"md", "text/markdown", true},
		{"tar.gz", "application/gzip", true},
		{"", "text/plain", false},
		{"txt", "", false},
		{"tar gz", "application/x-foo", false},
		{"txt;", "text/plain", false},
		{"x", "text/{x}", false},
		{"y", "#x/y", false},
		{"#y", "x/y", true},
	}
	for _, tt := range tests {
		if got := mimestore.ValidMapping(tt.ext, tt.mime); got != tt.want {
			t.Errorf("ValidMapping(%q, %q) = %v, want %v", tt.ext, tt.mime, got, tt.want)
		}
	}
}

func TestStore_AddAll_sortedOrder(t *testing.T) {
	extra := map[string]string{
		"mk":       "text/x-makefile",
		"Makefile": "text/x-makefile",
		"make":     "text/x-makefile",
	}
	for i := 0; i < 20; i++ {
		s := mimestore.NewEmpty(nil).AddAll(extra)
		if diff := cmp.Diff([]string{"Makefile", "make", "mk"}, s.Extensions("text/x-makefile")); diff != "" {
			t.Fatalf("Extensions() mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestStore_wholeWordMatching(t *testing.T) {
	s := mimestore.NewEmpty(map[string]string{"html": "text/x-foo"})
	s.Add("ht", "text/x-foo")

	if diff := cmp.Diff([]string{"html", "ht"}, s.Extensions("text/x-foo")); diff != "" {
		t.Fatalf("after Add(ht) mismatch (-want +got):\n%s", diff)
	}

	s.Remove("ht", "text/x-foo")
	_, backward := s.Index()
	if diff := cmp.Diff([]string{"html"}, backward["text/x-foo"]); diff != "" {
		t.Errorf("after Remove(ht) mismatch (-want +got):\n%s", diff)
	}

	s.Remove("htm", "text/x-foo")
	if diff := cmp.Diff([]string{"html"}, s.Extensions("text/x-foo")); diff != "" {
		t.Errorf("Remove(htm) touched html (-want +got):\n%s", diff)
	}
}

func TestStore_Remove(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		mime string
		want map[string][]string
	}{
		{
			name: "one of several",
			ext:  "jpg",
			mime: "image/jpeg",
			want: map[string][]string{"image/jpeg": {"jpeg"}, "text/plain": {"txt"}},
		},
		{
			name: "last extension deletes the type",
			ext:  "txt",
			mime: "text/plain",
			want: map[string][]string{"image/jpeg": {"jpeg", "jpg"}},
		},
		{
			name: "unknown type",
			ext:  "txt",
			mime: "text/x-unknown",
			want: map[string][]string{"image/jpeg": {"jpeg", "jpg"}, "text/plain": {"txt"}},
		},
		{
			name: "unknown extension",
			ext:  "png",
			mime: "image/jpeg",
			want: map[string][]string{"image/jpeg": {"jpeg", "jpg"}, "text/plain": {"txt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mimestore.NewEmpty(nil).
				Add("jpeg", "image/jpeg").
				Add("jpg", "image/jpeg").
				Add("txt", "text/plain")

			_, got := s.Remove(tt.ext, tt.mime).Index()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Index() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_removeThenReindex(t *testing.T) {
	s := mimestore.New(nil)
	s.Remove("txt", "text/plain")

	forward, backward := s.Index()
	if mime, ok := forward["txt"]; ok {
		t.Errorf(`forward["txt"] = %q, want no entry`, mime)
	}
	if exts, ok := backward["text/plain"]; ok {
		t.Errorf(`backward["text/plain"] = %v, want no entry`, exts)
	}
}

func TestStore_Index_consistent(t *testing.T) {
	forward, backward := mimestore.New(nil).Index()

	for ext, mime := range forward {
		found := false
		for _, e := range backward[mime] {
			if e == ext {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("forward[%q] = %q but backward[%q] = %v", ext, mime, mime, backward[mime])
		}
	}
}

func TestStore_Index_lastTypeWins(t *testing.T) {
	s := mimestore.NewEmpty(nil).
		Add("xml", "text/xml").
		Add("xml", "application/xml")

	forward, backward := s.Index()
	if got := forward["xml"]; got != "text/xml" {
		t.Errorf(`forward["xml"] = %q, want "text/xml"`, got)
	}
	if len(backward["application/xml"]) != 1 || len(backward["text/xml"]) != 1 {
		t.Errorf("backward lost a claim: %v", backward)
	}
}

func TestStore_Index_isSnapshot(t *testing.T) {
	s := mimestore.NewEmpty(nil).Add("txt", "text/plain")
	forward, backward := s.Index()
	backward["text/plain"][0] = "changed"
	forward["csv"] = "text/csv"

	if diff := cmp.Diff([]string{"txt"}, s.Extensions("text/plain")); diff != "" {
		t.Errorf("store affected by snapshot edit (-want +got):\n%s", diff)
	}
	if again, _ := s.Index(); len(again) != 1 {
		t.Errorf("re-index = %v, want only txt", again)
	}
}

func TestStore_Clone(t *testing.T) {
	s := mimestore.NewEmpty(nil).Add("txt", "text/plain")
	c := s.Clone()
	c.Add("text", "text/plain").Add("csv", "text/csv")

	if diff := cmp.Diff([]string{"text/plain"}, s.Types()); diff != "" {
		t.Errorf("original Types() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"txt"}, s.Extensions("text/plain")); diff != "" {
		t.Errorf("original Extensions() mismatch (-want +got):\n%s", diff)
	}
}
