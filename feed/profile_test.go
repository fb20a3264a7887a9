package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantUsername string
		wantURL      string
	}{
		{"Handle", "@some.creator", "some.creator", "https://www.tiktok.com/@some.creator"},
		{"RawUsername", "some.creator", "some.creator", "https://www.tiktok.com/@some.creator"},
		{"ProfileURL", "https://www.tiktok.com/@some.creator?lang=en", "some.creator", "https://www.tiktok.com/@some.creator"},
		{"Whitespace", "  @trimmed  ", "trimmed", "https://www.tiktok.com/@trimmed"},
		{"UnmatchedURL", "https://www.tiktok.com/discover", "unknown", "https://www.tiktok.com/discover"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeProfile(tc.input)
			if got.Username != tc.wantUsername {
				t.Errorf("username = %q, want %q", got.Username, tc.wantUsername)
			}
			if got.URL != tc.wantURL {
				t.Errorf("url = %q, want %q", got.URL, tc.wantURL)
			}
		})
	}
}

func TestExtractSecUID(t *testing.T) {
	html := `<html><head><script>var a = 1;</script></head><body>
<script id="state" type="application/json">{"user":{"secUid":"MS4wLjABAAAAtest123","id":"42"}}</script>
</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if got := ExtractSecUID(doc); got != "MS4wLjABAAAAtest123" {
		t.Errorf("secUid = %q", got)
	}
}

func TestResolveSecUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/@some.creator" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body><script type="application/json">{"secUid":"MS4wLjABAAAAtest123"}</script></body></html>`))
	}))
	defer srv.Close()

	c := NewClient(nil).WithBaseURL(srv.URL)
	got, err := c.ResolveSecUID(context.Background(), "some.creator")
	if err != nil {
		t.Fatalf("ResolveSecUID: %v", err)
	}
	if got != "MS4wLjABAAAAtest123" {
		t.Errorf("secUid = %q", got)
	}
}

func TestResolveSecUIDMissingFromPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>nothing</p></body></html>"))
	}))
	defer srv.Close()

	c := NewClient(nil).WithBaseURL(srv.URL)
	if _, err := c.ResolveSecUID(context.Background(), "some.creator"); err == nil {
		t.Fatal("expected error when page has no secUid")
	}
}

func TestExtractSecUIDMissing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if got := ExtractSecUID(doc); got != "" {
		t.Errorf("expected empty secUid, got %q", got)
	}
}
