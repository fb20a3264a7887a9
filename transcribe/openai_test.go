package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func tempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("fake mp3 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Write([]byte(`{"text":"chop the onions finely"}`))
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", "").WithBaseURL(srv.URL)
	tr, err := c.Transcribe(context.Background(), tempAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "chop the onions finely" {
		t.Errorf("text = %q", tr.Text)
	}
	if tr.Model != DefaultModel || gotModel != DefaultModel {
		t.Errorf("model = %q, form model = %q", tr.Model, gotModel)
	}
	if tr.Provider != "openai" {
		t.Errorf("provider = %q", tr.Provider)
	}
	if tr.CreatedAt == "" {
		t.Error("created_at is empty")
	}
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", "").WithBaseURL(srv.URL)
	if _, err := c.Transcribe(context.Background(), tempAudio(t)); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	c := NewOpenAI("test-key", "")
	if _, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.mp3")); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}
