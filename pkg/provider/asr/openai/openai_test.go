package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	t.Parallel()

	tr, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", tr.Model(), DefaultModel)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()

	tr, _ := New("sk-test", "")
	if _, err := tr.Transcribe(context.Background(), asr.Request{}); !errors.Is(err, asr.ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestTranscribe_PostsMultipart(t *testing.T) {
	t.Parallel()

	var gotModel, gotLang, gotAudio, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		if f, _, err := r.FormFile("file"); err == nil {
			b, _ := io.ReadAll(f)
			gotAudio = string(b)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": " two seven "})
	}))
	defer srv.Close()

	tr, err := New("sk-test", "", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := tr.Transcribe(context.Background(), asr.Request{Audio: []byte("wavdata"), Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "two seven" {
		t.Errorf("text = %q, want %q", text, "two seven")
	}
	if gotModel != DefaultModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultModel)
	}
	if gotLang != "en" {
		t.Errorf("language = %q, want en", gotLang)
	}
	if gotAudio != "wavdata" {
		t.Errorf("audio = %q, want wavdata", gotAudio)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad audio","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	tr, _ := New("sk-test", "", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	_, err := tr.Transcribe(context.Background(), asr.Request{Audio: []byte{1}})
	if err == nil || !strings.Contains(err.Error(), "openai asr") {
		t.Fatalf("err = %v, want wrapped openai asr error", err)
	}
}
