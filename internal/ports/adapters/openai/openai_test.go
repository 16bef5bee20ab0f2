package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forPelevin/reelgen/internal/retry"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p := retry.DefaultPolicy()
	p.Sleep = func(time.Duration) {}
	return New("test-key", srv.URL+"/v1", Models{}, WithRetry(p), WithTimeout(5*time.Second))
}

func TestGeneratePrompt_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream hiccup","type":"server_error"}}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":" A fox in a field "}}]}`))
	})

	got, err := a.GeneratePrompt(context.Background(), "a fox", "en")
	if err != nil {
		t.Fatalf("GeneratePrompt: %v", err)
	}
	if got != "A fox in a field" {
		t.Fatalf("unexpected prompt %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
	if body.Model != "gpt-4o-mini" || body.MaxTokens != 100 {
		t.Fatalf("unexpected request body: %+v", body)
	}
}

func TestChat_ContentPolicyIsFatal(t *testing.T) {
	var calls atomic.Int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Your request was rejected as a result of our safety system.","type":"invalid_request_error"}}`))
	})

	_, err := a.Translate(context.Background(), "hola", "es", "en")
	var se *retry.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries, got %d calls", calls.Load())
	}
}

func TestChat_EmptyChoicesRetriedThenFails(t *testing.T) {
	var calls atomic.Int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := a.GeneratePrompt(context.Background(), "x", "en")
	var empty *retry.EmptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyContentError, got %v", err)
	}
	if calls.Load() != retry.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", retry.DefaultMaxAttempts, calls.Load())
	}
}

func TestGenerateImage_WritesDecodedPNG(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	var req struct {
		Size           string `json:"size"`
		Model          string `json:"model"`
		ResponseFormat string `json:"response_format"`
	}
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(png) + `"}]}`))
	})

	out := filepath.Join(t.TempDir(), "images", "scene_0.png")
	if err := a.GenerateImage(context.Background(), "a fox", "1024x1792", out); err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || string(b) != string(png) {
		t.Fatalf("unexpected image file: %q %v", b, err)
	}
	if req.Size != "1024x1792" || req.Model != "dall-e-3" || req.ResponseFormat != "b64_json" {
		t.Fatalf("unexpected image request: %+v", req)
	}
}

func TestTranscribe_NormalizesLanguageAndSegments(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if f := r.FormValue("response_format"); f != "verbose_json" {
			t.Errorf("response_format = %q", f)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"language":"spanish","text":" Hola. Adios. ","segments":[
			{"id":0,"start":0,"end":1.5,"text":" Hola."},
			{"id":1,"start":1.5,"end":1.2,"text":" Adios. "}]}`))
	})

	audio := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(audio, []byte("ID3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	tr, err := a.Transcribe(context.Background(), audio, t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Language != "es" || tr.Text != "Hola. Adios." {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if len(tr.Segments) != 2 || tr.Segments[1].End != 1.5 || !strings.HasPrefix(tr.Segments[1].Text, "Adios") {
		t.Fatalf("unexpected segments: %+v", tr.Segments)
	}
}
