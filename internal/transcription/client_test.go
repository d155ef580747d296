package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Endpoint:      server.URL,
		Language:      "en",
		Timeout:       5 * time.Second,
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return server, client
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for empty endpoint")
	}

	client, err := NewClient(Config{Endpoint: "http://localhost:9000/transcribe"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if client.config.Language != "en" {
		t.Errorf("expected default language en, got %s", client.config.Language)
	}
	if client.config.MaxConcurrent != 2 {
		t.Errorf("expected default max concurrent 2, got %d", client.config.MaxConcurrent)
	}
}

func TestTranscribeParsesSegments(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}

		if got := r.FormValue("model"); got != "base" {
			t.Errorf("expected model base, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language en, got %q", got)
		}
		if got := r.FormValue("initial_prompt"); !strings.Contains(got, "Umm") {
			t.Errorf("expected filler-preserving prompt, got %q", got)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing audio file: %v", err)
		}
		file.Close()

		json.NewEncoder(w).Encode(map[string]interface{}{
			"text": "hello world  and more",
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 2.5, "text": "  hello world  "},
				{"start": 3.0, "end": 5.0, "text": "and more"},
				{"start": 5.0, "end": 5.5, "text": "   "},
			},
		})
	})

	segments, err := client.Transcribe(context.Background(), []byte("RIFF fake wav"), "base")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments (whitespace-only dropped), got %d", len(segments))
	}
	if segments[0].Text != "hello world" {
		t.Errorf("expected trimmed text, got %q", segments[0].Text)
	}
	if segments[0].Start != 0.0 || segments[0].End != 2.5 {
		t.Errorf("unexpected segment bounds: %+v", segments[0])
	}
	if segments[1].Text != "and more" {
		t.Errorf("unexpected second segment: %+v", segments[1])
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for empty audio")
	})

	if _, err := client.Transcribe(context.Background(), nil, "base"); err == nil {
		t.Error("expected error for empty audio")
	}
}

func TestTranscribeServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Transcribe(context.Background(), []byte("RIFF"), "base")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "HTTP error 503") {
		t.Errorf("expected status in error, got: %v", err)
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestTranscribeNoRetryOnFailure(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := client.Transcribe(context.Background(), []byte("RIFF"), "base"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 request, got %d", calls)
	}
}

func TestTranscribeMalformedJSON(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := client.Transcribe(context.Background(), []byte("RIFF"), "base"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestTranscribeContextCancellation(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Transcribe(ctx, []byte("RIFF"), "base"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestClientStats(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "", "segments": []interface{}{}})
	})

	if _, err := client.Transcribe(context.Background(), []byte("RIFF"), "base"); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("expected 100%% success rate, got %f", stats.SuccessRate)
	}
}
