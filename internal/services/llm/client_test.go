package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

func completionServer(t *testing.T, content string, inspect func(map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			inspect(body)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	server := completionServer(t, `{"ok":true}`, nil)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := completionServer(t, "```json\n{\"ok\":true}\n```", nil)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientRetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if calls.Load() != 2 || len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("calls=%d slept=%v", calls.Load(), slept)
	}
}

func TestClientDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestCompleteJSONToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type":     "function",
								"id":       "call_1",
								"function": map[string]any{"name": "label", "arguments": `{"label":"meta"}`},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	got, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if got != `{"label":"meta"}` {
		t.Fatalf("content = %q", got)
	}
}

func TestClassifierSendsImageAndParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p1.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nfake"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := completionServer(t, `{"label":"story","description":" Luffy punches Kaido. ","mood":"Action"}`, func(body map[string]any) {
		messages, _ := body["messages"].([]any)
		if len(messages) != 2 {
			t.Errorf("messages = %v", messages)
			return
		}
		user, _ := messages[1].(map[string]any)
		parts, _ := user["content"].([]any)
		if len(parts) != 2 {
			t.Errorf("user parts = %v", user["content"])
			return
		}
		img, _ := parts[0].(map[string]any)
		url, _ := img["image_url"].(map[string]any)
		if s, _ := url["url"].(string); !strings.HasPrefix(s, "data:image/png;base64,") {
			t.Errorf("image url = %q", s)
		}
	})
	classifier := NewClassifier(NewClient(Config{APIKey: "test", BaseURL: server.URL}))
	got, err := classifier.Classify(context.Background(), recap.Page{Index: 1, ImageRef: path})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := recap.Classification{Label: recap.LabelContent, Description: "Luffy punches Kaido.", Mood: "action"}
	if got != want {
		t.Fatalf("Classify = %+v want %+v", got, want)
	}
}

func TestClassifierMissingImage(t *testing.T) {
	classifier := NewClassifier(NewClient(Config{APIKey: "test", BaseURL: "http://127.0.0.1:0"}))
	_, err := classifier.Classify(context.Background(), recap.Page{Index: 0, ImageRef: filepath.Join(t.TempDir(), "none.png")})
	if !errors.Is(err, services.ErrClassification) {
		t.Fatalf("expected ErrClassification, got %v", err)
	}
}

func TestParseClassificationRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"label":"banana"}`,
		`{"label":"content","description":"  "}`,
	} {
		if _, err := ParseClassification(payload); !errors.Is(err, services.ErrClassification) {
			t.Errorf("%s: expected ErrClassification, got %v", payload, err)
		}
	}
	got, err := ParseClassification(`{"label":"cover","description":"ignored"}`)
	if err != nil || got.Label != recap.LabelMeta || got.Description != "" {
		t.Fatalf("meta parse = %+v, %v", got, err)
	}
}
