package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ngascope/ngascope/internal/config"
)

func testOllamaConfig(endpoint string) config.OllamaConfig {
	return config.OllamaConfig{
		Endpoint:    endpoint,
		Model:       "gemma3:latest",
		Timeout:     5 * time.Second,
		Temperature: 0.1,
		TopP:        0.9,
		TopK:        40,
	}
}

func TestOllamaGenerate(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"response": "{\"categories\": [\"游戏\"], \"keywords\": [], \"confidence\": 0.8}"}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(testOllamaConfig(srv.URL), testLogger)

	text, err := c.Generate(context.Background(), "测试提示词")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if text == "" {
		t.Fatal("empty response text")
	}

	if gotPayload["model"] != "gemma3:latest" {
		t.Errorf("model = %v", gotPayload["model"])
	}
	if gotPayload["stream"] != false {
		t.Errorf("stream = %v, want false", gotPayload["stream"])
	}
	opts, ok := gotPayload["options"].(map[string]any)
	if !ok {
		t.Fatalf("options missing: %v", gotPayload)
	}
	if opts["temperature"] != 0.1 {
		t.Errorf("temperature = %v", opts["temperature"])
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(testOllamaConfig(srv.URL), testLogger)
	if _, err := c.Generate(context.Background(), "提示"); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models": [{"name": "gemma3:latest"}, {"name": "llama3:8b"}]}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(testOllamaConfig(srv.URL), testLogger)

	names, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(names) != 2 || names[0] != "gemma3:latest" {
		t.Errorf("unexpected models %v", names)
	}
}

func TestCheckService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models": [{"name": "llama3:8b"}]}`)
	}))
	defer srv.Close()

	// Reachable but missing model: not an error, the run proceeds.
	c := NewOllamaClient(testOllamaConfig(srv.URL), testLogger)
	if err := c.CheckService(context.Background()); err != nil {
		t.Errorf("missing model must only warn: %v", err)
	}

	// Unreachable endpoint: an error, so the caller can degrade.
	srv.Close()
	if err := c.CheckService(context.Background()); err == nil {
		t.Error("unreachable service must return an error")
	}
}
