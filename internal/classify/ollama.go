package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ngascope/ngascope/internal/config"
)

// OllamaClient talks to a local Ollama instance over its HTTP API.
type OllamaClient struct {
	cfg    config.OllamaConfig
	client *http.Client
	logger *slog.Logger
}

// NewOllamaClient creates a client for the configured endpoint and model.
func NewOllamaClient(cfg config.OllamaConfig, logger *slog.Logger) *OllamaClient {
	return &OllamaClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "ollama_client"),
	}
}

// Generate sends a prompt to /api/generate and returns the raw response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"top_p":       c.cfg.TopP,
			"top_k":       c.cfg.TopK,
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

// ListModels returns the model names installed on the Ollama instance.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}

	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckService verifies the Ollama instance is reachable. A reachable
// instance that lacks the configured model only logs a warning; an
// unreachable one returns the error so the caller can degrade the run.
func (c *OllamaClient) CheckService(ctx context.Context) error {
	names, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", c.cfg.Endpoint, err)
	}

	for _, name := range names {
		if name == c.cfg.Model {
			c.logger.Info("ollama service ready", "model", c.cfg.Model)
			return nil
		}
	}

	c.logger.Warn("configured model not installed",
		"model", c.cfg.Model,
		"available", names,
	)
	return nil
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.cfg.Model
}
