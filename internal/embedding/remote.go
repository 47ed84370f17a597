package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stridehq/driftwatch/internal/storage"
)

// RemoteEmbedder calls an Ollama-compatible embedding service over HTTP.
// All calls are wrapped with circuit breaker protection; a failure
// surfaces as storage.ErrDataUnavailable so the drift engine degrades
// instead of aborting.
type RemoteEmbedder struct {
	baseURL        string
	model          string
	dimension      int
	timeout        time.Duration
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// RemoteConfig holds remote embedder configuration.
type RemoteConfig struct {
	// BaseURL is the base URL of the embedding API (default: http://localhost:11434)
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text)
	Model string

	// Dimension is the expected embedding length (default: 384)
	Dimension int

	// Timeout is the per-request timeout (default: 5s)
	Timeout time.Duration
}

// embedRequest is the request body for the /api/embed endpoint.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the response from /api/embed. The embeddings field is
// a 2D array; we always use the first (and only) embedding.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewRemoteEmbedder creates a remote embedder with the given configuration.
func NewRemoteEmbedder(config RemoteConfig) *RemoteEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "nomic-embed-text"
	}
	if config.Dimension == 0 {
		config.Dimension = 384
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	return &RemoteEmbedder{
		baseURL:        config.BaseURL,
		model:          config.Model,
		dimension:      config.Dimension,
		timeout:        config.Timeout,
		client:         &http.Client{Timeout: config.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Dimension returns the configured embedding dimension.
func (e *RemoteEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates an embedding for the given text. The request is wrapped
// with circuit breaker protection. Any failure, including an open circuit,
// is reported as storage.ErrDataUnavailable.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	result, err := e.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return e.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: embedding circuit breaker open", storage.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrDataUnavailable, err)
	}
	return result.([]float64), nil
}

// embed is the internal implementation without circuit breaker wrapping.
func (e *RemoteEmbedder) embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reqBody := embedRequest{Model: e.model, Input: text}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respData.Embeddings) == 0 || len(respData.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}
	if len(respData.Embeddings[0]) != e.dimension {
		return nil, fmt.Errorf("embedding service returned dimension %d, want %d",
			len(respData.Embeddings[0]), e.dimension)
	}

	return respData.Embeddings[0], nil
}

// HealthCheck verifies that the embedding service is reachable. It does
// not use circuit breaker protection since it is a health check itself.
func (e *RemoteEmbedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}
	return nil
}

// CircuitState exposes the circuit breaker state for health reporting.
func (e *RemoteEmbedder) CircuitState() string {
	return e.circuitBreaker.State()
}
