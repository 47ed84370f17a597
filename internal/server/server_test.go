package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridehq/driftwatch/internal/config"
	"github.com/stridehq/driftwatch/internal/engine"
	"github.com/stridehq/driftwatch/internal/server"
	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/internal/vector"
	"github.com/stridehq/driftwatch/pkg/types"
)

// stubStore is a threadsafe in-memory EventStore for server tests.
type stubStore struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *stubStore) FetchEvents(_ context.Context, q storage.EventQuery) ([]types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Event
	for _, e := range s.events {
		if e.OwnerID == q.OwnerID && (q.Since.IsZero() || !e.Timestamp.Before(q.Since)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) StoreEvent(_ context.Context, event *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

type stubHistory struct {
	mu          sync.Mutex
	assessments []types.RiskAssessment
}

func (h *stubHistory) AppendAssessment(_ context.Context, a *types.RiskAssessment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assessments = append(h.assessments, *a)
	return nil
}

func (h *stubHistory) ReadAssessments(_ context.Context, ownerID string, _ storage.AssessmentQuery) ([]types.RiskAssessment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []types.RiskAssessment
	for _, a := range h.assessments {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0, // random port
		},
		Security: config.SecurityConfig{
			SecurityMode: "development",
			RateLimit:    100,
			RateBurst:    200,
		},
		Engine: engine.DefaultConfig(),
	}
}

// startTestServer starts a server on a random port with in-memory
// collaborators and registers cleanup with t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	store := &stubStore{}
	history := &stubHistory{}
	index, err := vector.NewMemoryStore(8)
	require.NoError(t, err)
	predictor := engine.NewPredictor(store, history, nil, cfg.Engine)

	ctx, cancel := context.WithCancel(context.Background())

	addr, hub := server.Start(ctx, cfg, server.Deps{
		Predictor: predictor,
		Store:     store,
		Index:     index,
	})
	require.NotEmpty(t, addr)
	_ = hub

	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
	})

	return "http://" + addr
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	require.True(t, strings.HasPrefix(baseURL, "http://"))
	addr := strings.TrimPrefix(baseURL, "http://")

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err, "address should be valid host:port format")
	assert.Equal(t, "127.0.0.1", host)
	assert.NotEqual(t, "0", port, "a real port should have been assigned")
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}

func TestServer_SecurityHeaders(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range expectedHeaders {
		assert.Equal(t, want, resp.Header.Get(name), "header %q", name)
	}
}

func TestServer_PredictEndpoint(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp, err := http.Post(baseURL+"/api/predict/u1", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pred engine.Prediction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pred))
	assert.Equal(t, "u1", pred.OwnerID)
	assert.Equal(t, engine.StatusInsufficientData, pred.Status)
}

func TestServer_IngestThenPredict(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	body := `{"owner_id": "u1", "kind": "checkin", "mood": 4, "energy": 4}`
	resp, err := http.Post(baseURL+"/api/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(baseURL+"/api/predict/u1", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pred engine.Prediction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pred))
	assert.Equal(t, engine.StatusOK, pred.Status)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/api/health"},
		{"GET", "/api/events"},
		{"DELETE", "/api/predict"},
		{"POST", "/api/vectors/stats"},
	}
	for _, tt := range tests {
		t.Run(tt.method+"_"+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, baseURL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestServer_ProductionModeRequiresAuth(t *testing.T) {
	testToken := "test-secret-token-xyz123"
	cfg := testConfig()
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = testToken

	baseURL := startTestServer(t, cfg)

	t.Run("without_auth_header", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/api/predict/u1", "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with_valid_auth_header", func(t *testing.T) {
		req, err := http.NewRequest("POST", baseURL+"/api/predict/u1", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+testToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("with_invalid_auth_header", func(t *testing.T) {
		req, err := http.NewRequest("POST", baseURL+"/api/predict/u1", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer wrong-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("health_is_exempt", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestServer_NotFoundHandling(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp, err := http.Get(baseURL + "/nonexistent/route")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GracefulShutdown(t *testing.T) {
	cfg := testConfig()

	store := &stubStore{}
	index, err := vector.NewMemoryStore(8)
	require.NoError(t, err)
	predictor := engine.NewPredictor(store, &stubHistory{}, nil, cfg.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _ := server.Start(ctx, cfg, server.Deps{
		Predictor: predictor,
		Store:     store,
		Index:     index,
	})
	baseURL := "http://" + addr
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "server should respond before shutdown")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	time.Sleep(200 * time.Millisecond)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	req, _ := http.NewRequestWithContext(checkCtx, "GET", baseURL+"/api/health", nil)
	_, err = http.DefaultClient.Do(req)
	assert.Error(t, err, "server should stop responding after shutdown")
}
