package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stridehq/driftwatch/web/handlers"
)

func TestWebSocketHub_ValidatesOrigin(t *testing.T) {
	hub := handlers.NewWebSocketHub(6464)
	defer hub.Stop()

	// Test with invalid origin - should reject with 403
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://evil.com")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	w := httptest.NewRecorder()
	hub.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Forbidden")
}

func TestWebSocketHub_BroadcastAlert(t *testing.T) {
	hub := handlers.NewWebSocketHub(6464)
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	mockClient := &handlers.MockClient{
		SendChan: received,
	}

	hub.Register(mockClient)

	// Give the hub time to register the client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastAlert(handlers.DriftAlert{
		Type:        "drift_prediction",
		OwnerID:     "u1",
		RiskLevel:   "high",
		Probability: 0.72,
		Message:     "Drift risk for u1 is high",
	})

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), "drift_prediction")
		assert.Contains(t, string(msg), "u1")
		assert.Contains(t, string(msg), "high")
		// The hub stamps a timestamp on unstamped alerts.
		assert.NotContains(t, string(msg), "0001-01-01")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for broadcast message")
	}
}

func TestWebSocketHub_SlowClientDisconnected(t *testing.T) {
	hub := handlers.NewWebSocketHub(6464)
	go hub.Run()
	defer hub.Stop()

	// A client with a full, unbuffered channel cannot accept messages.
	slow := &handlers.MockClient{SendChan: make(chan []byte)}
	healthy := &handlers.MockClient{SendChan: make(chan []byte, 4)}
	hub.Register(slow)
	hub.Register(healthy)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(map[string]string{"type": "ping"})

	select {
	case msg := <-healthy.SendChan:
		assert.Contains(t, string(msg), "ping")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for broadcast to healthy client")
	}

	// The slow client's channel was closed when it was dropped.
	select {
	case _, open := <-slow.SendChan:
		assert.False(t, open, "slow client channel should be closed")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for slow client disconnect")
	}
}
