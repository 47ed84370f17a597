// Package server provides HTTP server initialization and lifecycle
// management for the DriftWatch REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/stridehq/driftwatch/internal/config"
	"github.com/stridehq/driftwatch/internal/engine"
	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/internal/vector"
	"github.com/stridehq/driftwatch/web/handlers"
)

// Deps bundles the collaborators the API serves. Patterns and Health
// are optional.
type Deps struct {
	Predictor *engine.Predictor
	Store     storage.EventStore
	Index     vector.Index
	Patterns  *engine.PatternAnalyzer
	Health    handlers.HealthChecker
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// methodHandler dispatches one route by HTTP method.
func methodHandler(routes map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.Method]; ok {
			h(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with
// port 0) and the WebSocketHub for wiring drift alert broadcasts.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub(cfg.Server.Port)
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateBurst)

	api := handlers.NewDriftHandlers(deps.Predictor, deps.Store, deps.Index, deps.Patterns, wsHub, deps.Health)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/predict", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: api.PredictBatch,
	}))
	apiMux.HandleFunc("/api/predict/{owner}", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: api.PredictDrift,
	}))
	apiMux.HandleFunc("/api/monitor/{owner}", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: api.MonitorRealtime,
	}))
	apiMux.HandleFunc("/api/trends/{owner}", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: api.AnalyzeTrends,
	}))
	apiMux.HandleFunc("/api/events", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: api.IngestEvent,
	}))
	apiMux.HandleFunc("/api/vectors/stats", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: api.VectorStats,
	}))
	apiMux.HandleFunc("/api/vectors/{owner}", methodHandler(map[string]http.HandlerFunc{
		http.MethodDelete: api.DeleteVectors,
	}))

	// Health stays outside the auth wrapper so probes can reach it.
	mux.HandleFunc("/api/health", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: api.Health,
	}))

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
