// Command driftwatch-server runs the drift-prediction REST API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stridehq/driftwatch/internal/config"
	"github.com/stridehq/driftwatch/internal/embedding"
	"github.com/stridehq/driftwatch/internal/engine"
	"github.com/stridehq/driftwatch/internal/notify"
	"github.com/stridehq/driftwatch/internal/server"
	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/internal/storage/postgres"
	"github.com/stridehq/driftwatch/internal/storage/sqlite"
	"github.com/stridehq/driftwatch/internal/vector"
	vectorpg "github.com/stridehq/driftwatch/internal/vector/postgres"
	"github.com/stridehq/driftwatch/pkg/types"
	"github.com/stridehq/driftwatch/web/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store := buildStore(cfg)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embedder, health := buildEmbedder(cfg)
	index, snapshot := buildIndex(ctx, cfg)
	if snapshot != nil {
		defer snapshot.Close()
	}

	patterns := engine.NewPatternAnalyzer(index, embedder, cfg.Engine.PatternNeighbors)
	predictor := engine.NewPredictor(store, store, patterns, cfg.Engine)

	addr, wsHub := server.Start(ctx, cfg, server.Deps{
		Predictor: predictor,
		Store:     store,
		Index:     index,
		Patterns:  patterns,
		Health:    health,
	})
	log.Printf("DriftWatch API running at http://%s", addr)

	var watcher *notify.IngestWatcher
	if cfg.Ingest.Enabled {
		watcher = notify.NewIngestWatcher(cfg.Ingest.DropDir, store, func(event *types.Event) {
			indexCtx, indexCancel := context.WithTimeout(ctx, cfg.Engine.FetchTimeout)
			defer indexCancel()
			if err := patterns.IndexEvents(indexCtx, []types.Event{*event}); err != nil {
				log.Printf("Pattern indexing for ingested event failed: %v", err)
			}
			wsHub.BroadcastAlert(handlers.DriftAlert{
				Type:    "event_ingested",
				OwnerID: event.OwnerID,
				Message: event.Summary(),
			})
		})
		if err := watcher.Start(); err != nil {
			log.Fatalf("Failed to start ingest watcher: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	if watcher != nil {
		watcher.Stop()
	}
	if snapshot != nil {
		if mem, ok := index.(*vector.MemoryStore); ok {
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := snapshot.Save(saveCtx, mem); err != nil {
				log.Printf("Failed to save vector snapshot: %v", err)
			}
			saveCancel()
		}
	}

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// dataStore is the combined persistence surface the server needs from
// its storage backend.
type dataStore interface {
	storage.EventStore
	storage.AssessmentHistory
	Close() error
}

// buildStore selects the storage backend. SQLite is the default for
// single-node deployments; Postgres shares the event log between
// replicas.
func buildStore(cfg *config.Config) dataStore {
	if cfg.Storage.StorageEngine == "postgres" {
		store, err := postgres.NewStore(cfg.Storage.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect Postgres storage: %v", err)
		}
		log.Printf("Using Postgres storage backend")
		return store
	}

	store, err := sqlite.NewStore(cfg.Storage.DataPath + "/driftwatch.db")
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	return store
}

// buildEmbedder selects the embedding provider. The hash provider is a
// deterministic offline fallback with no health surface.
func buildEmbedder(cfg *config.Config) (embedding.Embedder, handlers.HealthChecker) {
	if cfg.Embedding.Provider == "hash" {
		log.Printf("Using deterministic hash embedder (dimension %d)", cfg.Storage.VectorDimension)
		return embedding.NewHashEmbedder(cfg.Storage.VectorDimension), nil
	}
	remote := embedding.NewRemoteEmbedder(embedding.RemoteConfig{
		BaseURL:   cfg.Embedding.OllamaURL,
		Model:     cfg.Embedding.EmbeddingModel,
		Dimension: cfg.Storage.VectorDimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	return remote, remote
}

// buildIndex selects the vector backend. The in-memory store optionally
// restores from and persists to a SQLite snapshot across restarts.
func buildIndex(ctx context.Context, cfg *config.Config) (vector.Index, *vector.Snapshot) {
	if cfg.Storage.VectorBackend == "postgres" {
		index, err := vectorpg.NewStore(cfg.Storage.PostgresURL, cfg.Storage.VectorDimension)
		if err != nil {
			log.Fatalf("Failed to connect pgvector backend: %v", err)
		}
		log.Printf("Using pgvector similarity store")
		return index, nil
	}

	if cfg.Storage.SnapshotPath != "" {
		snapshot, err := vector.OpenSnapshot(cfg.Storage.SnapshotPath)
		if err != nil {
			log.Fatalf("Failed to open vector snapshot: %v", err)
		}
		store, err := snapshot.Load(ctx, cfg.Storage.VectorDimension)
		if err != nil {
			log.Fatalf("Failed to restore vector snapshot: %v", err)
		}
		log.Printf("Restored vector snapshot from %s", cfg.Storage.SnapshotPath)
		return store, snapshot
	}

	store, err := vector.NewMemoryStore(cfg.Storage.VectorDimension)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	return store, nil
}
