// Package notify provides cross-process event ingestion over the
// filesystem: producers drop .event files into a shared directory and
// the watcher consumes them into the event store.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// IngestWriter writes event files to the drop directory.
type IngestWriter struct {
	dir string
}

// NewIngestWriter creates a writer that emits events to the given
// drop directory.
func NewIngestWriter(dir string) *IngestWriter {
	return &IngestWriter{dir: dir}
}

// Write drops a single event file. Safe to call concurrently.
// Errors are returned but not fatal.
func (w *IngestWriter) Write(event *types.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("notify: invalid event: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	filename := fmt.Sprintf("%d-%s.event", time.Now().UnixNano(), sanitizeID(event.OwnerID))
	path := filepath.Join(w.dir, filename)
	return os.WriteFile(path, data, 0o600)
}

// sanitizeID replaces characters unsafe for filenames.
func sanitizeID(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		if id[i] == '/' || id[i] == ':' {
			out[i] = '_'
		} else {
			out[i] = id[i]
		}
	}
	return string(out)
}
