package notify

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/pkg/types"
)

// storeTimeout bounds each event store call made by the watcher.
const storeTimeout = 5 * time.Second

// IngestWatcher watches the drop directory and stores incoming events.
type IngestWatcher struct {
	dir      string
	sink     storage.EventSink
	callback func(event *types.Event)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewIngestWatcher creates a watcher over the drop directory. The
// optional callback fires after each event is stored, letting callers
// chain pattern indexing or broadcasts.
func NewIngestWatcher(dir string, sink storage.EventSink, callback func(event *types.Event)) *IngestWatcher {
	return &IngestWatcher{
		dir:      dir,
		sink:     sink,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. It drains any existing event files first,
// then watches for new ones. Call Stop() to clean up.
func (iw *IngestWatcher) Start() error {
	if err := os.MkdirAll(iw.dir, 0o700); err != nil {
		return err
	}

	iw.drainExisting()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(iw.dir); err != nil {
		_ = w.Close()
		return err
	}
	iw.watcher = w

	go iw.loop()
	log.Printf("notify: watching %s for incoming events", iw.dir)
	return nil
}

// Stop shuts down the watcher.
func (iw *IngestWatcher) Stop() {
	if iw.watcher != nil {
		_ = iw.watcher.Close()
	}
	<-iw.done
}

func (iw *IngestWatcher) loop() {
	defer close(iw.done)
	for {
		select {
		case evt, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 && strings.HasSuffix(evt.Name, ".event") {
				iw.processFile(evt.Name)
			}
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

func (iw *IngestWatcher) drainExisting() {
	entries, err := os.ReadDir(iw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".event") {
			iw.processFile(filepath.Join(iw.dir, entry.Name()))
		}
	}
}

func (iw *IngestWatcher) processFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // file already consumed by another process
	}
	_ = os.Remove(path)

	var event types.Event
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("notify: invalid event file %s: %v", filepath.Base(path), err)
		return
	}
	if err := event.Validate(); err != nil {
		log.Printf("notify: rejected event file %s: %v", filepath.Base(path), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := iw.sink.StoreEvent(ctx, &event); err != nil {
		log.Printf("notify: store event for %s: %v", event.OwnerID, err)
		return
	}
	if iw.callback != nil {
		iw.callback(&event)
	}
}
