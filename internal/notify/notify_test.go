package notify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// memorySink collects stored events.
type memorySink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *memorySink) StoreEvent(ctx context.Context, event *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testEvent(owner string) *types.Event {
	return &types.Event{
		OwnerID:   owner,
		Kind:      types.EventBehavior,
		Timestamp: time.Now(),
		Label:     "evening walk",
	}
}

func TestIngestWriterCreatesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewIngestWriter(dir)

	if err := w.Write(testEvent("user/1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 event file, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".event" {
		t.Errorf("expected .event extension, got %s", entries[0].Name())
	}
}

func TestIngestWriterRejectsInvalidEvent(t *testing.T) {
	w := NewIngestWriter(t.TempDir())
	if err := w.Write(&types.Event{Kind: types.EventBehavior}); err == nil {
		t.Fatal("expected validation error for event without owner")
	}
}

func TestIngestWatcherStoresIncomingEvent(t *testing.T) {
	dir := t.TempDir()
	sink := &memorySink{}
	received := make(chan *types.Event, 1)

	watcher := NewIngestWatcher(dir, sink, func(event *types.Event) {
		received <- event
	})
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Give fsnotify a moment to register
	time.Sleep(50 * time.Millisecond)

	writer := NewIngestWriter(dir)
	if err := writer.Write(testEvent("u1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case event := <-received:
		if event.OwnerID != "u1" {
			t.Errorf("expected owner u1, got %s", event.OwnerID)
		}
		if sink.count() != 1 {
			t.Errorf("expected 1 stored event, got %d", sink.count())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestIngestWatcherDrainsExisting(t *testing.T) {
	dir := t.TempDir()

	// Write events BEFORE starting watcher
	writer := NewIngestWriter(dir)
	_ = writer.Write(testEvent("drain1"))
	_ = writer.Write(testEvent("drain2"))

	sink := &memorySink{}
	watcher := NewIngestWatcher(dir, sink, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Drain should have processed both files synchronously during Start
	time.Sleep(100 * time.Millisecond)

	if sink.count() != 2 {
		t.Fatalf("expected 2 drained events, got %d", sink.count())
	}
}

func TestIngestWatcherSkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.event"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	sink := &memorySink{}
	watcher := NewIngestWatcher(dir, sink, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("malformed file should not be stored, got %d events", sink.count())
	}
	// The bad file is consumed, not retried forever.
	if _, err := os.Stat(filepath.Join(dir, "bad.event")); !os.IsNotExist(err) {
		t.Error("malformed file should be removed")
	}
}

func TestSanitizeID(t *testing.T) {
	got := sanitizeID("org:team/user")
	if got != "org_team_user" {
		t.Errorf("expected org_team_user, got %s", got)
	}
}
