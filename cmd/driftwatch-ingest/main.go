// Command driftwatch-ingest drops a single behavioral event into the
// ingest directory watched by driftwatch-server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/stridehq/driftwatch/internal/notify"
	"github.com/stridehq/driftwatch/pkg/types"
)

func main() {
	dir := flag.String("dir", "./data/ingest", "Ingest drop directory")
	owner := flag.String("owner", "", "Owner id (required)")
	kind := flag.String("kind", "behavior", "Event kind: behavior, checkin, goal")
	label := flag.String("label", "", "Behavior label")
	mood := flag.Float64("mood", 0, "Check-in mood (1-5)")
	energy := flag.Float64("energy", 0, "Check-in energy (1-5)")
	title := flag.String("title", "", "Goal title")
	progress := flag.Float64("progress", 0, "Goal progress (0-100)")
	completed := flag.Bool("completed", false, "Goal completed")
	when := flag.String("when", "", "Event timestamp (RFC3339, default now)")
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "owner is required")
		flag.Usage()
		os.Exit(2)
	}

	ts := time.Now()
	if *when != "" {
		parsed, err := time.Parse(time.RFC3339, *when)
		if err != nil {
			log.Fatalf("Invalid -when value: %v", err)
		}
		ts = parsed
	}

	event := &types.Event{
		OwnerID:   *owner,
		Kind:      types.EventKind(*kind),
		Timestamp: ts,
		Mood:      *mood,
		Energy:    *energy,
		Title:     *title,
		Progress:  *progress,
		Completed: *completed,
		Label:     *label,
	}

	writer := notify.NewIngestWriter(*dir)
	if err := writer.Write(event); err != nil {
		log.Fatalf("Failed to write event: %v", err)
	}
	fmt.Printf("Dropped %s event for %s into %s\n", event.Kind, event.OwnerID, *dir)
}
