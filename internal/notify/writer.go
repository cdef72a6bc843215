// Package notify provides cross-process memory event notification between
// the memory subsystem and sibling processes (the chat frontend, mainly)
// using filesystem events.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/duetware/keepsake/internal/engine"
)

// EventWriter writes memory lifecycle events as files to a shared
// directory. It implements engine.EventSink, so it plugs straight into the
// pipeline alongside the WebSocket hub.
type EventWriter struct {
	dir string
	seq atomic.Uint64
}

// NewEventWriter creates a writer that emits events to {dataDir}/events/.
func NewEventWriter(dataDir string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataDir, "events")}
}

var _ engine.EventSink = (*EventWriter)(nil)

// Publish writes an event file. Failures are logged, never surfaced: event
// delivery must not influence pipeline outcomes. Safe to call concurrently.
func (w *EventWriter) Publish(event engine.Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if err := w.write(event); err != nil {
		log.Printf("notify: %v", err)
	}
}

func (w *EventWriter) write(event engine.Event) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	filename := fmt.Sprintf("%d-%d-%s.event", event.At.UnixNano(), w.seq.Add(1), sanitize(event.Type))
	if err := os.WriteFile(filepath.Join(w.dir, filename), data, 0o600); err != nil {
		return fmt.Errorf("write event file: %w", err)
	}
	return nil
}

// sanitize replaces characters unsafe for filenames.
func sanitize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '/' || s[i] == ':' {
			out[i] = '_'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
