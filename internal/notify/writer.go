// Package notify carries "directory changed" signals between rollcall
// processes using files in a shared events directory. Writers (the import
// command, an admin tool) drop one small JSON file per change; the serving
// process watches the directory and schedules an index rebuild.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event types.
const (
	EntityChanged     = "entity_changed"
	EntityDeleted     = "entity_deleted"
	ActivityBooked    = "activity_booked"
	ActivityCancelled = "activity_cancelled"
	DirectoryImported = "directory_imported"
)

// Event is the payload written to an event file. EntityID is zero for
// directory-wide events.
type Event struct {
	Type     string `json:"type"`
	EntityID int64  `json:"entity_id,omitempty"`
	Time     int64  `json:"time"`
}

// EventWriter writes event files to {dataPath}/events/.
type EventWriter struct {
	dir string
}

// NewEventWriter creates a writer that emits events to {dataPath}/events/.
func NewEventWriter(dataPath string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataPath, "events")}
}

// Notify writes an event file. The file is written under a temporary name and
// renamed so a watcher never reads a partial payload. Safe to call concurrently.
func (w *EventWriter) Notify(eventType string, entityID int64) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	evt := Event{
		Type:     eventType,
		EntityID: entityID,
		Time:     time.Now().UnixNano(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	name := fmt.Sprintf("%d-%d", evt.Time, entityID)
	tmp := filepath.Join(w.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("notify: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filepath.Join(w.dir, name+".event")); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notify: publish %s: %w", name, err)
	}
	return nil
}
