package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operations replayed against the remote task store.
const (
	OpSave           = "save"
	OpComplete       = "complete"
	OpActivate       = "activate"
	OpDelete         = "delete"
	OpDeleteAll      = "delete_all"
	OpClearCompleted = "clear_completed"
)

// Item is a remote write that could not be applied yet. Data carries the task
// JSON for value operations and is empty for operations addressed by TaskID.
type Item struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id,omitempty"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data,omitempty"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	seq uint64
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

// Seq is the queue position assigned on enqueue; zero for items not read from a Store.
func (i Item) Seq() uint64 {
	return i.seq
}
