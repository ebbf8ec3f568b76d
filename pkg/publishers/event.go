package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/ito-mmj/misskey-sample/pkg/misskey"
)

// Event kinds.
const (
	KindCreated  = "created"
	KindTimeline = "timeline"
)

// Event represents the payload published downstream.
type Event struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	Instance    string       `json:"instance"`
	Note        misskey.Note `json:"note"`
	CollectedAt time.Time    `json:"collected_at"`
}

// NewEvent constructs an Event for a note seen on the given instance.
func NewEvent(kind, instance string, note misskey.Note) Event {
	return Event{
		ID:          uuid.New().String(),
		Kind:        kind,
		Instance:    instance,
		Note:        note,
		CollectedAt: time.Now().UTC(),
	}
}
