package sync

import (
	"time"

	"manhwahub/pkg/models"
)

const (
	EventLibraryUpdate = "library.update"
	EventLibraryDelete = "library.delete"
)

// LibraryEvent is broadcast to connected feed clients whenever the library
// store applies an optimistic mutation. Backend confirmation is not awaited;
// the event reflects the in-memory state.
type LibraryEvent struct {
	Type       string               `json:"type"` // EventLibraryUpdate or EventLibraryDelete
	OwnerScope string               `json:"owner_scope"`
	TitleID    string               `json:"title_id"`
	Status     models.ReadingStatus `json:"status,omitempty"`
	SavedAt    int64                `json:"saved_at,omitempty"`
	At         time.Time            `json:"at"`
}
