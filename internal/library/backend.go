package library

import (
	"context"

	"manhwahub/pkg/models"
)

// Backend is the persistence side of the store. One implementation holds
// the collection on-device, the other in a cloud table; the store treats
// both identically and is selected once per session.
type Backend interface {
	// Load returns the whole collection for one owner scope,
	// most-recently-saved first.
	Load(ctx context.Context, owner string) ([]models.LibraryEntry, error)

	// Save persists one entry keyed by (owner, entry.Title.ID),
	// replacing any previous value for that key.
	Save(ctx context.Context, owner string, entry models.LibraryEntry) error

	// Delete removes the entry for the exact (owner, titleID) key.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, owner, titleID string) error
}
