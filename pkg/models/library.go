package models

// LibraryEntry is a Title the user has explicitly tracked, with a status.
//
// Entries are uniquely keyed by (owner scope, Title.ID). SavedAt is unix
// milliseconds and strictly increases on every rewrite of the same key;
// the cloud backend orders listings by it.
type LibraryEntry struct {
	Title         Title         `json:"title"`
	ReadingStatus ReadingStatus `json:"reading_status"`
	SavedAt       int64         `json:"saved_at"`
}

// RecommendedTitle is a Title plus the generative stage's one-line reason.
// It only exists as pipeline output and is never persisted.
type RecommendedTitle struct {
	Title
	Reason string `json:"recommendation_reason"`
}
