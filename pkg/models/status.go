package models

import "strings"

// ReadingStatus is the user-assigned tracking state for a library entry.
// There is no lifecycle: any value may replace any other at any time.
type ReadingStatus string

const (
	WantToRead ReadingStatus = "want_to_read"
	Reading    ReadingStatus = "reading"
	Completed  ReadingStatus = "completed"
	Dropped    ReadingStatus = "dropped"
)

// NormalizeReadingStatus maps loose user input onto the closed enum.
// Returns "" for anything unrecognized.
func NormalizeReadingStatus(s string) ReadingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "want to read", "want_to_read", "wanttoread", "plan_to_read", "planned":
		return WantToRead
	case "reading":
		return Reading
	case "completed":
		return Completed
	case "dropped":
		return Dropped
	default:
		return ""
	}
}
