package models

import "strings"

// Title is the canonical catalog record for one comic series.
//
// Every provider response is mapped into this structure first; nothing
// downstream of a CatalogProvider ever sees a provider-native shape.
// IDs are only unique within one provider, so the provider name travels
// with the record.
type Title struct {
	ID            string            `json:"id"`                       // provider-scoped key
	Provider      string            `json:"provider"`                 // e.g. "anilist", "comick"
	Names         TitleNames        `json:"names"`                    // title variants
	CoverURL      string            `json:"cover_url,omitempty"`      // cover image URL (if any)
	Description   string            `json:"description,omitempty"`    // raw, may contain markup
	Status        PublicationStatus `json:"status"`                   // normalized publication status
	Chapters      *float64          `json:"chapters,omitempty"`       // latest known chapter, not a final total
	AverageScore  *float64          `json:"average_score,omitempty"`  // 0-100
	Genres        []string          `json:"genres"`                   // normalized genre list
	OriginCountry string            `json:"origin_country,omitempty"` // ISO country code, e.g. "KR"
}

// TitleNames holds the title variants a catalog may carry for one series.
type TitleNames struct {
	Preferred string `json:"preferred"`         // provider's user-preferred spelling
	English   string `json:"english,omitempty"` // localized English title
	Native    string `json:"native,omitempty"`  // original-script / romanized title
}

// DisplayTitle resolves the name shown to users and embedded in prompts:
// English first, then the provider-preferred spelling, then the native one.
func (t Title) DisplayTitle() string {
	if s := strings.TrimSpace(t.Names.English); s != "" {
		return s
	}
	if s := strings.TrimSpace(t.Names.Preferred); s != "" {
		return s
	}
	return strings.TrimSpace(t.Names.Native)
}

// PublicationStatus is the closed set of publication states.
type PublicationStatus string

const (
	StatusOngoing   PublicationStatus = "ongoing"
	StatusCompleted PublicationStatus = "completed"
	StatusCancelled PublicationStatus = "cancelled"
	StatusHiatus    PublicationStatus = "hiatus"
	StatusUnknown   PublicationStatus = "unknown"
)

// NormalizePublicationStatus maps provider status codes into the closed enum.
// Unrecognized values collapse to StatusUnknown instead of failing the row.
func NormalizePublicationStatus(s string) PublicationStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ongoing", "releasing":
		return StatusOngoing
	case "completed", "finished":
		return StatusCompleted
	case "cancelled", "canceled":
		return StatusCancelled
	case "hiatus":
		return StatusHiatus
	default:
		return StatusUnknown
	}
}
