package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	t.Run("english wins when present", func(t *testing.T) {
		ti := Title{Names: TitleNames{Preferred: "Na Honjaman Lebel-eob", English: "Solo Leveling", Native: "나 혼자만 레벨업"}}
		assert.Equal(t, "Solo Leveling", ti.DisplayTitle())
	})

	t.Run("falls back to preferred", func(t *testing.T) {
		ti := Title{Names: TitleNames{Preferred: "Omniscient Reader", Native: "전지적 독자 시점"}}
		assert.Equal(t, "Omniscient Reader", ti.DisplayTitle())
	})

	t.Run("falls back to native", func(t *testing.T) {
		ti := Title{Names: TitleNames{Native: "전지적 독자 시점"}}
		assert.Equal(t, "전지적 독자 시점", ti.DisplayTitle())
	})

	t.Run("whitespace-only english is skipped", func(t *testing.T) {
		ti := Title{Names: TitleNames{Preferred: "Tower of God", English: "  "}}
		assert.Equal(t, "Tower of God", ti.DisplayTitle())
	})
}

func TestNormalizePublicationStatus(t *testing.T) {
	cases := map[string]PublicationStatus{
		"RELEASING":        StatusOngoing,
		"Ongoing":          StatusOngoing,
		"FINISHED":         StatusCompleted,
		"completed":        StatusCompleted,
		"canceled":         StatusCancelled,
		"CANCELLED":        StatusCancelled,
		"hiatus":           StatusHiatus,
		"NOT_YET_RELEASED": StatusUnknown,
		"":                 StatusUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePublicationStatus(in), "input %q", in)
	}
}

func TestNormalizeReadingStatus(t *testing.T) {
	cases := map[string]ReadingStatus{
		"reading":      Reading,
		"Want to Read": WantToRead,
		"want_to_read": WantToRead,
		"COMPLETED":    Completed,
		"dropped":      Dropped,
		"blacklist":    "",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeReadingStatus(in), "input %q", in)
	}
}
