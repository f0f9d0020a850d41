// Package suggest turns a natural-language prompt into a schema-validated
// list of title suggestions via a generative text model.
package suggest

import (
	"context"
	"errors"
	"strings"

	json "github.com/goccy/go-json"
)

// Suggestion is one generative-stage result. Title is expected to be an
// official display name suitable for a catalog search; Reason is free text.
type Suggestion struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Suggester is the generative backend. Implementations return the parsed
// suggestion list or an error; they never return partial garbage.
type Suggester interface {
	Suggest(ctx context.Context, prompt string) ([]Suggestion, error)
	Enabled() bool
}

var ErrUnparsable = errors.New("suggestion payload not parsable")

// ParseSuggestions decodes a model response into suggestions. Accepted
// shapes: a bare JSON array, or an object wrapping the array under
// "recommendations" or "suggestions". Markdown code fences are stripped and
// the parse retried once before giving up.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	out, err := parseOnce(raw)
	if err == nil {
		return out, nil
	}

	stripped := stripFences(raw)
	if stripped == raw {
		return nil, err
	}
	out, err = parseOnce(stripped)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseOnce(raw string) ([]Suggestion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrUnparsable
	}

	var arr []Suggestion
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		return filter(arr), nil
	}

	// pointers distinguish a present-but-empty array, which is a valid
	// "nothing to recommend" answer, from an unrelated object
	var env struct {
		Recommendations *[]Suggestion `json:"recommendations"`
		Suggestions     *[]Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		if env.Recommendations != nil {
			return filter(*env.Recommendations), nil
		}
		if env.Suggestions != nil {
			return filter(*env.Suggestions), nil
		}
	}
	return nil, ErrUnparsable
}

// filter drops entries with no usable title.
func filter(in []Suggestion) []Suggestion {
	out := in[:0]
	for _, s := range in {
		s.Title = strings.TrimSpace(s.Title)
		s.Reason = strings.TrimSpace(s.Reason)
		if s.Title != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripFences removes markdown code fencing the model sometimes wraps
// around its JSON despite the schema constraint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
