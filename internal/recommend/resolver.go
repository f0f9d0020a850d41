// Package recommend turns unstructured generative suggestions into verified,
// deduplicated catalog entries.
package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"manhwahub/internal/catalog"
	"manhwahub/internal/suggest"
	"manhwahub/pkg/models"
)

const (
	// targetCount is how many suggestions the prompt asks for.
	targetCount = 10
	// seedCap bounds how many library titles are embedded in a
	// collection-mode prompt.
	seedCap = 15
)

// Resolver orchestrates suggester output through the catalog.
// Resolve fails soft: any downstream failure yields an empty result,
// never an error to the caller.
type Resolver struct {
	Suggester suggest.Suggester
	Catalog   *catalog.Client
	Log       zerolog.Logger
}

func NewResolver(s suggest.Suggester, c *catalog.Client, log zerolog.Logger) *Resolver {
	return &Resolver{Suggester: s, Catalog: c, Log: log}
}

// Resolve produces recommendations in one of two modes. With a focus title
// it asks for works similar to that one; without, it works from the caller's
// seed collection, capped at seedCap entries (callers pass most-recent
// first). An empty seed collection in collection mode returns immediately
// without calling the generative stage.
func (r *Resolver) Resolve(ctx context.Context, seeds []models.Title, focus *models.Title) []models.RecommendedTitle {
	var prompt string
	if focus != nil {
		prompt = focusPrompt(*focus)
	} else {
		if len(seeds) == 0 {
			return nil
		}
		prompt = collectionPrompt(seeds)
	}

	suggestions, err := r.suggestWithRetry(ctx, prompt)
	if err != nil {
		r.Log.Warn().Err(err).Msg("generative stage failed, returning no recommendations")
		return nil
	}
	if len(suggestions) == 0 {
		return nil
	}

	// Per-suggestion lookups are read-only and order-independent; fan out
	// concurrently and wait for all to settle. Individual failures only
	// drop their own suggestion.
	resolved := make([]*models.Title, len(suggestions))
	g, gctx := errgroup.WithContext(ctx)
	for i, sg := range suggestions {
		g.Go(func() error {
			titles, err := r.Catalog.Search(gctx, catalog.Query{Text: sg.Title})
			if err != nil {
				r.Log.Debug().Err(err).Str("title", sg.Title).Msg("suggestion lookup failed, dropping")
				return nil
			}
			if len(titles) > 0 {
				// first hit wins
				resolved[i] = &titles[0]
			}
			return nil
		})
	}
	_ = g.Wait()

	// Dedup by resolved id in generation order: the first suggestion that
	// resolved to a given entry keeps its reason, later duplicates drop.
	seen := make(map[string]struct{}, len(suggestions))
	out := make([]models.RecommendedTitle, 0, len(suggestions))
	for i, sg := range suggestions {
		t := resolved[i]
		if t == nil {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, models.RecommendedTitle{Title: *t, Reason: sg.Reason})
	}

	r.Log.Info().Int("suggested", len(suggestions)).Int("resolved", len(out)).Msg("recommendations resolved")
	return out
}

// suggestWithRetry wraps the generative call with one bounded retry; the
// model endpoint is the most failure-prone dependency in the pipeline.
func (r *Resolver) suggestWithRetry(ctx context.Context, prompt string) ([]suggest.Suggestion, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
	), 1), ctx)

	return backoff.RetryWithData(func() ([]suggest.Suggestion, error) {
		return r.Suggester.Suggest(ctx, prompt)
	}, bo)
}

func focusPrompt(focus models.Title) string {
	return fmt.Sprintf(
		"I really enjoyed the manhwa/manga called %q. "+
			"Recommend %d similar manhwa (specifically Korean webtoons if possible) that are very similar to this specific title. "+
			"Give the exact official English title and a short one-sentence reason for each.",
		focus.DisplayTitle(), targetCount)
}

func collectionPrompt(seeds []models.Title) string {
	if len(seeds) > seedCap {
		seeds = seeds[:seedCap]
	}
	names := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if n := s.DisplayTitle(); n != "" {
			names = append(names, n)
		}
	}
	return fmt.Sprintf(
		"I have read the following manhwa/manga: %s. "+
			"Recommend %d similar manhwa (specifically Korean webtoons if possible) that I might like based on my taste. "+
			"Give the exact official English title and a short one-sentence reason for each.",
		strings.Join(names, ", "), targetCount)
}
