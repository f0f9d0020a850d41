// Package catalog gives a uniform interface over remote comic catalogs.
// Each provider maps its native response shape into models.Title; nothing
// outside this package knows what a provider's wire format looks like.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"manhwahub/pkg/models"
)

// Query carries the search parameters. All fields are optional, but a fully
// empty query is rejected before any network I/O.
type Query struct {
	Text          string
	Genre         string
	OriginCountry string
}

func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" &&
		strings.TrimSpace(q.Genre) == "" &&
		strings.TrimSpace(q.OriginCountry) == ""
}

// Provider is implemented by each concrete catalog backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]models.Title, error)
	Trending(ctx context.Context, page int) ([]models.Title, error)
}

// Client wraps a Provider with the empty-query guard and a request rate
// limiter. Public catalogs throttle per client; the limiter keeps
// concurrent resolution fan-outs inside that.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func NewClient(p Provider, log zerolog.Logger) *Client {
	return &Client{
		provider: p,
		// AniList allows ~90 req/min; the burst covers one full
		// resolution fan-out without queueing.
		limiter: rate.NewLimiter(rate.Limit(1), 12),
		log:     log,
	}
}

func (c *Client) ProviderName() string { return c.provider.Name() }

// Search queries the provider. An empty query returns nil without issuing
// a network request.
func (c *Client) Search(ctx context.Context, q Query) ([]models.Title, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	titles, err := c.provider.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", c.provider.Name(), err)
	}
	c.log.Debug().Str("provider", c.provider.Name()).Str("text", q.Text).Int("results", len(titles)).Msg("catalog search")
	return titles, nil
}

// Trending returns one fixed-size page of the provider's trending list.
// Pages are 1-based; anything lower is clamped.
func (c *Client) Trending(ctx context.Context, page int) ([]models.Title, error) {
	if page < 1 {
		page = 1
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	titles, err := c.provider.Trending(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("%s trending: %w", c.provider.Name(), err)
	}
	return titles, nil
}
