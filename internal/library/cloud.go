package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"manhwahub/pkg/models"
)

// CloudBackend persists the collection in a Supabase-style REST table.
//
// Upsert is one conditional insert-or-replace on the (owner_id, title_id)
// composite key; delete matches the same key exactly; load selects ordered
// by saved_at descending. Writes get one bounded retry with backoff since
// they run fire-and-forget behind the optimistic snapshot.
type CloudBackend struct {
	baseURL string
	apiKey  string // project anon key
	token   string // session access token
	table   string
	client  *http.Client
	log     zerolog.Logger
}

func NewCloudBackend(baseURL, apiKey, token, table string, log zerolog.Logger) *CloudBackend {
	if table == "" {
		table = "user_library"
	}
	return &CloudBackend{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
		table:   table,
		client:  &http.Client{Timeout: 12 * time.Second},
		log:     log,
	}
}

// cloudRow is the provider-side row shape. The full Title travels as a JSON
// column so listing needs no catalog round trip.
type cloudRow struct {
	OwnerID   string               `json:"owner_id"`
	TitleID   string               `json:"title_id"`
	TitleData models.Title         `json:"title_data"`
	Status    models.ReadingStatus `json:"status"`
	SavedAt   int64                `json:"saved_at"`
}

func (b *CloudBackend) Load(ctx context.Context, owner string) ([]models.LibraryEntry, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?owner_id=eq.%s&order=saved_at.desc",
		b.baseURL, b.table, url.QueryEscape(owner))

	body, err := b.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("load cloud library: %w", err)
	}

	var rows []cloudRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode cloud library: %w", err)
	}

	entries := make([]models.LibraryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.LibraryEntry{
			Title:         r.TitleData,
			ReadingStatus: r.Status,
			SavedAt:       r.SavedAt,
		})
	}
	return entries, nil
}

func (b *CloudBackend) Save(ctx context.Context, owner string, entry models.LibraryEntry) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?on_conflict=owner_id,title_id", b.baseURL, b.table)
	payload, err := json.Marshal([]cloudRow{{
		OwnerID:   owner,
		TitleID:   entry.Title.ID,
		TitleData: entry.Title,
		Status:    entry.ReadingStatus,
		SavedAt:   entry.SavedAt,
	}})
	if err != nil {
		return fmt.Errorf("encode cloud row: %w", err)
	}

	headers := map[string]string{
		"Prefer": "resolution=merge-duplicates,return=minimal",
	}
	return b.retry(ctx, func() error {
		_, err := b.do(ctx, http.MethodPost, endpoint, payload, headers)
		if err != nil {
			return fmt.Errorf("upsert cloud row: %w", err)
		}
		return nil
	})
}

func (b *CloudBackend) Delete(ctx context.Context, owner, titleID string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?owner_id=eq.%s&title_id=eq.%s",
		b.baseURL, b.table, url.QueryEscape(owner), url.QueryEscape(titleID))

	return b.retry(ctx, func() error {
		_, err := b.do(ctx, http.MethodDelete, endpoint, nil, nil)
		if err != nil {
			return fmt.Errorf("delete cloud row: %w", err)
		}
		return nil
	})
}

func (b *CloudBackend) retry(ctx context.Context, op func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(300*time.Millisecond),
	), 1), ctx)
	return backoff.Retry(op, bo)
}

func (b *CloudBackend) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
