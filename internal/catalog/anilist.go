package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"manhwahub/pkg/models"
)

const anilistName = "anilist"

// trendingOrigin pins the trending feed to Korean-origin webtoons.
const trendingOrigin = "KR"

const anilistSearchQuery = `
query ($search: String, $genre: String, $country: CountryCode, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    media(search: $search, genre: $genre, countryOfOrigin: $country, type: MANGA, sort: SEARCH_MATCH) {
      id
      title { romaji english userPreferred }
      coverImage { large extraLarge }
      description
      status
      chapters
      averageScore
      genres
      countryOfOrigin
    }
  }
}`

const anilistTrendingQuery = `
query ($page: Int, $perPage: Int, $country: CountryCode) {
  Page(page: $page, perPage: $perPage) {
    media(type: MANGA, sort: TRENDING_DESC, countryOfOrigin: $country) {
      id
      title { romaji english userPreferred }
      coverImage { large extraLarge }
      description
      status
      chapters
      averageScore
      genres
      countryOfOrigin
    }
  }
}`

// AniListProvider talks to an AniList-style GraphQL catalog: one POST
// endpoint, typed query/variables, data under {data:{Page:{media:[...]}}}
// and failures under an errors array.
type AniListProvider struct {
	Endpoint string
	PageSize int
	Client   *http.Client
}

func NewAniListProvider(endpoint string, pageSize int) *AniListProvider {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &AniListProvider{
		Endpoint: endpoint,
		PageSize: pageSize,
		Client:   &http.Client{Timeout: 12 * time.Second},
	}
}

func (p *AniListProvider) Name() string { return anilistName }

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji        string `json:"romaji"`
		English       string `json:"english"`
		UserPreferred string `json:"userPreferred"`
	} `json:"title"`
	CoverImage struct {
		Large      string `json:"large"`
		ExtraLarge string `json:"extraLarge"`
	} `json:"coverImage"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	Chapters        *float64 `json:"chapters"`
	AverageScore    *float64 `json:"averageScore"`
	Genres          []string `json:"genres"`
	CountryOfOrigin string   `json:"countryOfOrigin"`
}

type anilistEnvelope struct {
	Data struct {
		Page struct {
			Media []anilistMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *AniListProvider) Search(ctx context.Context, q Query) ([]models.Title, error) {
	vars := map[string]any{
		"page":    1,
		"perPage": p.PageSize,
	}
	if q.Text != "" {
		vars["search"] = q.Text
	}
	if q.Genre != "" {
		vars["genre"] = q.Genre
	}
	if q.OriginCountry != "" {
		vars["country"] = q.OriginCountry
	}
	return p.post(ctx, anilistSearchQuery, vars)
}

func (p *AniListProvider) Trending(ctx context.Context, page int) ([]models.Title, error) {
	vars := map[string]any{
		"page":    page,
		"perPage": p.PageSize,
		"country": trendingOrigin,
	}
	return p.post(ctx, anilistTrendingQuery, vars)
}

func (p *AniListProvider) post(ctx context.Context, query string, vars map[string]any) ([]models.Title, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var env anilistEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("graphql: %s", env.Errors[0].Message)
	}

	out := make([]models.Title, 0, len(env.Data.Page.Media))
	for _, m := range env.Data.Page.Media {
		if m.ID == 0 {
			continue
		}
		out = append(out, p.mapMedia(m))
	}
	return out, nil
}

func (p *AniListProvider) mapMedia(m anilistMedia) models.Title {
	cover := m.CoverImage.Large
	if cover == "" {
		cover = m.CoverImage.ExtraLarge
	}

	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}

	return models.Title{
		ID:       strconv.Itoa(m.ID),
		Provider: anilistName,
		Names: models.TitleNames{
			Preferred: m.Title.UserPreferred,
			English:   m.Title.English,
			Native:    m.Title.Romaji,
		},
		CoverURL:      cover,
		Description:   m.Description,
		Status:        models.NormalizePublicationStatus(m.Status),
		Chapters:      m.Chapters,
		AverageScore:  m.AverageScore,
		Genres:        genres,
		OriginCountry: m.CountryOfOrigin,
	}
}
