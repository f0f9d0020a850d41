package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"manhwahub/pkg/models"
)

const comickName = "comick"

const comickCoverBase = "https://meo.comick.pictures"

// ComickProvider talks to a Comick-style REST catalog: GET with query
// parameters, search results as a flat JSON array and the trending feed
// wrapped in a {rank:[...]} envelope.
type ComickProvider struct {
	BaseURL  string
	PageSize int
	Client   *http.Client
}

func NewComickProvider(baseURL string, pageSize int) *ComickProvider {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &ComickProvider{
		BaseURL:  baseURL,
		PageSize: pageSize,
		Client:   &http.Client{Timeout: 12 * time.Second},
	}
}

func (p *ComickProvider) Name() string { return comickName }

type comickItem struct {
	HID         string `json:"hid"`
	Title       string `json:"title"`
	Desc        string `json:"desc"`
	Status      int    `json:"status"` // 1 ongoing, 2 completed, 3 cancelled, 4 hiatus
	LastChapter string `json:"last_chapter"`
	Rating      string `json:"rating"` // 1-10 scale as string
	Country     string `json:"country"`
	CoverURL    string `json:"cover_url"`
	MDCovers    []struct {
		B2Key string `json:"b2key"`
	} `json:"md_covers"`
	MDGenres []struct {
		Name string `json:"name"`
	} `json:"md_genres"`
}

func (p *ComickProvider) Search(ctx context.Context, q Query) ([]models.Title, error) {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	v.Set("type", "comic")
	country := q.OriginCountry
	if country == "" {
		country = "kr"
	}
	v.Set("country", country)
	if q.Genre != "" {
		v.Set("genres", q.Genre)
	}
	v.Set("limit", strconv.Itoa(p.PageSize))

	body, err := p.get(ctx, "/search?"+v.Encode())
	if err != nil {
		return nil, err
	}

	var items []comickItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	return p.mapItems(items), nil
}

func (p *ComickProvider) Trending(ctx context.Context, page int) ([]models.Title, error) {
	v := url.Values{}
	v.Set("type", "trending")
	v.Set("comic_types", "manhwa")
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(p.PageSize))
	v.Set("accept_mature_content", "false")

	body, err := p.get(ctx, "/top?"+v.Encode())
	if err != nil {
		return nil, err
	}

	// "rank" carries the list on the top endpoint
	var env struct {
		Rank []comickItem `json:"rank"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode trending: %w", err)
	}
	return p.mapItems(env.Rank), nil
}

func (p *ComickProvider) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
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
	return body, nil
}

func (p *ComickProvider) mapItems(items []comickItem) []models.Title {
	out := make([]models.Title, 0, len(items))
	for _, it := range items {
		if it.HID == "" {
			continue
		}
		out = append(out, p.mapItem(it))
	}
	return out
}

var comickStatus = map[int]models.PublicationStatus{
	1: models.StatusOngoing,
	2: models.StatusCompleted,
	3: models.StatusCancelled,
	4: models.StatusHiatus,
}

func (p *ComickProvider) mapItem(it comickItem) models.Title {
	cover := ""
	if len(it.MDCovers) > 0 && it.MDCovers[0].B2Key != "" {
		cover = comickCoverBase + "/" + it.MDCovers[0].B2Key
	} else if it.CoverURL != "" {
		cover = it.CoverURL
	}

	status, ok := comickStatus[it.Status]
	if !ok {
		status = models.StatusUnknown
	}

	// last_chapter is the latest known chapter, possibly fractional ("150.5")
	var chapters *float64
	if it.LastChapter != "" {
		if f, err := strconv.ParseFloat(it.LastChapter, 64); err == nil {
			chapters = &f
		}
	}

	// rating arrives on a 1-10 scale; normalize to 0-100
	var score *float64
	if it.Rating != "" {
		if f, err := strconv.ParseFloat(it.Rating, 64); err == nil {
			s := f * 10
			score = &s
		}
	}

	genres := make([]string, 0, len(it.MDGenres))
	for _, g := range it.MDGenres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}

	country := it.Country
	if country == "" {
		country = "KR"
	}

	return models.Title{
		ID:       it.HID,
		Provider: comickName,
		Names: models.TitleNames{
			// Comick carries a single main title
			Preferred: it.Title,
			English:   it.Title,
			Native:    it.Title,
		},
		CoverURL:      cover,
		Description:   it.Desc,
		Status:        status,
		Chapters:      chapters,
		AverageScore:  score,
		Genres:        genres,
		OriginCountry: country,
	}
}
