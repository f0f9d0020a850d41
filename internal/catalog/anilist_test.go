package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"manhwahub/pkg/models"
)

const anilistSearchBody = `{
  "data": {"Page": {"media": [
    {
      "id": 105398,
      "title": {"romaji": "Na Honjaman Lebel-eob", "english": "Solo Leveling", "userPreferred": "Na Honjaman Lebel-eob"},
      "coverImage": {"large": "https://img.example/large.jpg", "extraLarge": "https://img.example/xl.jpg"},
      "description": "<p>E-rank hunter.</p>",
      "status": "FINISHED",
      "chapters": 179,
      "averageScore": 83,
      "genres": ["Action", "Fantasy"],
      "countryOfOrigin": "KR"
    },
    {
      "id": 101517,
      "title": {"romaji": "Sin-ui Tap", "english": null, "userPreferred": "Tower of God"},
      "coverImage": {"large": "", "extraLarge": "https://img.example/tog.jpg"},
      "description": "",
      "status": "RELEASING",
      "chapters": null,
      "averageScore": null,
      "genres": null,
      "countryOfOrigin": "KR"
    }
  ]}}
}`

func TestAniListSearchMapping(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		w.Write([]byte(anilistSearchBody))
	}))
	defer srv.Close()

	p := NewAniListProvider(srv.URL, 20)
	titles, err := p.Search(context.Background(), Query{Text: "solo leveling"})
	require.NoError(t, err)
	require.Len(t, titles, 2)

	vars := gotBody["variables"].(map[string]any)
	require.Equal(t, "solo leveling", vars["search"])

	first := titles[0]
	require.Equal(t, "105398", first.ID)
	require.Equal(t, "anilist", first.Provider)
	require.Equal(t, "Solo Leveling", first.DisplayTitle())
	require.Equal(t, models.StatusCompleted, first.Status)
	require.NotNil(t, first.Chapters)
	require.Equal(t, 179.0, *first.Chapters)
	require.NotNil(t, first.AverageScore)
	require.Equal(t, 83.0, *first.AverageScore)
	require.Equal(t, []string{"Action", "Fantasy"}, first.Genres)
	require.Equal(t, "https://img.example/large.jpg", first.CoverURL)

	second := titles[1]
	require.Equal(t, "Tower of God", second.DisplayTitle(), "null english falls back to userPreferred")
	require.Equal(t, models.StatusOngoing, second.Status)
	require.Nil(t, second.Chapters)
	require.Nil(t, second.AverageScore)
	require.NotNil(t, second.Genres, "missing genres default to empty, not nil")
	require.Empty(t, second.Genres)
	require.Equal(t, "https://img.example/tog.jpg", second.CoverURL, "extraLarge used when large is empty")
}

func TestAniListErrorsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	p := NewAniListProvider(srv.URL, 20)
	_, err := p.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestAniListTrendingPinsOrigin(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		w.Write([]byte(`{"data":{"Page":{"media":[]}}}`))
	}))
	defer srv.Close()

	p := NewAniListProvider(srv.URL, 20)
	_, err := p.Trending(context.Background(), 2)
	require.NoError(t, err)

	vars := gotBody["variables"].(map[string]any)
	require.Equal(t, "KR", vars["country"])
	require.Equal(t, float64(2), vars["page"])
	require.Equal(t, float64(20), vars["perPage"])
}
