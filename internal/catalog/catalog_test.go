package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestClientEmptyQueryGuard(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{"Page":{"media":[]}}}`))
	}))
	defer srv.Close()

	client := NewClient(NewAniListProvider(srv.URL, 20), zerolog.Nop())

	titles, err := client.Search(context.Background(), Query{})
	require.NoError(t, err)
	require.Empty(t, titles)
	require.Zero(t, calls.Load(), "empty query must not issue a network request")

	titles, err = client.Search(context.Background(), Query{Text: "   "})
	require.NoError(t, err)
	require.Empty(t, titles)
	require.Zero(t, calls.Load())
}

func TestClientFiltersAloneReachProvider(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{"Page":{"media":[]}}}`))
	}))
	defer srv.Close()

	client := NewClient(NewAniListProvider(srv.URL, 20), zerolog.Nop())

	_, err := client.Search(context.Background(), Query{Genre: "Action"})
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())
}

func TestClientTrendingClampsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"Page":{"media":[]}}}`))
	}))
	defer srv.Close()

	client := NewClient(NewAniListProvider(srv.URL, 20), zerolog.Nop())
	_, err := client.Trending(context.Background(), -3)
	require.NoError(t, err)
}
