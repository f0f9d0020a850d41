package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"manhwahub/internal/library"
	"manhwahub/pkg/models"
)

// memBackend is a trivial in-memory Backend for transition tests.
type memBackend struct {
	data map[string][]models.LibraryEntry
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]models.LibraryEntry{}} }

func (m *memBackend) Load(_ context.Context, owner string) ([]models.LibraryEntry, error) {
	return m.data[owner], nil
}

func (m *memBackend) Save(_ context.Context, owner string, e models.LibraryEntry) error {
	out := []models.LibraryEntry{e}
	for _, x := range m.data[owner] {
		if x.Title.ID != e.Title.ID {
			out = append(out, x)
		}
	}
	m.data[owner] = out
	return nil
}

func (m *memBackend) Delete(_ context.Context, owner, titleID string) error {
	out := m.data[owner][:0]
	for _, x := range m.data[owner] {
		if x.Title.ID != titleID {
			out = append(out, x)
		}
	}
	m.data[owner] = out
	return nil
}

func authServer(t *testing.T) *Authenticator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","user":{"id":"user-42","email":"a@b.c"}}`))
	}))
	t.Cleanup(srv.Close)
	return NewAuthenticator(srv.URL, "anon", zerolog.Nop())
}

func TestManagerTransitions(t *testing.T) {
	store := library.NewStore(nil, zerolog.Nop())
	local := newMemBackend()
	cloud := newMemBackend()
	cloud.data["user-42"] = []models.LibraryEntry{
		{Title: models.Title{ID: "99"}, ReadingStatus: models.Reading, SavedAt: 10},
	}

	var transitions []string
	m := NewManager(authServer(t), store, local, func(token string) library.Backend {
		require.Equal(t, "tok", token)
		return cloud
	}, zerolog.Nop())
	m.OnTransition = func(scope string) { transitions = append(transitions, scope) }

	ctx := context.Background()
	m.StartLocal(ctx, "local:dev")
	require.Equal(t, "local:dev", m.Scope())
	require.False(t, m.Current().Cloud)

	sess, err := m.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	require.True(t, sess.Cloud)
	require.Equal(t, "user-42", m.Scope())
	require.Len(t, store.List(), 1, "cloud snapshot replaces the local view")
	require.Greater(t, sess.Generation, uint64(1))

	m.SignOut(ctx, "local:dev")
	require.Equal(t, "local:dev", m.Scope())
	require.False(t, m.Current().Cloud)
	require.Empty(t, store.List())

	require.Equal(t, []string{"local:dev", "user-42", "local:dev"}, transitions)
}

func TestManagerCloudDisabled(t *testing.T) {
	store := library.NewStore(nil, zerolog.Nop())
	m := NewManager(nil, store, newMemBackend(), nil, zerolog.Nop())

	require.False(t, m.CloudEnabled())
	_, err := m.SignIn(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, ErrCloudDisabled)
}
