package library

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"manhwahub/internal/sync"
	"manhwahub/pkg/models"
)

// fakeBackend records writes and can be made to fail or block.
type fakeBackend struct {
	mu       stdsync.Mutex
	data     map[string][]models.LibraryEntry // owner -> entries
	failAll  bool
	gate     chan struct{} // when set, Load blocks until closed
	saveGate chan struct{} // when set, the first Save blocks until closed
	saves    int
	deletes  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string][]models.LibraryEntry{}}
}

func (f *fakeBackend) Load(ctx context.Context, owner string) ([]models.LibraryEntry, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, context.DeadlineExceeded
	}
	out := make([]models.LibraryEntry, len(f.data[owner]))
	copy(out, f.data[owner])
	return out, nil
}

func (f *fakeBackend) Save(ctx context.Context, owner string, entry models.LibraryEntry) error {
	f.mu.Lock()
	f.saves++
	first := f.saves == 1
	gate := f.saveGate
	if f.failAll {
		f.mu.Unlock()
		return context.DeadlineExceeded
	}
	f.mu.Unlock()

	if first && gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.data[owner]
	out := []models.LibraryEntry{entry}
	for _, e := range entries {
		if e.Title.ID != entry.Title.ID {
			out = append(out, e)
		}
	}
	f.data[owner] = out
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, owner, titleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failAll {
		return context.DeadlineExceeded
	}
	entries := f.data[owner]
	out := entries[:0]
	for _, e := range entries {
		if e.Title.ID != titleID {
			out = append(out, e)
		}
	}
	f.data[owner] = out
	return nil
}

func title(id, name string) models.Title {
	return models.Title{ID: id, Provider: "anilist", Names: models.TitleNames{English: name}}
}

func boundStore(t *testing.T, owner string, b Backend) *Store {
	t.Helper()
	s := NewStore(nil, zerolog.Nop())
	s.Bind(context.Background(), owner, b)
	return s
}

func TestUpsertIdempotence(t *testing.T) {
	s := boundStore(t, "local:dev", newFakeBackend())

	s.Upsert(context.Background(), title("10", "Solo Leveling"), models.Reading)
	first := s.List()[0].SavedAt

	s.Upsert(context.Background(), title("10", "Solo Leveling"), models.Completed)

	entries := s.List()
	require.Len(t, entries, 1, "same key replaces in place")
	require.Equal(t, models.Completed, entries[0].ReadingStatus)
	require.Greater(t, entries[0].SavedAt, first, "saved_at strictly increases on rewrite")
}

func TestOptimisticVisibility(t *testing.T) {
	b := newFakeBackend()
	b.failAll = true // backend is down the whole time
	s := NewStore(nil, zerolog.Nop())
	s.Bind(context.Background(), "local:dev", b)

	s.Upsert(context.Background(), title("10", "Solo Leveling"), models.Reading)

	st, ok := s.StatusOf("10")
	require.True(t, ok, "upsert visible immediately, before backend confirmation")
	require.Equal(t, models.Reading, st)
	require.Len(t, s.List(), 1)

	s.Remove(context.Background(), "10")
	_, ok = s.StatusOf("10")
	require.False(t, ok, "remove visible immediately")
	require.Empty(t, s.List())
}

func TestListOrderMostRecentFirst(t *testing.T) {
	s := boundStore(t, "local:dev", newFakeBackend())

	s.Upsert(context.Background(), title("1", "A"), models.Reading)
	s.Upsert(context.Background(), title("2", "B"), models.Reading)
	s.Upsert(context.Background(), title("3", "C"), models.Reading)
	s.Upsert(context.Background(), title("1", "A"), models.Completed) // refresh A

	got := s.List()
	require.Equal(t, []string{"1", "3", "2"}, []string{got[0].Title.ID, got[1].Title.ID, got[2].Title.ID})
}

func TestScopeIsolation(t *testing.T) {
	b := newFakeBackend()
	s := boundStore(t, "local:dev", b)
	s.Upsert(context.Background(), title("10", "A"), models.Reading)

	// wait for the fire-and-forget save so the backend holds the row
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.data["local:dev"]) == 1
	}, time.Second, 5*time.Millisecond)

	s.Bind(context.Background(), "user-42", b)
	require.Empty(t, s.List(), "other scope's entries are never visible")
	_, ok := s.StatusOf("10")
	require.False(t, ok)

	s.Bind(context.Background(), "local:dev", b)
	require.Len(t, s.List(), 1, "signing back restores the on-device view")
}

func TestBindFullReplaceNotMerge(t *testing.T) {
	b := newFakeBackend()
	b.data["cloud-user"] = []models.LibraryEntry{
		{Title: title("77", "Cloud Only"), ReadingStatus: models.Reading, SavedAt: 100},
	}

	s := boundStore(t, "local:dev", b)
	s.Upsert(context.Background(), title("10", "Local Only"), models.Reading)

	s.Bind(context.Background(), "cloud-user", b)

	got := s.List()
	require.Len(t, got, 1)
	require.Equal(t, "77", got[0].Title.ID, "local entries are not merged into the cloud view")
}

func TestStaleLoadDiscarded(t *testing.T) {
	slow := newFakeBackend()
	slow.gate = make(chan struct{})
	slow.data["old-user"] = []models.LibraryEntry{
		{Title: title("1", "Stale"), ReadingStatus: models.Reading, SavedAt: 50},
	}
	fast := newFakeBackend()
	fast.data["new-user"] = []models.LibraryEntry{
		{Title: title("2", "Fresh"), ReadingStatus: models.Reading, SavedAt: 60},
	}

	s := NewStore(nil, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		s.Bind(context.Background(), "old-user", slow)
		close(done)
	}()

	// a newer transition starts while the first load is still in flight
	time.Sleep(20 * time.Millisecond)
	s.Bind(context.Background(), "new-user", fast)

	close(slow.gate)
	<-done

	got := s.List()
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].Title.ID, "late load from the older session must not clobber the newer one")
	require.Equal(t, "new-user", s.Owner())
}

func TestLoadFailureKeepsEmptySnapshotNotError(t *testing.T) {
	b := newFakeBackend()
	b.failAll = true
	s := NewStore(nil, zerolog.Nop())
	s.Bind(context.Background(), "local:dev", b)

	require.Empty(t, s.List(), "list never errors, degraded snapshot instead")
}

func TestBackendWriteFailureKeepsOptimisticState(t *testing.T) {
	b := newFakeBackend()
	s := boundStore(t, "local:dev", b)

	b.mu.Lock()
	b.failAll = true
	b.mu.Unlock()

	s.Upsert(context.Background(), title("10", "A"), models.Reading)

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.saves >= 1
	}, time.Second, 5*time.Millisecond)

	st, ok := s.StatusOf("10")
	require.True(t, ok, "optimistic state retained after failed write")
	require.Equal(t, models.Reading, st)
}

func TestRapidRewriteDurableStateMatchesSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.saveGate = make(chan struct{}) // stall the first write mid-flight
	s := boundStore(t, "local:dev", b)

	s.Upsert(context.Background(), title("10", "A"), models.Reading)
	s.Upsert(context.Background(), title("10", "A"), models.Completed)

	close(b.saveGate)

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.saves == 2
	}, time.Second, 5*time.Millisecond)

	st, ok := s.StatusOf("10")
	require.True(t, ok)
	require.Equal(t, models.Completed, st)
	wantStamp := s.List()[0].SavedAt

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.data["local:dev"], 1)
	require.Equal(t, models.Completed, b.data["local:dev"][0].ReadingStatus,
		"the last rewrite of a key must also be the last to reach the backend")
	require.Equal(t, wantStamp, b.data["local:dev"][0].SavedAt)
}

// recordingPublisher captures feed events in arrival order.
type recordingPublisher struct {
	mu     stdsync.Mutex
	events []sync.LibraryEvent
}

func (p *recordingPublisher) Publish(ev sync.LibraryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func TestEventOrderMatchesMutationOrder(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(pub, zerolog.Nop())
	s.Bind(context.Background(), "local:dev", newFakeBackend())

	s.Upsert(context.Background(), title("10", "A"), models.Reading)
	s.Remove(context.Background(), "10")

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) == 2
	}, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, sync.EventLibraryUpdate, pub.events[0].Type)
	require.Equal(t, sync.EventLibraryDelete, pub.events[1].Type)
	require.Equal(t, "local:dev", pub.events[0].OwnerScope)
}

func TestUnboundStoreDropsMutations(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	s.Upsert(context.Background(), title("10", "A"), models.Reading)
	s.Remove(context.Background(), "10")
	require.Empty(t, s.List())
}
