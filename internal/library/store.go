// Package library owns the authoritative set of the user's tracked titles.
//
// The in-memory snapshot is the only shared mutable state and belongs
// exclusively to the Store; consumers mutate it through Upsert/Remove only.
// Mutations apply optimistically: the snapshot changes before any backend
// write is confirmed, and a failed backend write keeps the optimistic state
// (logged, not rolled back). Backend writes and feed events drain through
// one ordered flush queue, so the last rewrite of a key is also the last
// one to reach the backend and the feed.
package library

import (
	"context"
	"sort"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"manhwahub/internal/sync"
	"manhwahub/pkg/models"
)

const writeTimeout = 10 * time.Second

// Publisher receives change events after each optimistic mutation.
// The sync hub implements it; a nil publisher means no feed.
type Publisher interface {
	Publish(ev sync.LibraryEvent)
}

type Store struct {
	mu      stdsync.RWMutex
	backend Backend
	owner   string
	gen     uint64

	entries []models.LibraryEntry           // SavedAt desc
	index   map[string]models.ReadingStatus // titleID -> status

	lastStamp int64 // highest SavedAt handed out, for strict monotonicity

	events Publisher
	log    zerolog.Logger

	writeQ chan func() // ordered backend writes and event publishes

	now func() time.Time // test hook
}

// NewStore builds an unbound store. Call Bind before use; until then every
// read sees an empty snapshot and mutations are dropped.
func NewStore(events Publisher, log zerolog.Logger) *Store {
	s := &Store{
		index:  make(map[string]models.ReadingStatus),
		events: events,
		log:    log,
		writeQ: make(chan func(), 128),
		now:    time.Now,
	}
	go s.flush()
	return s
}

// flush applies queued writes and event publishes one at a time, in the
// order mutations committed to the snapshot.
func (s *Store) flush() {
	for job := range s.writeQ {
		job()
	}
}

// Bind points the store at a new session scope and performs a full snapshot
// replace from the backend. Entries from the previous scope are discarded
// from view (they stay wherever their backend persisted them).
//
// A load racing a newer Bind is discarded: the generation recorded before
// the load must still be current when the result commits. The returned
// generation identifies this binding.
func (s *Store) Bind(ctx context.Context, owner string, backend Backend) uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.owner = owner
	s.backend = backend
	s.entries = nil
	s.index = make(map[string]models.ReadingStatus)
	s.mu.Unlock()

	entries, err := backend.Load(ctx, owner)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", owner).Msg("library load failed, keeping empty snapshot")
		return gen
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].SavedAt > entries[j].SavedAt })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// a newer session transition started while we were loading
		s.log.Debug().Str("owner", owner).Msg("discarding stale library load")
		return gen
	}
	s.entries = entries
	s.index = make(map[string]models.ReadingStatus, len(entries))
	for _, e := range entries {
		s.index[e.Title.ID] = e.ReadingStatus
		if e.SavedAt > s.lastStamp {
			s.lastStamp = e.SavedAt
		}
	}
	s.log.Info().Str("owner", owner).Int("entries", len(entries)).Msg("library snapshot loaded")
	return gen
}

// Owner returns the currently bound owner scope ("" before the first Bind).
func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// List returns the snapshot, most-recently-saved first. It never blocks on
// the backend; after a failed load this is the last known good state.
func (s *Store) List() []models.LibraryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LibraryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// StatusOf answers from the in-memory index; no network round trip.
func (s *Store) StatusOf(titleID string) (models.ReadingStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.index[titleID]
	return st, ok
}

// Upsert adds or replaces the entry for title, optimistically. The caller
// observes the new state as soon as this returns; the backend write happens
// in the background and its failure only logs.
func (s *Store) Upsert(ctx context.Context, title models.Title, status models.ReadingStatus) {
	s.mu.Lock()
	if s.backend == nil {
		s.mu.Unlock()
		return
	}

	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp

	entry := models.LibraryEntry{Title: title, ReadingStatus: status, SavedAt: stamp}

	s.removeLocked(title.ID)
	s.entries = append([]models.LibraryEntry{entry}, s.entries...)
	s.index[title.ID] = status

	owner, backend, gen := s.owner, s.backend, s.gen
	s.persist(ctx, gen, func(pctx context.Context) error {
		return backend.Save(pctx, owner, entry)
	}, "save")
	s.publish(sync.LibraryEvent{
		Type:       sync.EventLibraryUpdate,
		OwnerScope: owner,
		TitleID:    title.ID,
		Status:     status,
		SavedAt:    stamp,
		At:         s.now().UTC(),
	})
	s.mu.Unlock()
}

// Remove deletes the entry for titleID, optimistically. Removing an absent
// key is a no-op.
func (s *Store) Remove(ctx context.Context, titleID string) {
	s.mu.Lock()
	if s.backend == nil {
		s.mu.Unlock()
		return
	}
	if _, ok := s.index[titleID]; !ok {
		s.mu.Unlock()
		return
	}
	s.removeLocked(titleID)

	owner, backend, gen := s.owner, s.backend, s.gen
	s.persist(ctx, gen, func(pctx context.Context) error {
		return backend.Delete(pctx, owner, titleID)
	}, "delete")
	s.publish(sync.LibraryEvent{
		Type:       sync.EventLibraryDelete,
		OwnerScope: owner,
		TitleID:    titleID,
		At:         s.now().UTC(),
	})
	s.mu.Unlock()
}

// removeLocked drops titleID from entries and index. Caller holds mu.
func (s *Store) removeLocked(titleID string) {
	for i, e := range s.entries {
		if e.Title.ID == titleID {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			break
		}
	}
	delete(s.index, titleID)
}

// persist enqueues one backend write, detached from the caller's
// cancellation and bounded by writeTimeout. The caller holds mu, so queue
// order matches snapshot mutation order: two rapid rewrites of the same key
// can never land on the backend reversed. The optimistic state is kept even
// when the write fails.
func (s *Store) persist(ctx context.Context, gen uint64, write func(context.Context) error, op string) {
	base := context.WithoutCancel(ctx)
	s.writeQ <- func() {
		pctx, cancel := context.WithTimeout(base, writeTimeout)
		defer cancel()
		if err := write(pctx); err != nil {
			s.log.Error().Err(err).Uint64("gen", gen).Str("op", op).Msg("backend write failed, keeping optimistic state")
		}
	}
}

// publish enqueues one feed event behind the write that caused it, so feed
// clients observe changes in the order the snapshot applied them. Caller
// holds mu.
func (s *Store) publish(ev sync.LibraryEvent) {
	if s.events == nil {
		return
	}
	s.writeQ <- func() { s.events.Publish(ev) }
}
