package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdsync "sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"manhwahub/pkg/models"
)

// kv keys are namespaced under this prefix; one key holds one owner's
// whole collection as a single JSON blob.
const (
	localKeyPrefix = "manhwahub/library/"
	deviceIDKey    = "manhwahub/device-id"
)

// LocalBackend persists the collection in the on-device sqlite kv table.
// Every mutation re-serializes the full collection: write amplification is
// accepted because the lists are user-curated, not catalog-scale.
type LocalBackend struct {
	db *sql.DB
	mu stdsync.Mutex // serializes read-modify-write of the blob
}

func NewLocalBackend(db *sql.DB) *LocalBackend {
	return &LocalBackend{db: db}
}

func (b *LocalBackend) Load(ctx context.Context, owner string) ([]models.LibraryEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadLocked(ctx, owner)
}

func (b *LocalBackend) Save(ctx context.Context, owner string, entry models.LibraryEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked(ctx, owner)
	if err != nil {
		return err
	}

	out := make([]models.LibraryEntry, 0, len(entries)+1)
	out = append(out, entry)
	for _, e := range entries {
		if e.Title.ID != entry.Title.ID {
			out = append(out, e)
		}
	}
	return b.writeLocked(ctx, owner, out)
}

func (b *LocalBackend) Delete(ctx context.Context, owner, titleID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.loadLocked(ctx, owner)
	if err != nil {
		return err
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Title.ID != titleID {
			out = append(out, e)
		}
	}
	return b.writeLocked(ctx, owner, out)
}

func (b *LocalBackend) loadLocked(ctx context.Context, owner string) ([]models.LibraryEntry, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, localKeyPrefix+owner).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library blob: %w", err)
	}

	var entries []models.LibraryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode library blob: %w", err)
	}
	return entries, nil
}

func (b *LocalBackend) writeLocked(ctx context.Context, owner string, entries []models.LibraryEntry) error {
	if entries == nil {
		entries = []models.LibraryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode library blob: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, localKeyPrefix+owner, string(raw))
	if err != nil {
		return fmt.Errorf("write library blob: %w", err)
	}
	return nil
}

// DeviceScope returns the stable local owner scope for this device,
// minting and persisting a new id on first use.
func DeviceScope(ctx context.Context, db *sql.DB) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, deviceIDKey).Scan(&id)
	if err == nil && id != "" {
		return "local:" + id, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = uuid.NewString()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, deviceIDKey, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	// reread in case a concurrent open won the insert
	if err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, deviceIDKey).Scan(&id); err != nil {
		return "", fmt.Errorf("reread device id: %w", err)
	}
	return "local:" + id, nil
}
