// Package session decides which identity space the library operates in:
// the local device, or an authenticated cloud user.
package session

import (
	"context"
	stdsync "sync"

	"github.com/rs/zerolog"

	"manhwahub/internal/library"
)

// Session identifies the current owner scope. Cloud is false for the
// anonymous device-local session.
type Session struct {
	Scope       string `json:"scope"`
	Email       string `json:"email,omitempty"`
	Cloud       bool   `json:"cloud"`
	Generation  uint64 `json:"generation"`
	accessToken string
}

// Manager owns the current Session and rebinds the library store on every
// transition. Each transition carries a fresh store generation, so a list
// load racing a newer transition gets discarded by the store.
type Manager struct {
	mu      stdsync.Mutex
	current Session

	auth     *Authenticator // nil when cloud sync is not configured
	store    *library.Store
	local    library.Backend
	newCloud func(accessToken string) library.Backend
	log      zerolog.Logger

	// OnTransition runs after every successful scope change, outside the
	// manager lock. Used to drop scope-keyed caches.
	OnTransition func(scope string)
}

func NewManager(auth *Authenticator, store *library.Store, local library.Backend, newCloud func(string) library.Backend, log zerolog.Logger) *Manager {
	return &Manager{
		auth:     auth,
		store:    store,
		local:    local,
		newCloud: newCloud,
		log:      log,
	}
}

// StartLocal binds the store to the device-local scope. Called once at
// startup and again on every sign-out.
func (m *Manager) StartLocal(ctx context.Context, deviceScope string) {
	gen := m.store.Bind(ctx, deviceScope, m.local)

	m.mu.Lock()
	m.current = Session{Scope: deviceScope, Cloud: false, Generation: gen}
	m.mu.Unlock()

	m.notify(deviceScope)
	m.log.Info().Str("scope", deviceScope).Msg("session: local mode")
}

// CloudEnabled reports whether a cloud project is configured at all.
func (m *Manager) CloudEnabled() bool { return m.auth != nil }

// SignIn authenticates against the cloud provider (falling back to sign-up
// for unknown accounts) and swaps the store onto the cloud backend with a
// full snapshot replace. Entries created while signed out stay on device
// but stop appearing.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	if m.auth == nil {
		return Session{}, ErrCloudDisabled
	}

	ident, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	gen := m.store.Bind(ctx, ident.UserID, m.newCloud(ident.AccessToken))

	sess := Session{
		Scope:       ident.UserID,
		Email:       ident.Email,
		Cloud:       true,
		Generation:  gen,
		accessToken: ident.AccessToken,
	}
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.notify(ident.UserID)
	m.log.Info().Str("scope", ident.UserID).Msg("session: cloud mode")
	return sess, nil
}

// SignOut reverts to whatever is persisted on-device.
func (m *Manager) SignOut(ctx context.Context, deviceScope string) {
	m.StartLocal(ctx, deviceScope)
}

func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Scope is a convenience accessor for cache keying.
func (m *Manager) Scope() string {
	return m.Current().Scope
}

func (m *Manager) notify(scope string) {
	if m.OnTransition != nil {
		m.OnTransition(scope)
	}
}
