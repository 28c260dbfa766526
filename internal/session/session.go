// Package session owns the authentication lifecycle: the persisted token,
// the verified current user, and the credentials handed to every API call.
package session

import (
	"context"
	"sync"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/background"
	"prema-client/internal/models"
	"prema-client/internal/photos"
	"prema-client/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status is the authentication state.
type Status int

const (
	StatusUnknown Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Background task names.
const (
	TaskPushRegistration = "push_registration"
	TaskNavigationReset  = "navigation_reset"
)

// State is a snapshot of the session. User is a copy owned by the caller.
type State struct {
	Status  Status
	Token   string
	User    *models.User
	Loading bool
}

// PushRegistrar registers the device push channel for an account.
type PushRegistrar interface {
	Register(ctx context.Context, creds api.Credentials) (string, error)
}

// Navigator resets the presentation layer to the signed-out flow.
type Navigator interface {
	ResetToAuth(ctx context.Context) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context) error

func (f NavigatorFunc) ResetToAuth(ctx context.Context) error { return f(ctx) }

// Manager is the single source of truth for who is logged in.
type Manager struct {
	client   *api.Client
	store    storage.Store
	push     PushRegistrar
	uploader photos.Uploader
	nav      Navigator
	tasks    *background.Runner
	logger   zerolog.Logger
	now      func() time.Time

	initOnce sync.Once

	mu      sync.RWMutex
	token   string
	user    *models.User
	loading bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithPushRegistrar enables best-effort push registration after sign-in.
func WithPushRegistrar(p PushRegistrar) Option {
	return func(m *Manager) { m.push = p }
}

// WithUploader sets the photo uploader used by UploadPhoto and DeletePhoto.
func WithUploader(u photos.Uploader) Option {
	return func(m *Manager) { m.uploader = u }
}

// WithNavigator sets the target of the post-logout reset.
func WithNavigator(n Navigator) Option {
	return func(m *Manager) { m.nav = n }
}

// WithRunner sets the runner for best-effort side effects.
func WithRunner(r *background.Runner) Option {
	return func(m *Manager) { m.tasks = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a session manager in the loading state.
func New(client *api.Client, store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		client:  client,
		store:   store,
		logger:  log.Logger,
		now:     time.Now,
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tasks == nil {
		m.tasks = background.NewRunner(context.Background(), &m.logger)
	}
	return m
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{Token: m.token, User: m.user.Clone(), Loading: m.loading}
	switch {
	case m.loading:
		st.Status = StatusUnknown
	case m.user != nil:
		st.Status = StatusAuthenticated
	default:
		st.Status = StatusUnauthenticated
	}
	return st
}

// Credentials returns the credentials for API calls made on behalf of the
// current session. They are empty when signed out.
func (m *Manager) Credentials() api.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return api.Credentials{Token: m.token}
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// Tasks exposes the runner holding best-effort side effects.
func (m *Manager) Tasks() *background.Runner { return m.tasks }

// setSession swaps token and user together.
func (m *Manager) setSession(token string, user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = user.Clone()
	m.loading = false
}

func (m *Manager) clearSession() {
	m.setSession("", nil)
}

// settle ends the loading state without touching token or user.
func (m *Manager) settle() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

// replaceUser installs user only while token is still the active token, so a
// response that arrives after logout or re-login is dropped.
func (m *Manager) replaceUser(token string, user *models.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.token != token {
		return false
	}
	m.user = user.Clone()
	return true
}

func (m *Manager) registerPushInBackground(creds api.Credentials) {
	if m.push == nil {
		return
	}
	m.tasks.Go(TaskPushRegistration, func(ctx context.Context) error {
		_, err := m.push.Register(ctx, creds)
		return err
	})
}
