package discovery

import (
	"context"
	"sync"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/config"
	"prema-client/internal/models"
	"prema-client/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Feed is the swipe deck. Candidates are appended as the user nears the end
// and never reordered. Every load carries a generation number; a response
// whose generation is no longer current is dropped, so the latest filter
// change always wins.
type Feed struct {
	client    *api.Client
	session   Session
	store     storage.Store
	pageSize  int
	threshold int
	debounce  time.Duration
	logger    zerolog.Logger

	// OnMatch, when set, is called for every like that created a match.
	OnMatch func(LikeResult)
	// OnReset, when set, is called after a full reload replaced the deck.
	OnReset func([]models.UserProfile)

	mu          sync.Mutex
	users       []models.UserProfile
	index       int
	filters     Filters
	generation  uint64
	interacting bool
	timer       *time.Timer
}

// NewFeed creates a feed with the given paging settings.
func NewFeed(client *api.Client, session Session, store storage.Store, cfg config.DiscoveryConfig) *Feed {
	f := &Feed{
		client:    client,
		session:   session,
		store:     store,
		pageSize:  cfg.PageSize,
		threshold: cfg.PrefetchThreshold,
		debounce:  cfg.Debounce,
		logger:    log.With().Str("component", "browse").Logger(),
		filters:   DefaultFilters(),
	}
	if f.pageSize <= 0 {
		f.pageSize = 10
	}
	if f.threshold <= 0 {
		f.threshold = 3
	}
	if f.debounce <= 0 {
		f.debounce = 500 * time.Millisecond
	}
	return f
}

// RestoreFilters loads saved filters. A read failure keeps the defaults.
func (f *Feed) RestoreFilters(ctx context.Context) Filters {
	prefs, ok, err := storage.LoadFilters(ctx, f.store)
	if err != nil {
		f.logger.Error().Err(err).Msg("Error loading filters")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ok {
		f.filters = f.filters.applyPreferences(prefs)
	}
	return f.filters
}

// Filters returns the active filters.
func (f *Feed) Filters() Filters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters
}

// Users returns a copy of the deck.
func (f *Feed) Users() []models.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UserProfile(nil), f.users...)
}

// Index is the position of the current candidate.
func (f *Feed) Index() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// Current returns the candidate on top of the deck.
func (f *Feed) Current() (models.UserProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.users) {
		return models.UserProfile{}, false
	}
	return f.users[f.index], true
}

// Load replaces the deck with the first page for the active filters.
func (f *Feed) Load(ctx context.Context) error {
	f.mu.Lock()
	f.generation++
	gen := f.generation
	params := f.filters.Params(0, f.pageSize)
	f.mu.Unlock()

	resp, err := f.client.BrowseUsers(ctx, f.session.Credentials(), params)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug().Uint64("generation", gen).Msg("Stale browse response dropped")
		return nil
	}
	f.users = resp.Users
	f.index = 0
	users := append([]models.UserProfile(nil), f.users...)
	f.mu.Unlock()

	if f.OnReset != nil {
		f.OnReset(users)
	}
	return nil
}

// loadMore appends the next page. Failures are logged only.
func (f *Feed) loadMore(ctx context.Context) {
	f.mu.Lock()
	gen := f.generation
	params := f.filters.Params(len(f.users), f.pageSize)
	f.mu.Unlock()

	resp, err := f.client.BrowseUsers(ctx, f.session.Credentials(), params)
	if err != nil {
		f.logger.Error().Err(err).Msg("Error loading more users")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return
	}
	f.users = append(f.users, resp.Users...)
}

// Advance moves past the current candidate, fetching the next page when
// few unseen candidates remain.
func (f *Feed) Advance(ctx context.Context) {
	f.mu.Lock()
	prev := f.index
	f.index++
	needMore := prev >= len(f.users)-f.threshold
	f.mu.Unlock()

	if needMore {
		f.loadMore(ctx)
	}
}

func (f *Feed) begin() (models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.interacting {
		return models.UserProfile{}, ErrBusy
	}
	if f.index >= len(f.users) {
		return models.UserProfile{}, ErrNoCandidate
	}
	f.interacting = true
	return f.users[f.index], nil
}

func (f *Feed) end() {
	f.mu.Lock()
	f.interacting = false
	f.mu.Unlock()
}

// Like likes the current candidate and advances. On a mutual match
// OnMatch is called before returning.
func (f *Feed) Like(ctx context.Context) (LikeResult, error) {
	cand, err := f.begin()
	if err != nil {
		return LikeResult{}, err
	}
	defer f.end()

	resp, err := f.client.LikeUser(ctx, f.session.Credentials(), cand.ID)
	if err != nil {
		return LikeResult{}, err
	}

	res := LikeResult{Candidate: cand, Interaction: resp, Matched: resp.IsMatch}
	if res.Matched {
		f.logger.Info().Int64("user_id", cand.ID).Msg("New match")
		if f.OnMatch != nil {
			f.OnMatch(res)
		}
	}
	f.Advance(ctx)
	return res, nil
}

// Pass passes on the current candidate and advances.
func (f *Feed) Pass(ctx context.Context) error {
	cand, err := f.begin()
	if err != nil {
		return err
	}
	defer f.end()

	if _, err := f.client.PassUser(ctx, f.session.Credentials(), cand.ID); err != nil {
		return err
	}
	f.Advance(ctx)
	return nil
}

// SetFilters stores new filters and schedules a reload once they have been
// stable for the debounce window. Each call restarts the window.
func (f *Feed) SetFilters(ctx context.Context, filters Filters) {
	if err := storage.SaveFilters(ctx, f.store, filters.preferences()); err != nil {
		f.logger.Error().Err(err).Msg("Error saving filters")
	}

	loadCtx := context.WithoutCancel(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = filters
	// Invalidate in-flight loads now; the debounced Load bumps again.
	f.generation++
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		if err := f.Load(loadCtx); err != nil {
			f.logger.Error().Err(err).Msg("Error loading users")
		}
	})
}

// Close cancels a pending debounced reload.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
