package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/config"
	"prema-client/internal/fakeapi"
	"prema-client/internal/models"
	"prema-client/internal/session"
	"prema-client/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv    *fakeapi.Server
	client *api.Client
	store  storage.Store
	me     *session.Manager
	ids    []int64
}

// newHarness seeds the logged-in user plus n candidates aged 20, 21, ...
func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	srv := fakeapi.New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(ts.URL, api.WithTimeout(5*time.Second))
	require.NoError(t, err)

	_, err = srv.SeedUser(models.RegisterData{Email: "me@example.com", Password: "secret", Name: "Me", Age: 30, Gender: "female"})
	require.NoError(t, err)

	h := &harness{srv: srv, client: client, store: storage.NewMemoryStore()}
	for i := 0; i < n; i++ {
		u, err := srv.SeedUser(models.RegisterData{
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "secret",
			Name:     fmt.Sprintf("User %d", i),
			Age:      20 + i,
			Gender:   "male",
		})
		require.NoError(t, err)
		h.ids = append(h.ids, u.ID)
	}

	h.me = session.New(client, h.store)
	require.NoError(t, h.me.Login(context.Background(), "me@example.com", "secret"))
	return h
}

func (h *harness) loginAs(t *testing.T, i int) *session.Manager {
	t.Helper()
	m := session.New(h.client, storage.NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), fmt.Sprintf("user%d@example.com", i), "secret"))
	return m
}

func (h *harness) feed(debounce time.Duration) *Feed {
	return NewFeed(h.client, h.me, h.store, config.DiscoveryConfig{PageSize: 10, PrefetchThreshold: 3, Debounce: debounce})
}

func TestFilters_Defaults(t *testing.T) {
	f := DefaultFilters()
	assert.Equal(t, Filters{MaxDistance: 15, MinAge: 18, MaxAge: 80}, f)

	p := f.Params(10, 10)
	assert.Equal(t, 10, p.Skip)
	assert.Equal(t, 15, p.MaxDistance)
}

func TestFeed_RestoreFilters(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	feed := h.feed(0)

	assert.Equal(t, DefaultFilters(), feed.RestoreFilters(ctx))

	maxAge := 40
	require.NoError(t, storage.SaveFilters(ctx, h.store, storage.FilterPreferences{MaxAge: &maxAge}))
	got := feed.RestoreFilters(ctx)
	assert.Equal(t, Filters{MaxDistance: 15, MinAge: 18, MaxAge: 40}, got)
	assert.Equal(t, got, feed.Filters())
}

func TestFeed_LoadAndPrefetch(t *testing.T) {
	h := newHarness(t, 25)
	ctx := context.Background()
	feed := h.feed(0)

	require.NoError(t, feed.Load(ctx))
	require.Len(t, feed.Users(), 10)
	cur, ok := feed.Current()
	require.True(t, ok)
	assert.Equal(t, h.ids[0], cur.ID)

	// indices 0..6 stay clear of the threshold
	for i := 0; i < 7; i++ {
		feed.Advance(ctx)
	}
	assert.Len(t, feed.Users(), 10)
	assert.Len(t, h.srv.RequestsTo(http.MethodGet, "/discovery/browse"), 1)

	feed.Advance(ctx) // leaves index 7 == len-3
	assert.Len(t, feed.Users(), 20)
	assert.Equal(t, 8, feed.Index())

	reqs := h.srv.RequestsTo(http.MethodGet, "/discovery/browse")
	require.Len(t, reqs, 2)
	assert.Equal(t, "10", reqs[1].Query.Get("skip"))
	assert.Equal(t, "10", reqs[1].Query.Get("limit"))

	// appended, never reordered
	users := feed.Users()
	for i, u := range users {
		assert.Equal(t, h.ids[i], u.ID)
	}
}

func TestFeed_LoadMoreFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	feed := h.feed(0)
	require.NoError(t, feed.Load(ctx))

	h.srv.Fail(http.MethodGet, "/discovery/browse", fakeapi.Failure{Status: http.StatusInternalServerError})
	for i := 0; i < 3; i++ {
		feed.Advance(ctx)
	}
	assert.Len(t, feed.Users(), 5)
	assert.Equal(t, 3, feed.Index())
}

func TestFeed_LoadError(t *testing.T) {
	h := newHarness(t, 2)
	h.srv.Fail(http.MethodGet, "/discovery/browse", fakeapi.Failure{Status: http.StatusInternalServerError})

	feed := h.feed(0)
	err := feed.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to browse users", err.Error())
	assert.Empty(t, feed.Users())
}

func TestFeed_LikeMatchAndPass(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	// user 0 already liked me, so liking back is a match
	liker := h.loginAs(t, 0)
	_, err := h.client.LikeUser(ctx, liker.Credentials(), h.me.User().ID)
	require.NoError(t, err)

	feed := h.feed(0)
	var matched []LikeResult
	feed.OnMatch = func(r LikeResult) { matched = append(matched, r) }
	require.NoError(t, feed.Load(ctx))

	res, err := feed.Like(ctx)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, h.ids[0], res.Candidate.ID)
	require.Len(t, matched, 1)
	assert.Equal(t, 1, feed.Index())

	res, err = feed.Like(ctx)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Len(t, matched, 1)

	require.NoError(t, feed.Pass(ctx))
	assert.Equal(t, 3, feed.Index())

	_, ok := feed.Current()
	assert.False(t, ok)
	_, err = feed.Like(ctx)
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.ErrorIs(t, feed.Pass(ctx), ErrNoCandidate)
}

func TestFeed_LikeFailureKeepsCandidate(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	feed := h.feed(0)
	require.NoError(t, feed.Load(ctx))

	path := fmt.Sprintf("/discovery/like/%d", h.ids[0])
	h.srv.Fail(http.MethodPost, path, fakeapi.Failure{Status: http.StatusInternalServerError, Times: 1})

	_, err := feed.Like(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, feed.Index())

	res, err := feed.Like(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.ids[0], res.Candidate.ID)
}

func TestFeed_SetFiltersDebounced(t *testing.T) {
	h := newHarness(t, 15)
	ctx := context.Background()
	feed := h.feed(50 * time.Millisecond)
	t.Cleanup(feed.Close)

	var mu sync.Mutex
	var resets [][]models.UserProfile
	feed.OnReset = func(u []models.UserProfile) {
		mu.Lock()
		resets = append(resets, u)
		mu.Unlock()
	}

	require.NoError(t, feed.Load(ctx))
	feed.Advance(ctx)

	feed.SetFilters(ctx, Filters{MaxDistance: 15, MinAge: 25, MaxAge: 80})
	feed.SetFilters(ctx, Filters{MaxDistance: 15, MinAge: 30, MaxAge: 80})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(resets) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// only the last change reached the server
	time.Sleep(100 * time.Millisecond)
	reqs := h.srv.RequestsTo(http.MethodGet, "/discovery/browse")
	require.Len(t, reqs, 2)
	assert.Equal(t, "30", reqs[1].Query.Get("min_age"))
	assert.Empty(t, reqs[1].Query.Get("skip"))

	assert.Equal(t, 0, feed.Index())
	users := feed.Users()
	require.Len(t, users, 5)
	for _, u := range users {
		assert.GreaterOrEqual(t, u.Age, 30)
	}

	prefs, ok, err := storage.LoadFilters(ctx, h.store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30, *prefs.MinAge)
}

func TestFeed_StaleLoadDropped(t *testing.T) {
	h := newHarness(t, 12)
	ctx := context.Background()

	// The unfiltered first page is held until released.
	gate := make(chan struct{})
	arrived := make(chan struct{}, 1)
	inner := h.srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/discovery/browse" && r.URL.Query().Get("min_age") == "" {
			arrived <- struct{}{}
			<-gate
		}
		inner.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	client, err := api.New(ts.URL)
	require.NoError(t, err)

	feed := NewFeed(client, h.me, h.store, config.DiscoveryConfig{Debounce: 10 * time.Millisecond})
	t.Cleanup(feed.Close)

	var mu sync.Mutex
	var resets int
	feed.OnReset = func([]models.UserProfile) {
		mu.Lock()
		resets++
		mu.Unlock()
	}

	done := make(chan error, 1)
	go func() { done <- feed.Load(ctx) }()
	<-arrived

	feed.SetFilters(ctx, Filters{MaxDistance: 15, MinAge: 29, MaxAge: 80})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return resets == 1
	}, 2*time.Second, 5*time.Millisecond)

	close(gate)
	require.NoError(t, <-done)

	users := feed.Users()
	require.Len(t, users, 3)
	for _, u := range users {
		assert.GreaterOrEqual(t, u.Age, 29)
	}
	mu.Lock()
	assert.Equal(t, 1, resets)
	mu.Unlock()
}

func TestLikesInbox(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		m := h.loginAs(t, i)
		_, err := h.client.LikeUser(ctx, m.Credentials(), h.me.User().ID)
		require.NoError(t, err)
	}

	inbox := NewLikesInbox(h.client, h.me)
	require.NoError(t, inbox.Load(ctx))
	require.Equal(t, 2, inbox.Count())

	res, err := inbox.LikeBack(ctx, h.ids[0])
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "User 0", res.Candidate.Name)
	assert.Equal(t, 1, inbox.Count())

	require.NoError(t, inbox.Pass(ctx, h.ids[1]))
	assert.Zero(t, inbox.Count())

	require.NoError(t, inbox.Load(ctx))
	assert.Empty(t, inbox.Users())
}

func TestLikesInbox_Errors(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	m := h.loginAs(t, 0)
	_, err := h.client.LikeUser(ctx, m.Credentials(), h.me.User().ID)
	require.NoError(t, err)

	inbox := NewLikesInbox(h.client, h.me)
	h.srv.Fail(http.MethodGet, "/discovery/likes", fakeapi.Failure{Status: http.StatusInternalServerError, Times: 1})
	err = inbox.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to load users who liked you", err.Error())

	require.NoError(t, inbox.Load(ctx))
	h.srv.Fail(http.MethodPost, fmt.Sprintf("/discovery/pass/%d", h.ids[0]), fakeapi.Failure{Status: http.StatusInternalServerError})
	err = inbox.Pass(ctx, h.ids[0])
	require.Error(t, err)
	assert.Equal(t, "Failed to pass user", err.Error())
	assert.Equal(t, 1, inbox.Count())
}

func TestMatchesList_LoadAndUnmatch(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()

	bob := h.loginAs(t, 0)
	_, err := h.client.LikeUser(ctx, h.me.Credentials(), h.ids[0])
	require.NoError(t, err)
	_, err = h.client.LikeUser(ctx, bob.Credentials(), h.me.User().ID)
	require.NoError(t, err)
	carl := h.loginAs(t, 1)
	_, err = h.client.LikeUser(ctx, carl.Credentials(), h.me.User().ID)
	require.NoError(t, err)

	list := NewMatchesList(h.client, h.me, nil)
	require.NoError(t, list.Load(ctx))
	list.Tasks().Wait()

	require.Len(t, list.Matches(), 1)
	assert.Equal(t, 1, list.LikesCount())
	res, ok := list.Tasks().Find(TaskLikesCount)
	require.True(t, ok)
	assert.True(t, res.OK())

	msg, err := list.Unmatch(ctx, h.ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Successfully unmatched", msg)
	assert.Empty(t, list.Matches())
}

func TestMatchesList_Failures(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	// the likes prefetch failing does not fail Load
	h.srv.Fail(http.MethodGet, "/discovery/likes", fakeapi.Failure{Status: http.StatusInternalServerError})
	list := NewMatchesList(h.client, h.me, nil)
	require.NoError(t, list.Load(ctx))
	list.Tasks().Wait()
	res, ok := list.Tasks().Find(TaskLikesCount)
	require.True(t, ok)
	assert.False(t, res.OK())

	h.srv.Fail(http.MethodDelete, fmt.Sprintf("/discovery/matches/%d", h.ids[0]), fakeapi.Failure{Status: http.StatusInternalServerError})
	_, err := list.Unmatch(ctx, h.ids[0])
	require.Error(t, err)
	assert.Equal(t, "Failed to unmatch. Please try again.", err.Error())
}

func TestMatchesList_UnmatchFallbackMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/discovery/matches":
			fmt.Fprint(w, `[{"id":7,"name":"Bob","age":30,"matched_at":"2024-01-01T00:00:00"}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/discovery/likes":
			fmt.Fprint(w, `[]`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(ts.Close)
	client, err := api.New(ts.URL)
	require.NoError(t, err)

	list := NewMatchesList(client, staticSession{api.Credentials{Token: "t"}}, nil)
	require.NoError(t, list.Load(context.Background()))
	msg, err := list.Unmatch(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "You unmatched with Bob.", msg)
}

type staticSession struct{ creds api.Credentials }

func (s staticSession) Credentials() api.Credentials { return s.creds }

func TestSlotMachine(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	slot := NewSlotMachine(h.client, h.me)
	assert.Equal(t, DefaultDailySpins, slot.SpinsRemaining())

	status, err := slot.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, status.SpinsRemaining)

	p, err := slot.Spin(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.ids[0], p.ID)
	assert.Equal(t, 14, slot.SpinsRemaining())

	res, err := slot.Like(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.ids[0], res.Candidate.ID)
	_, ok := slot.Current()
	assert.False(t, ok)

	_, err = slot.Spin(ctx)
	require.NoError(t, err)
	require.NoError(t, slot.Pass(ctx))
	assert.ErrorIs(t, slot.Pass(ctx), ErrNoCandidate)

	// pool exhausted: the server's message comes back as the error
	_, err = slot.Spin(ctx)
	require.Error(t, err)
	assert.Equal(t, "No profiles available right now", err.Error())
	assert.Equal(t, 13, slot.SpinsRemaining())
}

func TestSlotMachine_NoSpinsSkipsNetwork(t *testing.T) {
	h := newHarness(t, 1)
	slot := NewSlotMachine(h.client, h.me)
	slot.mu.Lock()
	slot.remaining = 0
	slot.mu.Unlock()

	_, err := slot.Spin(context.Background())
	assert.ErrorIs(t, err, ErrNoSpins)
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/discovery/spin"))
}

func TestInteractionErrors_AreDisplayErrors(t *testing.T) {
	for _, err := range []error{ErrNoCandidate, ErrBusy, ErrNoSpins} {
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr), err.Error())
		assert.NotEmpty(t, appErr.Message)
		assert.ErrorIs(t, apperr.New(appErr.Message), err)
	}

	h := newHarness(t, 0)
	feed := NewFeed(h.client, h.me, h.store, config.DiscoveryConfig{})
	_, err := feed.Like(context.Background())
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "No candidate to act on", appErr.Message)
}

func TestSlotMachine_SpinFailure(t *testing.T) {
	h := newHarness(t, 1)
	h.srv.Fail(http.MethodPost, "/discovery/spin", fakeapi.Failure{Status: http.StatusInternalServerError})
	slot := NewSlotMachine(h.client, h.me)

	_, err := slot.Spin(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to spin. Please try again.", err.Error())
	assert.Equal(t, DefaultDailySpins, slot.SpinsRemaining())
}
