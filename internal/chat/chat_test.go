package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/fakeapi"
	"prema-client/internal/models"
	"prema-client/internal/session"
	"prema-client/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	srv      *fakeapi.Server
	client   *api.Client
	ana, bob *session.Manager
}

func newPair(t *testing.T, matched bool) *pair {
	t.Helper()
	srv := fakeapi.New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(ts.URL, api.WithTimeout(5*time.Second))
	require.NoError(t, err)

	ctx := context.Background()
	login := func(email, name, gender string) *session.Manager {
		_, err := srv.SeedUser(models.RegisterData{Email: email, Password: "secret", Name: name, Age: 28, Gender: gender})
		require.NoError(t, err)
		m := session.New(client, storage.NewMemoryStore())
		require.NoError(t, m.Login(ctx, email, "secret"))
		return m
	}
	p := &pair{srv: srv, client: client}
	p.ana = login("ana@example.com", "Ana", "female")
	p.bob = login("bob@example.com", "Bob", "male")

	if matched {
		_, err = client.LikeUser(ctx, p.ana.Credentials(), p.bob.User().ID)
		require.NoError(t, err)
		res, err := client.LikeUser(ctx, p.bob.Credentials(), p.ana.User().ID)
		require.NoError(t, err)
		require.True(t, res.IsMatch)
	}
	return p
}

func TestThread_RefreshMarksIncomingRead(t *testing.T) {
	p := newPair(t, true)
	ctx := context.Background()

	bobThread := NewThread(p.client, p.bob, p.ana.User().ID, 0)
	_, err := bobThread.Send(ctx, "  hi Ana  ")
	require.NoError(t, err)
	require.Len(t, bobThread.Messages(), 1)
	assert.Equal(t, "hi Ana", bobThread.Messages()[0].Content)

	// refreshing the sender's own thread marks nothing
	require.NoError(t, bobThread.Refresh(ctx))
	assert.False(t, p.srv.Messages()[0].IsRead)

	var updates int
	anaThread := NewThread(p.client, p.ana, p.bob.User().ID, 0)
	anaThread.OnUpdate = func([]models.Message) { updates++ }
	require.NoError(t, anaThread.Refresh(ctx))
	assert.Len(t, anaThread.Messages(), 1)
	assert.Equal(t, 1, updates)
	assert.True(t, p.srv.Messages()[0].IsRead)

	// already-read messages are not marked again
	before := len(p.srv.Requests())
	require.NoError(t, anaThread.Refresh(ctx))
	after := p.srv.Requests()[before:]
	for _, r := range after {
		assert.NotEqual(t, http.MethodPut, r.Method)
	}
}

func TestThread_MarkReadFailureDoesNotAbortBatch(t *testing.T) {
	p := newPair(t, true)
	ctx := context.Background()

	bobThread := NewThread(p.client, p.bob, p.ana.User().ID, 0)
	for _, text := range []string{"one", "two", "three"} {
		_, err := bobThread.Send(ctx, text)
		require.NoError(t, err)
	}
	first := p.srv.Messages()[0].ID
	p.srv.Fail(http.MethodPut, fmt.Sprintf("/messages/%d/read", first), fakeapi.Failure{Status: http.StatusInternalServerError})

	anaThread := NewThread(p.client, p.ana, p.bob.User().ID, 0)
	require.NoError(t, anaThread.Refresh(ctx))

	msgs := p.srv.Messages()
	assert.False(t, msgs[0].IsRead)
	assert.True(t, msgs[1].IsRead)
	assert.True(t, msgs[2].IsRead)
}

func TestThread_RefreshError(t *testing.T) {
	p := newPair(t, true)
	p.srv.Fail(http.MethodGet, fmt.Sprintf("/messages/conversation/%d", p.bob.User().ID), fakeapi.Failure{Status: http.StatusInternalServerError})

	th := NewThread(p.client, p.ana, p.bob.User().ID, 0)
	assert.EqualError(t, th.Refresh(context.Background()), "Failed to get messages")
}

func TestThread_SendErrors(t *testing.T) {
	p := newPair(t, false)
	ctx := context.Background()
	th := NewThread(p.client, p.ana, p.bob.User().ID, 0)

	_, err := th.Send(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Message is empty", appErr.Message)

	_, err = th.Send(ctx, "hello")
	assert.EqualError(t, err, "You can only message your matches")
	assert.Empty(t, th.Messages())
}

func TestThread_RunPolls(t *testing.T) {
	p := newPair(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	th := NewThread(p.client, p.ana, p.bob.User().ID, 20*time.Millisecond)
	done := make(chan struct{})
	go func() {
		th.Run(ctx, nil)
		close(done)
	}()

	_, err := NewThread(p.client, p.bob, p.ana.User().ID, 0).Send(context.Background(), "ping")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(th.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestThread_TriggerAndFocusForceRefresh(t *testing.T) {
	p := newPair(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fetches atomic.Int32
	th := NewThread(p.client, p.ana, p.bob.User().ID, time.Hour)
	th.OnUpdate = func([]models.Message) { fetches.Add(1) }

	trigger := make(chan struct{})
	go th.Run(ctx, trigger)

	// first tick is immediate
	require.Eventually(t, func() bool { return fetches.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	trigger <- struct{}{}
	require.Eventually(t, func() bool { return fetches.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	th.Focus()
	require.Eventually(t, func() bool { return fetches.Load() == 3 }, 2*time.Second, 10*time.Millisecond)

	// a closed trigger is ignored
	close(trigger)
	th.Focus()
	require.Eventually(t, func() bool { return fetches.Load() == 4 }, 2*time.Second, 10*time.Millisecond)
}

func TestInbox(t *testing.T) {
	p := newPair(t, true)
	ctx := context.Background()

	for _, text := range []string{"hey", "you there?"} {
		_, err := NewThread(p.client, p.bob, p.ana.User().ID, 0).Send(ctx, text)
		require.NoError(t, err)
	}

	in := NewInbox(p.client, p.ana)
	list, err := in.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].UserName)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, 2, in.UnreadTotal())
	assert.Equal(t, list, in.Conversations())
}
