// Package chat keeps a conversation thread fresh by polling. Each fetch
// replaces the local list wholesale; unread incoming messages are then
// marked read one at a time, best effort.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is how often an open thread is refreshed.
const DefaultPollInterval = 3 * time.Second

// ErrEmptyMessage is returned by Send for blank content.
var ErrEmptyMessage = apperr.New("Message is empty")

// Session supplies the caller's identity.
type Session interface {
	Credentials() api.Credentials
	User() *models.User
}

// Thread is the message list with one peer.
type Thread struct {
	client   *api.Client
	session  Session
	peerID   int64
	interval time.Duration
	logger   zerolog.Logger
	focus    chan struct{}

	// OnUpdate, when set, is called with a copy of the list after every
	// change. It runs on the goroutine that made the change.
	OnUpdate func([]models.Message)

	mu         sync.Mutex
	messages   []models.Message
	generation uint64
}

// NewThread creates a thread with peerID. A non-positive interval uses
// DefaultPollInterval.
func NewThread(client *api.Client, session Session, peerID int64, interval time.Duration) *Thread {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Thread{
		client:   client,
		session:  session,
		peerID:   peerID,
		interval: interval,
		logger:   log.With().Int64("peer_id", peerID).Logger(),
		focus:    make(chan struct{}, 1),
	}
}

// PeerID returns the other participant.
func (t *Thread) PeerID() int64 { return t.peerID }

// Messages returns a copy of the current list.
func (t *Thread) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Message(nil), t.messages...)
}

func (t *Thread) notify() {
	if t.OnUpdate != nil {
		t.OnUpdate(t.Messages())
	}
}

// Refresh fetches the thread and marks unread incoming messages as read.
// A response that finishes after a newer Refresh started is discarded.
func (t *Thread) Refresh(ctx context.Context) error {
	creds := t.session.Credentials()

	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	msgs, err := t.client.GetMessagesWithUser(ctx, creds, t.peerID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		t.logger.Debug().Msg("Stale thread response dropped")
		return nil
	}
	t.messages = msgs
	t.mu.Unlock()
	t.notify()

	t.markRead(ctx, creds, msgs)
	return nil
}

// markRead marks each unread message addressed to the current user. One
// failure does not stop the rest.
func (t *Thread) markRead(ctx context.Context, creds api.Credentials, msgs []models.Message) {
	self := t.session.User()
	if self == nil {
		return
	}
	for _, m := range msgs {
		if m.IsRead || m.ReceiverID != self.ID {
			continue
		}
		if _, err := t.client.MarkMessageAsRead(ctx, creds, m.ID); err != nil {
			t.logger.Warn().Err(err).Int64("message_id", m.ID).Msg("Error marking message as read")
		}
	}
}

// Focus requests an immediate refresh from Run.
func (t *Thread) Focus() {
	select {
	case t.focus <- struct{}{}:
	default:
	}
}

// Run polls until ctx ends. The first refresh happens immediately. A signal
// on trigger (may be nil) also forces a refresh. Poll errors are logged and
// do not stop the loop.
func (t *Thread) Run(ctx context.Context, trigger <-chan struct{}) {
	ticker := backoff.NewTicker(backoff.NewConstantBackOff(t.interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-t.focus:
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
		}
		if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.logger.Error().Err(err).Msg("Error loading messages")
		}
	}
}

// Send posts content to the peer and appends the created message locally.
func (t *Thread) Send(ctx context.Context, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	msg, err := t.client.SendMessage(ctx, t.session.Credentials(), t.peerID, content)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.messages = append(t.messages, *msg)
	t.mu.Unlock()
	t.notify()
	return msg, nil
}
