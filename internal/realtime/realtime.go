// Package realtime subscribes to the backend event stream. Events only hint
// that fresh data exists; callers still fetch it over the REST API.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prema-client/internal/api"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event types.
const (
	EventNewMessage = "new_message"
	EventMatch      = "match"
	EventUnmatch    = "unmatch"
)

// Event is one pushed notification.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrUnauthorized is returned when the backend refuses the token; retrying
// will not help.
var ErrUnauthorized = errors.New("event stream rejected the token")

// Subscriber connects to /ws.
type Subscriber struct {
	endpoint string
	dialer   *websocket.Dialer
	logger   zerolog.Logger
}

// NewSubscriber creates a subscriber for the backend at baseURL.
func NewSubscriber(baseURL string) (*Subscriber, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"

	return &Subscriber{
		endpoint: u.String(),
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:   log.Logger,
	}, nil
}

// Endpoint returns the websocket URL without credentials.
func (s *Subscriber) Endpoint() string { return s.endpoint }

// Run holds one connection open and sends every event to out until ctx ends
// or the connection drops.
func (s *Subscriber) Run(ctx context.Context, creds api.Credentials, out chan<- Event) error {
	q := url.Values{"token": {creds.Token}}
	conn, resp, err := s.dialer.DialContext(ctx, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info().Msg("Event stream connected")
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream closed: %w", err)
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Listen keeps the subscription alive, reconnecting with exponential
// backoff. It returns when ctx ends or the token is rejected.
func (s *Subscriber) Listen(ctx context.Context, creds api.Credentials, out chan<- Event) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	op := func() error {
		start := time.Now()
		err := s.Run(ctx, creds, out)
		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, ErrUnauthorized):
			return backoff.Permanent(err)
		}
		if time.Since(start) > time.Minute {
			b.Reset()
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Event stream disconnected")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Triggers converts events of the given types into refresh signals. The
// returned channel coalesces bursts and closes when events closes.
func Triggers(events <-chan Event, types ...string) <-chan struct{} {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for ev := range events {
			if len(want) > 0 && !want[ev.Type] {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}
