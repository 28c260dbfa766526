package discovery

import (
	"context"
	"fmt"
	"sync"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/background"
	"prema-client/internal/models"

	"github.com/rs/zerolog/log"
)

// TaskLikesCount names the best-effort likes count prefetch.
const TaskLikesCount = "likes_count"

const (
	msgLoadMatchesFailed = "Failed to load matches"
	msgUnmatchFailed     = "Failed to unmatch. Please try again."
)

// MatchesList holds the user's matches and the pending likes count shown
// next to them.
type MatchesList struct {
	client  *api.Client
	session Session
	tasks   *background.Runner

	mu         sync.Mutex
	matches    []models.MatchResponse
	likesCount int
}

// NewMatchesList creates a new matches list. Background work is reported to
// tasks; a nil runner gets a private one.
func NewMatchesList(client *api.Client, session Session, tasks *background.Runner) *MatchesList {
	if tasks == nil {
		logger := log.With().Str("component", "matches").Logger()
		tasks = background.NewRunner(context.Background(), &logger)
	}
	return &MatchesList{client: client, session: session, tasks: tasks}
}

// Load fetches the matches and starts the likes count prefetch. Only the
// matches call can fail Load.
func (m *MatchesList) Load(ctx context.Context) error {
	creds := m.session.Credentials()
	m.tasks.Go(TaskLikesCount, func(ctx context.Context) error {
		likes, err := m.client.GetUsersWhoLikedMe(ctx, creds)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.likesCount = len(likes)
		m.mu.Unlock()
		return nil
	})

	matches, err := m.client.GetMatches(ctx, creds)
	if err != nil {
		return apperr.WithFallback(err, msgLoadMatchesFailed)
	}
	m.mu.Lock()
	m.matches = matches
	m.mu.Unlock()
	return nil
}

// Matches returns a copy of the list.
func (m *MatchesList) Matches() []models.MatchResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MatchResponse(nil), m.matches...)
}

// LikesCount is the last fetched number of pending likes.
func (m *MatchesList) LikesCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.likesCount
}

// Tasks exposes the runner recording the prefetch outcome.
func (m *MatchesList) Tasks() *background.Runner { return m.tasks }

// Unmatch removes a match once the server confirms, returning the message
// to show.
func (m *MatchesList) Unmatch(ctx context.Context, userID int64) (string, error) {
	resp, err := m.client.UnmatchUser(ctx, m.session.Credentials(), userID)
	if err != nil {
		return "", apperr.WithFallback(err, msgUnmatchFailed)
	}

	name := "this user"
	m.mu.Lock()
	for i, match := range m.matches {
		if match.ID == userID {
			name = match.Name
			m.matches = append(m.matches[:i:i], m.matches[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if resp.Message != "" {
		return resp.Message, nil
	}
	return fmt.Sprintf("You unmatched with %s.", name), nil
}
