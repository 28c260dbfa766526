package discovery

import (
	"context"
	"sync"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/models"
)

// Messages shown for likes inbox failures.
const (
	msgLoadLikesFailed = "Failed to load users who liked you"
	msgLikeFailed      = "Failed to like user"
	msgPassFailed      = "Failed to pass user"
)

// LikesInbox lists the people who liked the user and have not been
// answered yet. Answering removes the entry locally.
type LikesInbox struct {
	client  *api.Client
	session Session

	mu    sync.Mutex
	users []models.UserProfile
}

// NewLikesInbox creates a new likes inbox
func NewLikesInbox(client *api.Client, session Session) *LikesInbox {
	return &LikesInbox{client: client, session: session}
}

// Load replaces the list from the server.
func (l *LikesInbox) Load(ctx context.Context) error {
	users, err := l.client.GetUsersWhoLikedMe(ctx, l.session.Credentials())
	if err != nil {
		return apperr.WithFallback(err, msgLoadLikesFailed)
	}
	l.mu.Lock()
	l.users = users
	l.mu.Unlock()
	return nil
}

// Users returns a copy of the list.
func (l *LikesInbox) Users() []models.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.UserProfile(nil), l.users...)
}

// Count returns the number of pending likes.
func (l *LikesInbox) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// LikeBack likes a liker. A like back is normally a match, but Matched
// still reflects what the server said.
func (l *LikesInbox) LikeBack(ctx context.Context, userID int64) (LikeResult, error) {
	resp, err := l.client.LikeUser(ctx, l.session.Credentials(), userID)
	if err != nil {
		return LikeResult{}, apperr.WithFallback(err, msgLikeFailed)
	}
	cand, _ := l.remove(userID)
	return LikeResult{Candidate: cand, Interaction: resp, Matched: resp.IsMatch}, nil
}

// Pass declines a liker.
func (l *LikesInbox) Pass(ctx context.Context, userID int64) error {
	if _, err := l.client.PassUser(ctx, l.session.Credentials(), userID); err != nil {
		return apperr.WithFallback(err, msgPassFailed)
	}
	l.remove(userID)
	return nil
}

func (l *LikesInbox) remove(userID int64) (models.UserProfile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, u := range l.users {
		if u.ID == userID {
			l.users = append(l.users[:i:i], l.users[i+1:]...)
			return u, true
		}
	}
	return models.UserProfile{ID: userID}, false
}
