package chat

import (
	"context"
	"sync"

	"prema-client/internal/api"
	"prema-client/internal/models"
)

// Inbox is the conversation list.
type Inbox struct {
	client  *api.Client
	session Session

	mu            sync.Mutex
	conversations []models.ConversationSummary
}

// NewInbox creates a new inbox
func NewInbox(client *api.Client, session Session) *Inbox {
	return &Inbox{client: client, session: session}
}

// Load replaces the list with the server's.
func (in *Inbox) Load(ctx context.Context) ([]models.ConversationSummary, error) {
	list, err := in.client.GetConversations(ctx, in.session.Credentials())
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	in.conversations = list
	in.mu.Unlock()
	return append([]models.ConversationSummary(nil), list...), nil
}

// Conversations returns the last loaded list.
func (in *Inbox) Conversations() []models.ConversationSummary {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]models.ConversationSummary(nil), in.conversations...)
}

// UnreadTotal sums unread counts over the loaded list.
func (in *Inbox) UnreadTotal() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	var n int
	for _, c := range in.conversations {
		n += c.UnreadCount
	}
	return n
}
