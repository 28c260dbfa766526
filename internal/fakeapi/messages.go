package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"prema-client/internal/models"

	"github.com/go-chi/chi/v5"
)

// handleSendMessage handles POST /messages/send.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var req struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	receiver, ok := s.accounts[req.ReceiverID]
	if !ok {
		s.mu.Unlock()
		respondError(w, "Receiver not found", http.StatusNotFound)
		return
	}
	if _, matched := s.matches[newPairKey(userID, req.ReceiverID)]; !matched {
		s.mu.Unlock()
		respondError(w, "You can only message your matches", http.StatusForbidden)
		return
	}
	msg := models.Message{
		ID:           s.allocID(),
		SenderID:     userID,
		ReceiverID:   req.ReceiverID,
		Content:      req.Content,
		Timestamp:    models.NewTimestamp(s.now()),
		SenderName:   s.accounts[userID].user.Name,
		ReceiverName: receiver.user.Name,
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.hub.Publish(req.ReceiverID, Event{Type: EventNewMessage, Data: msg})
	respondJSON(w, msg, http.StatusOK)
}

// handleConversations handles GET /messages/conversations, most recent first.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	s.mu.Lock()
	byPeer := make(map[int64]*models.ConversationSummary)
	for i := range s.messages {
		m := s.messages[i]
		var peer int64
		switch userID {
		case m.SenderID:
			peer = m.ReceiverID
		case m.ReceiverID:
			peer = m.SenderID
		default:
			continue
		}
		sum, ok := byPeer[peer]
		if !ok {
			sum = &models.ConversationSummary{UserID: peer, UserName: s.accounts[peer].user.Name}
			byPeer[peer] = sum
		}
		content := m.Content
		ts := m.Timestamp
		sum.LastMessage = &content
		sum.LastMessageTime = &ts
		if m.ReceiverID == userID && !m.IsRead {
			sum.UnreadCount++
		}
	}
	s.mu.Unlock()

	out := make([]models.ConversationSummary, 0, len(byPeer))
	for _, sum := range byPeer {
		out = append(out, *sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime.Time)
	})
	respondJSON(w, out, http.StatusOK)
}

// handleConversation handles GET /messages/conversation/{user_id}, oldest first.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	peer, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		respondError(w, "Invalid user id", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	out := []models.Message{}
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == peer) || (m.SenderID == peer && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	s.mu.Unlock()

	respondJSON(w, out, http.StatusOK)
}

// handleMarkRead handles PUT /messages/{id}/read. Marking twice is a no-op.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "Invalid message id", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID != id {
			continue
		}
		if m.ReceiverID != userID {
			respondError(w, "Not authorized to mark this message as read", http.StatusForbidden)
			return
		}
		m.IsRead = true
		respondJSON(w, *m, http.StatusOK)
		return
	}
	respondError(w, "Message not found", http.StatusNotFound)
}

// Messages returns every stored message.
func (s *Server) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}
