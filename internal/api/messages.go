package api

import (
	"context"
	"net/http"
	"strconv"

	"prema-client/internal/models"
)

var (
	opSendMessage      = operation{name: "send_message", fallback: "Failed to send message"}
	opGetConversations = operation{name: "get_conversations", fallback: "Failed to get conversations"}
	opGetMessages      = operation{name: "get_messages", fallback: "Failed to get messages"}
	opMarkRead         = operation{name: "mark_message_read", fallback: "Failed to mark message as read"}
)

type sendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendMessage posts a message to receiverID.
func (c *Client) SendMessage(ctx context.Context, creds Credentials, receiverID int64, content string) (*models.Message, error) {
	var out models.Message
	req := c.request(ctx, creds, &out).SetBody(sendMessageRequest{ReceiverID: receiverID, Content: content})
	if _, err := c.execute(opSendMessage, req, http.MethodPost, "/messages/send"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversations lists conversation summaries in server order.
func (c *Client) GetConversations(ctx context.Context, creds Credentials) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opGetConversations, req, http.MethodGet, "/messages/conversations"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMessagesWithUser returns the thread with userID.
func (c *Client) GetMessagesWithUser(ctx context.Context, creds Credentials, userID int64) ([]models.Message, error) {
	var out []models.Message
	req := c.request(ctx, creds, &out).SetPathParam("user_id", strconv.FormatInt(userID, 10))
	if _, err := c.execute(opGetMessages, req, http.MethodGet, "/messages/conversation/{user_id}"); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkMessageAsRead flags a message as read. Repeating the call is harmless.
func (c *Client) MarkMessageAsRead(ctx context.Context, creds Credentials, messageID int64) (*models.Message, error) {
	var out models.Message
	req := c.request(ctx, creds, &out).SetPathParam("id", strconv.FormatInt(messageID, 10))
	if _, err := c.execute(opMarkRead, req, http.MethodPut, "/messages/{id}/read"); err != nil {
		return nil, err
	}
	return &out, nil
}
