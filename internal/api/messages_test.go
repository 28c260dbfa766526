package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagingRoundTrip(t *testing.T) {
	srv, c := newBackend(t)
	ctx := context.Background()
	ann := seed(t, srv, "ann@example.com", "Ann", 29, "female")
	bob := seed(t, srv, "bob@example.com", "Bob", 31, "male")
	annCreds := login(t, c, "ann@example.com")
	bobCreds := login(t, c, "bob@example.com")

	_, err := c.SendMessage(ctx, annCreds, bob.ID, "hi")
	assert.EqualError(t, err, "You can only message your matches")

	_, err = c.LikeUser(ctx, annCreds, bob.ID)
	require.NoError(t, err)
	like, err := c.LikeUser(ctx, bobCreds, ann.ID)
	require.NoError(t, err)
	require.True(t, like.IsMatch)

	msg, err := c.SendMessage(ctx, annCreds, bob.ID, "hi bob")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, msg.SenderID)
	assert.Equal(t, "Bob", msg.ReceiverName)
	assert.False(t, msg.IsRead)

	convs, err := c.GetConversations(ctx, bobCreds)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, ann.ID, convs[0].UserID)
	assert.Equal(t, 1, convs[0].UnreadCount)

	thread, err := c.GetMessagesWithUser(ctx, bobCreds, ann.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)

	read, err := c.MarkMessageAsRead(ctx, bobCreds, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	again, err := c.MarkMessageAsRead(ctx, bobCreds, msg.ID)
	require.NoError(t, err, "marking twice must not fail")
	assert.True(t, again.IsRead)

	_, err = c.MarkMessageAsRead(ctx, annCreds, msg.ID)
	assert.Error(t, err)

	_, err = c.MarkMessageAsRead(ctx, bobCreds, 9999)
	assert.EqualError(t, err, "Message not found")
}
