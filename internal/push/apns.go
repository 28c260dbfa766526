package push

import (
	"context"
	"fmt"

	"prema-client/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsSender delivers test notifications straight to Apple, bypassing the
// backend. Used to check a device token end to end.
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender creates a sender authenticated with a .p8 signing key.
func NewAPNsSender(cfg config.PushConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	tok := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tok)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return &APNsSender{client: client, topic: cfg.Topic}, nil
}

// BuildPayload renders the alert with the notification data attached.
func BuildPayload(title, body string, data NotificationData) *payload.Payload {
	p := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default").Badge(1)
	if data.Type != "" {
		p.Custom("type", data.Type)
	}
	if data.Screen != "" {
		p.Custom("screen", data.Screen)
	}
	for k, v := range data.Extra {
		p.Custom(k, v)
	}
	return p
}

// Send pushes one notification to deviceToken.
func (s *APNsSender) Send(ctx context.Context, deviceToken, title, body string, data NotificationData) error {
	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     BuildPayload(title, body, data),
	}

	res, err := s.client.PushWithContext(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	log.Info().Str("apns_id", res.ApnsID).Msg("Notification sent")
	return nil
}
