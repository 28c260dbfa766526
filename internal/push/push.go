// Package push registers the device push channel with the backend and reads
// the data attached to incoming notifications.
package push

import (
	"context"
	"errors"
	"fmt"

	"prema-client/internal/api"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrPermissionDenied is returned by a TokenSource when the user declined
// notifications.
var ErrPermissionDenied = errors.New("notification permission not granted")

// TokenSource yields the device push token.
type TokenSource interface {
	PushToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource with a fixed token.
type StaticToken string

func (t StaticToken) PushToken(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("no push token configured")
	}
	return string(t), nil
}

// Registrar sends the device token to the backend.
type Registrar struct {
	client *api.Client
	source TokenSource
	logger zerolog.Logger
}

// NewRegistrar creates a new registrar
func NewRegistrar(client *api.Client, source TokenSource, logger *zerolog.Logger) *Registrar {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Registrar{client: client, source: source, logger: l}
}

// Register obtains the device token and stores it for the account. It
// returns the registered token.
func (r *Registrar) Register(ctx context.Context, creds api.Credentials) (string, error) {
	if creds.IsZero() {
		return "", fmt.Errorf("cannot register for push notifications: no auth token")
	}
	if r.source == nil {
		return "", fmt.Errorf("no push token source")
	}

	token, err := r.source.PushToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get push token: %w", err)
	}
	if err := r.client.RegisterPushToken(ctx, creds, token); err != nil {
		return "", fmt.Errorf("failed to register push token with backend: %w", err)
	}

	r.logger.Info().Msg("Push notifications initialized")
	return token, nil
}
