// Package storage persists small client state across restarts: the auth
// token, browse filter preferences and the last location update time.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Keys used by the client.
const (
	KeyAuthToken          = "authToken"
	KeyBrowseFilters      = "browseFilters"
	KeyLastLocationUpdate = "lastLocationUpdate"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// LoadToken returns the persisted auth token, or "" when none is stored.
func LoadToken(ctx context.Context, s Store) (string, error) {
	tok, err := s.Get(ctx, KeyAuthToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SaveToken persists the auth token.
func SaveToken(ctx context.Context, s Store, token string) error {
	return s.Set(ctx, KeyAuthToken, token)
}

// ClearToken removes the auth token.
func ClearToken(ctx context.Context, s Store) error {
	return s.Remove(ctx, KeyAuthToken)
}

// FilterPreferences are the saved browse filters. MaxDistance is in miles.
type FilterPreferences struct {
	MaxDistance *int `json:"maxDistance,omitempty"`
	MinAge      *int `json:"minAge,omitempty"`
	MaxAge      *int `json:"maxAge,omitempty"`
}

// LoadFilters returns the saved filters; ok is false when none are stored.
func LoadFilters(ctx context.Context, s Store) (FilterPreferences, bool, error) {
	var prefs FilterPreferences
	raw, err := s.Get(ctx, KeyBrowseFilters)
	if errors.Is(err, ErrNotFound) {
		return prefs, false, nil
	}
	if err != nil {
		return prefs, false, err
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return prefs, false, fmt.Errorf("failed to parse browse filters: %w", err)
	}
	return prefs, true, nil
}

// SaveFilters persists the browse filters.
func SaveFilters(ctx context.Context, s Store, prefs FilterPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode browse filters: %w", err)
	}
	return s.Set(ctx, KeyBrowseFilters, string(data))
}

// LastLocationUpdate returns when coordinates were last pushed.
func LastLocationUpdate(ctx context.Context, s Store) (time.Time, bool, error) {
	raw, err := s.Get(ctx, KeyLastLocationUpdate)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last location update: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// SetLastLocationUpdate records t as unix milliseconds.
func SetLastLocationUpdate(ctx context.Context, s Store, t time.Time) error {
	return s.Set(ctx, KeyLastLocationUpdate, strconv.FormatInt(t.UnixMilli(), 10))
}
