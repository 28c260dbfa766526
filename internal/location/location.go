// Package location pushes the device position to the profile at most once
// per interval. Every failure is swallowed: location is an enhancement and
// must never block the caller.
package location

import (
	"context"
	"errors"
	"time"

	"prema-client/internal/models"
	"prema-client/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the minimum time between two updates.
const DefaultInterval = 10 * time.Minute

// ErrPermissionDenied is returned by a Provider when location access was
// refused.
var ErrPermissionDenied = errors.New("location permission not granted")

// Coordinates is a position fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Provider yields the current device position.
type Provider interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// Fixed is a Provider that always reports the same position.
type Fixed Coordinates

func (f Fixed) CurrentPosition(context.Context) (Coordinates, error) {
	return Coordinates(f), nil
}

// Profile is the part of the session the updater needs.
type Profile interface {
	User() *models.User
	UpdateUser(ctx context.Context, update models.ProfileUpdate) error
}

// Updater applies throttled location updates.
type Updater struct {
	profile  Profile
	provider Provider
	store    storage.Store
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewUpdater creates a new updater. A non-positive interval uses
// DefaultInterval.
func NewUpdater(profile Profile, provider Provider, store storage.Store, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Updater{
		profile:  profile,
		provider: provider,
		store:    store,
		interval: interval,
		now:      time.Now,
		logger:   log.Logger,
	}
}

// SetClock replaces the time source.
func (u *Updater) SetClock(now func() time.Time) { u.now = now }

// Update pushes the current position when due. It reports whether the
// profile was updated.
func (u *Updater) Update(ctx context.Context) bool {
	if u.profile.User() == nil {
		u.logger.Debug().Msg("No user logged in, skipping location update")
		return false
	}

	last, ok, err := storage.LastLocationUpdate(ctx, u.store)
	if err != nil {
		u.logger.Warn().Err(err).Msg("Failed to read last location update")
	}
	if ok {
		since := u.now().Sub(last)
		if since < u.interval {
			u.logger.Debug().Dur("since", since).Msg("Location update throttled")
			return false
		}
	}

	pos, err := u.provider.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			u.logger.Info().Msg("Location permission not granted")
		} else {
			u.logger.Error().Err(err).Msg("Error getting location")
		}
		return false
	}

	lat, lon := pos.Latitude, pos.Longitude
	if err := u.profile.UpdateUser(ctx, models.ProfileUpdate{
		LocationLatitude:  &lat,
		LocationLongitude: &lon,
	}); err != nil {
		u.logger.Error().Err(err).Msg("Error updating location")
		return false
	}

	if err := storage.SetLastLocationUpdate(ctx, u.store, u.now()); err != nil {
		u.logger.Warn().Err(err).Msg("Failed to record location update time")
	}

	u.logger.Info().
		Float64("latitude", lat).
		Float64("longitude", lon).
		Msg("Location updated")
	return true
}
