// Package discovery holds the candidate browsing state: the paged browse
// feed, the inbox of people who liked the user, the match list and the
// slot machine.
package discovery

import (
	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/models"
	"prema-client/internal/storage"
)

// Errors returned by interactions.
var (
	ErrNoCandidate = apperr.New("No candidate to act on")
	ErrBusy        = apperr.New("Another interaction is in progress")
)

// Session supplies the caller's credentials.
type Session interface {
	Credentials() api.Credentials
}

// Filter defaults. Age bounds at the sentinels are not sent to the server.
const (
	DefaultMaxDistance = 15 // miles
	DefaultMinAge      = api.NoMinAge
	DefaultMaxAge      = api.NoMaxAge
)

// Filters are the user-adjustable browse filters.
type Filters struct {
	MaxDistance int // miles
	MinAge      int
	MaxAge      int
}

// DefaultFilters returns the filters used before any are saved.
func DefaultFilters() Filters {
	return Filters{MaxDistance: DefaultMaxDistance, MinAge: DefaultMinAge, MaxAge: DefaultMaxAge}
}

// Params builds the browse request for one page.
func (f Filters) Params(skip, limit int) models.BrowseParams {
	return models.BrowseParams{
		Skip:        skip,
		Limit:       limit,
		MinAge:      f.MinAge,
		MaxAge:      f.MaxAge,
		MaxDistance: f.MaxDistance,
	}
}

// applyPreferences overlays the fields present in saved preferences.
func (f Filters) applyPreferences(p storage.FilterPreferences) Filters {
	if p.MaxDistance != nil {
		f.MaxDistance = *p.MaxDistance
	}
	if p.MinAge != nil {
		f.MinAge = *p.MinAge
	}
	if p.MaxAge != nil {
		f.MaxAge = *p.MaxAge
	}
	return f
}

func (f Filters) preferences() storage.FilterPreferences {
	d, lo, hi := f.MaxDistance, f.MinAge, f.MaxAge
	return storage.FilterPreferences{MaxDistance: &d, MinAge: &lo, MaxAge: &hi}
}

// LikeResult is the outcome of a like. Matched must be checked by every
// caller: it is the only signal of a new mutual match.
type LikeResult struct {
	Candidate   models.UserProfile
	Interaction *models.InteractionResponse
	Matched     bool
}
