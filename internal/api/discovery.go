package api

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"prema-client/internal/models"
)

// Filter values that mean "no constraint" and are never sent.
const (
	NoMinAge      = 18
	NoMaxAge      = 80
	NoMaxDistance = 125 // miles

	kmPerMile = 1 / 0.621371
)

var (
	opBrowse     = operation{name: "browse_users", fallback: "Failed to browse users"}
	opLike       = operation{name: "like_user", fallback: "Failed to like user"}
	opPass       = operation{name: "pass_user", fallback: "Failed to pass user"}
	opLikes      = operation{name: "get_likes", fallback: "Failed to get users who liked you"}
	opMatches    = operation{name: "get_matches", fallback: "Failed to get matches"}
	opUnmatch    = operation{name: "unmatch_user", fallback: "Failed to unmatch user"}
	opSpin       = operation{name: "spin", fallback: "Failed to spin. Please try again."}
	opSpinStatus = operation{name: "spin_status", fallback: "Failed to load spin status"}
)

// BrowseQuery builds the browse query string. Sentinel filters are left out
// so the server applies no constraint; distance is converted from miles to
// whole kilometres.
func BrowseQuery(p models.BrowseParams) url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.MinAge > NoMinAge {
		q.Set("min_age", strconv.Itoa(p.MinAge))
	}
	if p.MaxAge > 0 && p.MaxAge < NoMaxAge {
		q.Set("max_age", strconv.Itoa(p.MaxAge))
	}
	if p.Gender != "" {
		q.Set("gender", p.Gender)
	}
	if p.MaxDistance > 0 && p.MaxDistance < NoMaxDistance {
		km := int(math.Round(float64(p.MaxDistance) * kmPerMile))
		q.Set("max_distance", strconv.Itoa(km))
	}
	return q
}

// BrowseUsers returns one page of candidates.
func (c *Client) BrowseUsers(ctx context.Context, creds Credentials, p models.BrowseParams) (*models.BrowseResponse, error) {
	var out models.BrowseResponse
	req := c.request(ctx, creds, &out).SetQueryParamsFromValues(BrowseQuery(p))
	if _, err := c.execute(opBrowse, req, http.MethodGet, "/discovery/browse"); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeUser records a like. The response's IsMatch reports a mutual match.
func (c *Client) LikeUser(ctx context.Context, creds Credentials, userID int64) (*models.InteractionResponse, error) {
	return c.interact(ctx, creds, opLike, "/discovery/like/{id}", userID)
}

// PassUser records a pass.
func (c *Client) PassUser(ctx context.Context, creds Credentials, userID int64) (*models.InteractionResponse, error) {
	return c.interact(ctx, creds, opPass, "/discovery/pass/{id}", userID)
}

func (c *Client) interact(ctx context.Context, creds Credentials, op operation, path string, userID int64) (*models.InteractionResponse, error) {
	var out models.InteractionResponse
	req := c.request(ctx, creds, &out).SetPathParam("id", strconv.FormatInt(userID, 10))
	if _, err := c.execute(op, req, http.MethodPost, path); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsersWhoLikedMe lists pending likers.
func (c *Client) GetUsersWhoLikedMe(ctx context.Context, creds Credentials) ([]models.UserProfile, error) {
	var out []models.UserProfile
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opLikes, req, http.MethodGet, "/discovery/likes"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMatches lists mutual matches.
func (c *Client) GetMatches(ctx context.Context, creds Credentials) ([]models.MatchResponse, error) {
	var out []models.MatchResponse
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opMatches, req, http.MethodGet, "/discovery/matches"); err != nil {
		return nil, err
	}
	return out, nil
}

// UnmatchUser removes the match on both sides.
func (c *Client) UnmatchUser(ctx context.Context, creds Credentials, userID int64) (*models.UnmatchResponse, error) {
	var out models.UnmatchResponse
	req := c.request(ctx, creds, &out).SetPathParam("id", strconv.FormatInt(userID, 10))
	if _, err := c.execute(opUnmatch, req, http.MethodDelete, "/discovery/matches/{id}"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Spin draws one slot machine profile.
func (c *Client) Spin(ctx context.Context, creds Credentials) (*models.SpinResponse, error) {
	var out models.SpinResponse
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opSpin, req, http.MethodPost, "/discovery/spin"); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpinStatus reports remaining spins.
func (c *Client) SpinStatus(ctx context.Context, creds Credentials) (*models.SpinStatus, error) {
	var out models.SpinStatus
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opSpinStatus, req, http.MethodGet, "/discovery/spin-status"); err != nil {
		return nil, err
	}
	return &out, nil
}
