package fakeapi

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"prema-client/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 20
	earthRadiusKm   = 6371.0
)

type browseFilter struct {
	minAge, maxAge int
	gender         string
	maxDistanceKm  float64
}

func parseBrowseFilter(r *http.Request) (browseFilter, int, int) {
	q := r.URL.Query()
	atoi := func(key string, def int) int {
		if v, err := strconv.Atoi(q.Get(key)); err == nil {
			return v
		}
		return def
	}
	f := browseFilter{
		minAge: atoi("min_age", 0),
		maxAge: atoi("max_age", 0),
		gender: q.Get("gender"),
	}
	if v, err := strconv.ParseFloat(q.Get("max_distance"), 64); err == nil {
		f.maxDistanceKm = v
	}
	return f, atoi("skip", 0), atoi("limit", defaultPageSize)
}

func distanceKm(a, b models.User) *float64 {
	if a.LocationLatitude == nil || a.LocationLongitude == nil || b.LocationLatitude == nil || b.LocationLongitude == nil {
		return nil
	}
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	lat1, lat2 := rad(*a.LocationLatitude), rad(*b.LocationLatitude)
	dLat := lat2 - lat1
	dLon := rad(*b.LocationLongitude - *a.LocationLongitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
	return &d
}

func toProfile(u models.User, dist *float64) models.UserProfile {
	return models.UserProfile{
		ID:                u.ID,
		Name:              u.Name,
		Age:               u.Age,
		Bio:               u.Bio,
		Gender:            u.Gender,
		LocationLatitude:  u.LocationLatitude,
		LocationLongitude: u.LocationLongitude,
		Photos:            append([]string(nil), u.Photos...),
		DistanceKm:        dist,
	}
}

// candidates returns every active user the caller has not acted on, in ID
// order. Caller must hold s.mu.
func (s *Server) candidates(userID int64, f browseFilter) []models.UserProfile {
	me := s.accounts[userID].user
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.UserProfile
	for _, id := range ids {
		if id == userID {
			continue
		}
		u := s.accounts[id].user
		if !u.IsActive {
			continue
		}
		if _, acted := s.interactions[pairKey{a: userID, b: id}]; acted {
			continue
		}
		if f.minAge > 0 && u.Age < f.minAge {
			continue
		}
		if f.maxAge > 0 && u.Age > f.maxAge {
			continue
		}
		if f.gender != "" && u.Gender != f.gender {
			continue
		}
		if me.SeekingGender != "" && me.SeekingGender != "both" && u.Gender != me.SeekingGender {
			continue
		}
		dist := distanceKm(me, u)
		if f.maxDistanceKm > 0 && dist != nil && *dist > f.maxDistanceKm {
			continue
		}
		out = append(out, toProfile(u, dist))
	}
	return out
}

// handleBrowse handles GET /discovery/browse.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	f, skip, limit := parseBrowseFilter(r)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if skip < 0 {
		skip = 0
	}

	s.mu.Lock()
	all := s.candidates(userID, f)
	s.mu.Unlock()

	page := []models.UserProfile{}
	if skip < len(all) {
		end := skip + limit
		if end > len(all) {
			end = len(all)
		}
		page = all[skip:end]
	}
	respondJSON(w, models.BrowseResponse{Users: page, Total: len(all), Skip: skip, Limit: limit}, http.StatusOK)
}

func (s *Server) interact(w http.ResponseWriter, r *http.Request, kind string) {
	userID := currentUserID(r.Context())
	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "Invalid user id", http.StatusUnprocessableEntity)
		return
	}
	if targetID == userID {
		respondError(w, "Cannot interact with yourself", http.StatusBadRequest)
		return
	}

	resp, err := s.recordInteraction(userID, targetID, kind)
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

// Like records a like from one user to another, bypassing HTTP.
func (s *Server) Like(from, to int64) error {
	_, err := s.recordInteraction(from, to, models.InteractionLike)
	return err
}

// recordInteraction stores an interaction and creates the match when a like is mutual.
func (s *Server) recordInteraction(userID, targetID int64, kind string) (models.InteractionResponse, error) {
	s.mu.Lock()
	target, ok := s.accounts[targetID]
	if !ok {
		s.mu.Unlock()
		return models.InteractionResponse{}, errUserNotFound
	}
	now := s.now()
	s.interactions[pairKey{a: userID, b: targetID}] = kind
	isMatch := false
	if kind == models.InteractionLike && s.interactions[pairKey{a: targetID, b: userID}] == models.InteractionLike {
		key := newPairKey(userID, targetID)
		if _, exists := s.matches[key]; !exists {
			s.matches[key] = now
		}
		isMatch = true
	}
	resp := models.InteractionResponse{
		ID:              s.allocID(),
		UserID:          userID,
		TargetUserID:    targetID,
		InteractionType: kind,
		Timestamp:       models.NewTimestamp(now),
		TargetUserName:  target.user.Name,
		IsMatch:         isMatch,
	}
	s.mu.Unlock()

	if isMatch {
		log.Info().Int64("user_id", userID).Int64("target_user_id", targetID).Msg("Match created")
		s.hub.Publish(targetID, Event{Type: EventMatch, Data: resp})
	}
	return resp, nil
}

// handleLike handles POST /discovery/like/{id}.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.interact(w, r, models.InteractionLike)
}

// handlePass handles POST /discovery/pass/{id}.
func (s *Server) handlePass(w http.ResponseWriter, r *http.Request) {
	s.interact(w, r, models.InteractionPass)
}

// handleLikes handles GET /discovery/likes: likers the caller has not answered.
func (s *Server) handleLikes(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	s.mu.Lock()
	out := []models.UserProfile{}
	for key, kind := range s.interactions {
		if key.b != userID || kind != models.InteractionLike {
			continue
		}
		if _, answered := s.interactions[pairKey{a: userID, b: key.a}]; answered {
			continue
		}
		liker := s.accounts[key.a].user
		out = append(out, toProfile(liker, distanceKm(s.accounts[userID].user, liker)))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	respondJSON(w, out, http.StatusOK)
}

// handleMatches handles GET /discovery/matches, newest first.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	s.mu.Lock()
	out := []models.MatchResponse{}
	for key, at := range s.matches {
		var peer int64
		switch userID {
		case key.a:
			peer = key.b
		case key.b:
			peer = key.a
		default:
			continue
		}
		u := s.accounts[peer].user
		out = append(out, models.MatchResponse{
			ID:        u.ID,
			Name:      u.Name,
			Age:       u.Age,
			Bio:       u.Bio,
			Photos:    append([]string(nil), u.Photos...),
			MatchedAt: models.NewTimestamp(at),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchedAt.Equal(out[j].MatchedAt.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].MatchedAt.After(out[j].MatchedAt.Time)
	})
	respondJSON(w, out, http.StatusOK)
}

// handleUnmatch handles DELETE /discovery/matches/{id}. The match and both
// likes are removed.
func (s *Server) handleUnmatch(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	peer, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "Invalid user id", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	key := newPairKey(userID, peer)
	_, ok := s.matches[key]
	if ok {
		delete(s.matches, key)
		delete(s.interactions, pairKey{a: userID, b: peer})
		delete(s.interactions, pairKey{a: peer, b: userID})
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, "Match not found", http.StatusNotFound)
		return
	}
	s.hub.Publish(peer, Event{Type: EventUnmatch, Data: map[string]int64{"user_id": userID}})
	respondJSON(w, models.UnmatchResponse{Message: "Successfully unmatched"}, http.StatusOK)
}

func nextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// handleSpin handles POST /discovery/spin.
func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	s.mu.Lock()
	remaining := s.spins[userID]
	if remaining <= 0 {
		s.mu.Unlock()
		respondJSON(w, models.SpinResponse{Success: false, Message: "No spins remaining! Come back tomorrow."}, http.StatusOK)
		return
	}
	pool := s.candidates(userID, browseFilter{})
	if len(pool) == 0 {
		s.mu.Unlock()
		respondJSON(w, models.SpinResponse{Success: false, SpinsRemaining: remaining, Message: "No profiles available right now"}, http.StatusOK)
		return
	}
	remaining--
	s.spins[userID] = remaining
	profile := pool[0]
	s.mu.Unlock()

	respondJSON(w, models.SpinResponse{Success: true, Profile: &profile, SpinsRemaining: remaining, Message: "Spin successful"}, http.StatusOK)
}

// handleSpinStatus handles GET /discovery/spin-status.
func (s *Server) handleSpinStatus(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	s.mu.Lock()
	status := models.SpinStatus{SpinsRemaining: s.spins[userID], ResetsAt: models.NewTimestamp(nextReset(s.now()))}
	s.mu.Unlock()

	respondJSON(w, status, http.StatusOK)
}
