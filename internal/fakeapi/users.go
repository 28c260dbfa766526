package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"prema-client/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	errEmailTaken   = errors.New("email already registered")
	errUserNotFound = errors.New("User not found")
)

const maxPhotos = 6

// handleUpdateProfile handles PUT /users/profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var req models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}
	if err := models.Validate(req); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	acc := s.accounts[userID]
	u := &acc.user
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Age != nil {
		u.Age = *req.Age
	}
	if req.Bio != nil {
		u.Bio = req.Bio
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.SeekingGender != nil {
		u.SeekingGender = *req.SeekingGender
	}
	if req.LocationLatitude != nil {
		u.LocationLatitude = req.LocationLatitude
	}
	if req.LocationLongitude != nil {
		u.LocationLongitude = req.LocationLongitude
	}
	if req.Photos != nil {
		u.Photos = append([]string{}, (*req.Photos)...)
	}
	updated := models.NewTimestamp(s.now())
	u.UpdatedAt = &updated
	out := *u.Clone()
	s.mu.Unlock()

	respondJSON(w, out, http.StatusOK)
}

// handlePushToken handles POST /users/push-token.
func (s *Server) handlePushToken(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	token := r.FormValue("push_token")
	if token == "" {
		respondError(w, "push_token is required", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.accounts[userID].pushToken = token
	s.mu.Unlock()

	log.Info().Int64("user_id", userID).Msg("Push token registered")
	respondJSON(w, map[string]string{"message": "Push token registered"}, http.StatusOK)
}

// handleUploadPhoto handles POST /users/photos/upload with multipart field "file".
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, "Invalid multipart body", http.StatusUnprocessableEntity)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusUnprocessableEntity)
		return
	}
	file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		respondError(w, "Only image uploads are allowed", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	u := &s.accounts[userID].user
	if len(u.Photos) >= maxPhotos {
		s.mu.Unlock()
		respondError(w, "Maximum number of photos reached", http.StatusBadRequest)
		return
	}
	name := uuid.NewString() + path.Ext(header.Filename)
	u.Photos = append(u.Photos, "/uploads/"+name)
	photos := append([]string(nil), u.Photos...)
	s.mu.Unlock()

	respondJSON(w, models.PhotosResponse{Photos: photos}, http.StatusOK)
}

// handleDeletePhoto handles DELETE /users/photos/{filename}.
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	filename := chi.URLParam(r, "filename")

	s.mu.Lock()
	u := &s.accounts[userID].user
	kept := u.Photos[:0:0]
	found := false
	for _, p := range u.Photos {
		if path.Base(p) == filename {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	u.Photos = kept
	photos := append([]string(nil), kept...)
	s.mu.Unlock()

	if !found {
		respondError(w, "Photo not found", http.StatusNotFound)
		return
	}
	respondJSON(w, models.PhotosResponse{Photos: photos}, http.StatusOK)
}
