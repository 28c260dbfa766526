package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prema-client/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

type contextKey string

const userIDKey contextKey = "user_id"

// IssueToken signs an access token for userID that expires after ttl.
func (s *Server) IssueToken(userID int64, ttl time.Duration) (string, error) {
	now := s.clock()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a token and returns the user ID.
func (s *Server) ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	raw, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("user_id not found in token")
	}
	userID := int64(raw)

	s.mu.Lock()
	_, exists := s.accounts[userID]
	s.mu.Unlock()
	if !exists {
		return 0, fmt.Errorf("user %d no longer exists", userID)
	}
	return userID, nil
}

func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		userID, err := s.ValidateToken(parts[1])
		if err != nil {
			respondError(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// SeedUser creates an account directly, bypassing HTTP.
func (s *Server) SeedUser(data models.RegisterData) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(data.Email))
	if _, exists := s.byEmail[email]; exists {
		return models.User{}, errEmailTaken
	}

	seeking := data.SeekingGender
	if seeking == "" {
		seeking = "both"
	}
	user := models.User{
		ID:                s.allocID(),
		Email:             email,
		Name:              data.Name,
		Age:               data.Age,
		Bio:               data.Bio,
		Gender:            data.Gender,
		SeekingGender:     seeking,
		LocationLatitude:  data.LocationLatitude,
		LocationLongitude: data.LocationLongitude,
		Photos:            append([]string{}, data.Photos...),
		Preferences:       data.Preferences,
		IsActive:          true,
		CreatedAt:         models.NewTimestamp(s.now()),
	}
	s.accounts[user.ID] = &account{user: user, passwordHash: hash}
	s.byEmail[email] = user.ID
	s.spins[user.ID] = defaultDailySpins
	return user, nil
}

// User returns the stored account.
func (s *Server) User(id int64) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.User{}, false
	}
	return *acc.user.Clone(), true
}

// PushToken returns the push token registered for id.
func (s *Server) PushToken(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[id]; ok {
		return acc.pushToken
	}
	return ""
}

// ResetTokenFor returns the last reset token issued for email.
func (s *Server) ResetTokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.byEmail[strings.ToLower(email)]
	for tok, uid := range s.resetTokens {
		if uid == id {
			return tok
		}
	}
	return ""
}

// handleLogin handles POST /auth/login with form fields username/password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")

	s.mu.Lock()
	id, ok := s.byEmail[email]
	var hash []byte
	if ok {
		hash = s.accounts[id].passwordHash
	}
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		respondError(w, "Incorrect email or password", http.StatusUnauthorized)
		return
	}

	token, err := s.IssueToken(id, tokenTTL)
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to issue token")
		respondError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	respondJSON(w, models.TokenResponse{AccessToken: token, TokenType: "bearer"}, http.StatusOK)
}

// handleRegister handles POST /auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}
	if err := models.Validate(req); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	user, err := s.SeedUser(req)
	if err == errEmailTaken {
		respondError(w, "Email already registered", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	respondJSON(w, user, http.StatusOK)
}

// handleMe handles GET /auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.User(currentUserID(r.Context()))
	if !ok {
		respondError(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, user, http.StatusOK)
}

// handleForgotPassword always answers 200 so account existence is not leaked.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	if id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]; ok {
		s.resetTokens[uuid.NewString()] = id
	}
	s.mu.Unlock()

	respondJSON(w, map[string]string{"message": "If the email exists, a reset link has been sent"}, http.StatusOK)
}

// handleResetPassword handles POST /auth/reset-password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		respondError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	id, ok := s.resetTokens[req.Token]
	if ok {
		delete(s.resetTokens, req.Token)
		s.accounts[id].passwordHash = hash
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, "Invalid or expired reset token", http.StatusBadRequest)
		return
	}
	respondJSON(w, map[string]string{"message": "Password has been reset"}, http.StatusOK)
}
