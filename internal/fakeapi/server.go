// Package fakeapi is an in-memory implementation of the Prema backend used by
// tests and by `premactl mock-server` for local development.
package fakeapi

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"prema-client/internal/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const defaultDailySpins = 15

type account struct {
	user         models.User
	passwordHash []byte
	pushToken    string
}

type pairKey struct{ a, b int64 }

func newPairKey(x, y int64) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// RecordedRequest is one request seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	ContentType   string
}

// Failure forces a canned error response. Times is the number of requests
// that fail before the route recovers; zero fails forever.
type Failure struct {
	Status int
	Detail string
	Times  int
}

// Server is the mock backend.
type Server struct {
	mu           sync.Mutex
	secret       []byte
	now          func() time.Time
	nextID       int64
	accounts     map[int64]*account
	byEmail      map[string]int64
	interactions map[pairKey]string // directed: a acted on b
	matches      map[pairKey]time.Time
	messages     []models.Message
	spins        map[int64]int
	resetTokens  map[string]int64
	failures     map[string]*Failure
	requests     []RecordedRequest
	hub          *Hub
}

// New creates an empty backend signing tokens with secret.
func New(secret string) *Server {
	return &Server{
		secret:       []byte(secret),
		now:          func() time.Time { return time.Now().UTC() },
		accounts:     make(map[int64]*account),
		byEmail:      make(map[string]int64),
		interactions: make(map[pairKey]string),
		matches:      make(map[pairKey]time.Time),
		spins:        make(map[int64]int),
		resetTokens:  make(map[string]int64),
		failures:     make(map[string]*Failure),
		hub:          NewHub(),
	}
}

// SetClock replaces the time source.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
		r.With(s.authMiddleware).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Put("/users/profile", s.handleUpdateProfile)
		r.Post("/users/push-token", s.handlePushToken)
		r.Post("/users/photos/upload", s.handleUploadPhoto)
		r.Delete("/users/photos/{filename}", s.handleDeletePhoto)

		r.Post("/messages/send", s.handleSendMessage)
		r.Get("/messages/conversations", s.handleConversations)
		r.Get("/messages/conversation/{user_id}", s.handleConversation)
		r.Put("/messages/{id}/read", s.handleMarkRead)

		r.Get("/discovery/browse", s.handleBrowse)
		r.Post("/discovery/like/{id}", s.handleLike)
		r.Post("/discovery/pass/{id}", s.handlePass)
		r.Get("/discovery/likes", s.handleLikes)
		r.Get("/discovery/matches", s.handleMatches)
		r.Delete("/discovery/matches/{id}", s.handleUnmatch)
		r.Post("/discovery/spin", s.handleSpin)
		r.Get("/discovery/spin-status", s.handleSpinStatus)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// Fail makes every request to "METHOD path" fail as described.
func (s *Server) Fail(method, path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &f
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// RequestsTo filters recorded requests by method and path.
func (s *Server) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		var status int
		var detail string
		if ok {
			status, detail = f.Status, f.Detail
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(s.failures, key)
				}
			}
		}
		s.mu.Unlock()

		if ok {
			if detail == "" {
				w.WriteHeader(status)
				return
			}
			respondError(w, detail, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}
