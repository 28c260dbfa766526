package discovery

import (
	"context"
	"sync"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/models"
)

// DefaultDailySpins is assumed until the status has been loaded.
const DefaultDailySpins = 15

// ErrNoSpins is returned without a network call when no spins are left.
var ErrNoSpins = apperr.New("No spins remaining! Come back tomorrow.")

const msgSpinFailed = "Failed to spin. Please try again."

// SlotMachine draws one random candidate per spin from a daily allowance.
type SlotMachine struct {
	client  *api.Client
	session Session

	mu        sync.Mutex
	remaining int
	current   *models.UserProfile
	spinning  bool
}

// NewSlotMachine creates a new slot machine
func NewSlotMachine(client *api.Client, session Session) *SlotMachine {
	return &SlotMachine{client: client, session: session, remaining: DefaultDailySpins}
}

// Status refreshes the remaining spin count.
func (s *SlotMachine) Status(ctx context.Context) (*models.SpinStatus, error) {
	status, err := s.client.SpinStatus(ctx, s.session.Credentials())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.remaining = status.SpinsRemaining
	s.mu.Unlock()
	return status, nil
}

// SpinsRemaining returns the last known allowance.
func (s *SlotMachine) SpinsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Current is the profile drawn by the last successful spin.
func (s *SlotMachine) Current() (models.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.UserProfile{}, false
	}
	return *s.current, true
}

// Spin draws a profile. An unsuccessful spin is reported as an error
// carrying the server's message.
func (s *SlotMachine) Spin(ctx context.Context) (models.UserProfile, error) {
	s.mu.Lock()
	if s.spinning {
		s.mu.Unlock()
		return models.UserProfile{}, ErrBusy
	}
	if s.remaining <= 0 {
		s.mu.Unlock()
		return models.UserProfile{}, ErrNoSpins
	}
	s.spinning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.spinning = false
		s.mu.Unlock()
	}()

	resp, err := s.client.Spin(ctx, s.session.Credentials())
	if err != nil {
		return models.UserProfile{}, err
	}

	s.mu.Lock()
	s.remaining = resp.SpinsRemaining
	if resp.Success && resp.Profile != nil {
		p := *resp.Profile
		s.current = &p
	}
	s.mu.Unlock()

	if !resp.Success || resp.Profile == nil {
		msg := resp.Message
		if msg == "" {
			msg = msgSpinFailed
		}
		return models.UserProfile{}, apperr.New(msg)
	}
	return *resp.Profile, nil
}

// Like likes the drawn profile and clears it.
func (s *SlotMachine) Like(ctx context.Context) (LikeResult, error) {
	cand, ok := s.Current()
	if !ok {
		return LikeResult{}, ErrNoCandidate
	}
	resp, err := s.client.LikeUser(ctx, s.session.Credentials(), cand.ID)
	if err != nil {
		return LikeResult{}, apperr.WithFallback(err, msgLikeFailed)
	}
	s.clear()
	return LikeResult{Candidate: cand, Interaction: resp, Matched: resp.IsMatch}, nil
}

// Pass passes on the drawn profile and clears it.
func (s *SlotMachine) Pass(ctx context.Context) error {
	cand, ok := s.Current()
	if !ok {
		return ErrNoCandidate
	}
	if _, err := s.client.PassUser(ctx, s.session.Credentials(), cand.ID); err != nil {
		return apperr.WithFallback(err, msgPassFailed)
	}
	s.clear()
	return nil
}

func (s *SlotMachine) clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
