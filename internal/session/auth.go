package session

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	"prema-client/internal/models"
	"prema-client/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

const (
	loginFailedMessage    = "Login failed. Please try again."
	notLoggedInMessage    = "You are not logged in"
	resetFailedMessage    = "Failed to reset password. Please try again."
	emptyEmailMessage     = "Please enter your email address"
	invalidEmailMessage   = "Please enter a valid email address"
	emptyFieldsMessage    = "Please fill in all fields"
	shortPasswordMessage  = "Password must be at least 6 characters long"
	passwordMismatch      = "Passwords do not match"
	invalidResetTokenText = "Invalid reset token"
	minPasswordLength     = 6
)

// Initialize restores the session from storage. A missing, expired or
// rejected token leaves the session signed out; it is not an error. Loading
// ends exactly once, whatever the outcome. Later calls return the current
// state without doing anything.
func (m *Manager) Initialize(ctx context.Context) State {
	m.initOnce.Do(func() {
		m.initialize(ctx)
	})
	return m.State()
}

func (m *Manager) initialize(ctx context.Context) {
	token, err := storage.LoadToken(ctx, m.store)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to read stored token")
		m.clearSession()
		return
	}
	if token == "" {
		m.clearSession()
		return
	}

	if m.tokenExpired(token) {
		m.logger.Info().Msg("Stored token expired, signing out")
		m.discardToken(ctx)
		return
	}

	creds := api.Credentials{Token: token}
	user, err := m.client.CurrentUser(ctx, creds)
	if err != nil {
		m.logger.Info().Err(err).Msg("Stored token rejected, signing out")
		m.discardToken(ctx)
		return
	}

	m.setSession(token, user)
	m.logger.Info().Int64("user_id", user.ID).Msg("Session restored")
	m.registerPushInBackground(creds)
}

func (m *Manager) discardToken(ctx context.Context) {
	if err := storage.ClearToken(ctx, m.store); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored token")
	}
	m.clearSession()
}

// tokenExpired reads the exp claim without verifying the signature. Tokens
// that are not JWTs, or carry no exp, are left for the backend to judge.
func (m *Manager) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}

// Login exchanges credentials for a token, persists it and loads the user.
// Push registration runs in the background and never fails the login.
// A failed login leaves the session settled, never loading.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	tok, err := m.client.Login(ctx, email, password)
	if err != nil {
		m.settle()
		return err
	}

	if err := storage.SaveToken(ctx, m.store, tok.AccessToken); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist token")
		m.settle()
		return apperr.Wrap(loginFailedMessage, err)
	}

	creds := api.Credentials{Token: tok.AccessToken}
	user, err := m.client.CurrentUser(ctx, creds)
	if err != nil {
		m.discardToken(ctx)
		if apperr.IsUnauthorized(err) {
			return apperr.Wrap(apperr.InvalidCredentialsMessage, err)
		}
		return apperr.WithFallback(err, loginFailedMessage)
	}

	m.setSession(tok.AccessToken, user)
	m.logger.Info().Int64("user_id", user.ID).Msg("Logged in")
	m.registerPushInBackground(creds)
	return nil
}

// Register creates the account and signs in with the same credentials. A
// sign-in failure after a successful registration is returned as is.
func (m *Manager) Register(ctx context.Context, data models.RegisterData) error {
	if err := models.Validate(data); err != nil {
		return apperr.Wrap(err.Error(), err)
	}
	if _, err := m.client.Register(ctx, data); err != nil {
		return err
	}
	return m.Login(ctx, data.Email, data.Password)
}

// Logout signs out locally. It never fails from the caller's point of view:
// storage errors are logged, and the navigation reset runs in the background.
func (m *Manager) Logout(ctx context.Context) {
	m.logger.Info().Msg("Logout started")
	if err := storage.ClearToken(ctx, m.store); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored token during logout")
	}
	m.clearSession()

	if m.nav != nil {
		m.tasks.Go(TaskNavigationReset, m.nav.ResetToAuth)
	}
}

// RegisterForPushNotifications registers the push channel now. Failures are
// logged only.
func (m *Manager) RegisterForPushNotifications(ctx context.Context) {
	creds := m.Credentials()
	if creds.IsZero() {
		m.logger.Warn().Msg("Cannot register for push notifications: no auth token")
		return
	}
	if m.push == nil {
		return
	}
	if _, err := m.push.Register(ctx, creds); err != nil {
		m.logger.Error().Err(err).Msg("Error registering for push notifications")
	}
}

// ForgotPassword requests a reset link. The outcome of the request is not
// reported so the caller cannot tell whether the email has an account; only
// input validation fails.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.New(emptyEmailMessage)
	}
	if !emailPattern.MatchString(email) {
		return apperr.New(invalidEmailMessage)
	}

	if err := m.client.ForgotPassword(ctx, email); err != nil {
		m.logger.Warn().Err(err).Msg("Error sending reset link")
	}
	return nil
}

// ResetPassword sets a new password with an emailed reset token.
func (m *Manager) ResetPassword(ctx context.Context, resetToken, password, confirm string) error {
	switch {
	case strings.TrimSpace(password) == "" || strings.TrimSpace(confirm) == "":
		return apperr.New(emptyFieldsMessage)
	case len(password) < minPasswordLength:
		return apperr.New(shortPasswordMessage)
	case password != confirm:
		return apperr.New(passwordMismatch)
	case resetToken == "":
		return apperr.New(invalidResetTokenText)
	}

	if err := m.client.ResetPassword(ctx, resetToken, password); err != nil {
		return apperr.WithFallback(err, resetFailedMessage)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var errNotLoggedIn = errors.New("no active session")

func (m *Manager) requireCredentials() (api.Credentials, error) {
	creds := m.Credentials()
	if creds.IsZero() {
		return creds, apperr.Wrap(notLoggedInMessage, errNotLoggedIn)
	}
	return creds, nil
}
