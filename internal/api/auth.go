package api

import (
	"context"
	"net/http"

	"prema-client/internal/apperr"
	"prema-client/internal/models"
)

var (
	opLogin          = operation{name: "login", fallback: "Login failed. Please try again."}
	opRegister       = operation{name: "register", fallback: "Registration failed. Please try again."}
	opCurrentUser    = operation{name: "current_user", fallback: "Failed to load user"}
	opForgotPassword = operation{name: "forgot_password", fallback: "Failed to send reset link. Please try again."}
	opResetPassword  = operation{name: "reset_password", fallback: "Failed to reset password. Please try again."}
)

// Login exchanges credentials for an access token. HTTP 401 yields
// apperr.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	var out models.TokenResponse
	req := c.request(ctx, Credentials{}, &out).
		SetFormData(map[string]string{
			"username": email,
			"password": password,
		})

	resp, err := c.execute(opLogin, req, http.MethodPost, "/auth/login")
	if err != nil {
		if resp != nil && resp.StatusCode() == http.StatusUnauthorized {
			return nil, apperr.Wrap(apperr.InvalidCredentialsMessage, err)
		}
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, apperr.New(opLogin.fallback)
	}
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	var out models.User
	req := c.request(ctx, Credentials{}, &out).SetBody(data)
	if _, err := c.execute(opRegister, req, http.MethodPost, "/auth/register"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the account the credentials belong to.
func (c *Client) CurrentUser(ctx context.Context, creds Credentials) (*models.User, error) {
	var out models.User
	req := c.request(ctx, creds, &out)
	if _, err := c.execute(opCurrentUser, req, http.MethodGet, "/auth/me"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := c.request(ctx, Credentials{}, nil).SetBody(map[string]string{"email": email})
	_, err := c.execute(opForgotPassword, req, http.MethodPost, "/auth/forgot-password")
	return err
}

// ResetPassword sets a new password using the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := c.request(ctx, Credentials{}, nil).SetBody(map[string]string{
		"token":        token,
		"new_password": newPassword,
	})
	_, err := c.execute(opResetPassword, req, http.MethodPost, "/auth/reset-password")
	return err
}
