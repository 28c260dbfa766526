package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"prema-client/internal/fakeapi"
	"prema-client/internal/models"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*fakeapi.Server, *Client) {
	t.Helper()
	srv := fakeapi.New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return srv, c
}

func seed(t *testing.T, srv *fakeapi.Server, email, name string, age int, gender string) models.User {
	t.Helper()
	u, err := srv.SeedUser(models.RegisterData{
		Email:    email,
		Password: "secret",
		Name:     name,
		Age:      age,
		Gender:   gender,
	})
	require.NoError(t, err)
	return u
}

func login(t *testing.T, c *Client, email string) Credentials {
	t.Helper()
	tok, err := c.Login(context.Background(), email, "secret")
	require.NoError(t, err)
	return Credentials{Token: tok.AccessToken}
}
