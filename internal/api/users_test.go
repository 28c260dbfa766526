package api

import (
	"context"
	"path"
	"strings"
	"testing"

	"prema-client/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	srv, c := newBackend(t)
	seed(t, srv, "ann@example.com", "Ann", 29, "female")
	creds := login(t, c, "ann@example.com")

	bio := "hello"
	lat, lon := 51.5, -0.12
	u, err := c.UpdateProfile(context.Background(), creds, models.ProfileUpdate{Bio: &bio, LocationLatitude: &lat, LocationLongitude: &lon})
	require.NoError(t, err)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "hello", *u.Bio)
	assert.Equal(t, "Ann", u.Name, "fields not sent are untouched")
	require.NotNil(t, u.UpdatedAt)
}

func TestRegisterPushToken(t *testing.T) {
	srv, c := newBackend(t)
	u := seed(t, srv, "ann@example.com", "Ann", 29, "female")
	creds := login(t, c, "ann@example.com")

	require.NoError(t, c.RegisterPushToken(context.Background(), creds, "device-abc"))
	assert.Equal(t, "device-abc", srv.PushToken(u.ID))
}

func TestUploadAndDeletePhoto(t *testing.T) {
	srv, c := newBackend(t)
	ctx := context.Background()
	seed(t, srv, "ann@example.com", "Ann", 29, "female")
	creds := login(t, c, "ann@example.com")

	res, err := c.UploadPhoto(ctx, creds, "me.jpeg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	require.Len(t, res.Photos, 1)
	assert.True(t, strings.HasPrefix(res.Photos[0], "/uploads/"))

	_, err = c.UploadPhoto(ctx, creds, "notes.txt", "text/plain", strings.NewReader("x"))
	assert.EqualError(t, err, "Only image uploads are allowed")

	require.NoError(t, c.DeletePhoto(ctx, creds, path.Base(res.Photos[0])))
	err = c.DeletePhoto(ctx, creds, "missing.jpeg")
	assert.EqualError(t, err, "Photo not found")
}
