package api

import (
	"context"
	"io"
	"net/http"

	"prema-client/internal/models"
)

var (
	opUpdateProfile     = operation{name: "update_profile", fallback: "Update failed. Please try again."}
	opRegisterPushToken = operation{name: "register_push_token", fallback: "Failed to register push token"}
	opUploadPhoto       = operation{name: "upload_photo", fallback: "Failed to upload photo. Please try again."}
	opDeletePhoto       = operation{name: "delete_photo", fallback: "Failed to delete photo. Please try again."}
)

// UpdateProfile sends a partial profile and returns the server's copy.
func (c *Client) UpdateProfile(ctx context.Context, creds Credentials, update models.ProfileUpdate) (*models.User, error) {
	var out models.User
	req := c.request(ctx, creds, &out).SetBody(update)
	if _, err := c.execute(opUpdateProfile, req, http.MethodPut, "/users/profile"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterPushToken stores the device push token for the account.
func (c *Client) RegisterPushToken(ctx context.Context, creds Credentials, pushToken string) error {
	req := c.request(ctx, creds, nil).SetFormData(map[string]string{"push_token": pushToken})
	_, err := c.execute(opRegisterPushToken, req, http.MethodPost, "/users/push-token")
	return err
}

// UploadPhoto sends one image as multipart field "file".
func (c *Client) UploadPhoto(ctx context.Context, creds Credentials, filename, contentType string, r io.Reader) (*models.PhotosResponse, error) {
	var out models.PhotosResponse
	req := c.request(ctx, creds, &out).SetMultipartField("file", filename, contentType, r)
	if _, err := c.execute(opUploadPhoto, req, http.MethodPost, "/users/photos/upload"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePhoto removes an uploaded photo by file name.
func (c *Client) DeletePhoto(ctx context.Context, creds Credentials, filename string) error {
	req := c.request(ctx, creds, nil).SetPathParam("filename", filename)
	_, err := c.execute(opDeletePhoto, req, http.MethodDelete, "/users/photos/{filename}")
	return err
}
