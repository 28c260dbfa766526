package photos

import (
	"context"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
)

const deleteFailedMessage = "Unable to determine photo filename for deletion."

// BackendUploader stores photos through the API's upload endpoint.
type BackendUploader struct {
	client *api.Client
}

// NewBackendUploader creates a new backend uploader
func NewBackendUploader(client *api.Client) *BackendUploader {
	return &BackendUploader{client: client}
}

// Upload posts one photo. The server's list wins when it sends one; older
// servers answer with the new URL only, which is appended locally.
func (u *BackendUploader) Upload(ctx context.Context, creds api.Credentials, current []string, p Photo) ([]string, error) {
	if len(current) >= MaxPhotos {
		return nil, errTooMany
	}
	p = withDefaults(p)

	resp, err := u.client.UploadPhoto(ctx, creds, p.Filename, p.ContentType, p.Body)
	if err != nil {
		return nil, err
	}
	if resp.Photos != nil {
		return resp.Photos, nil
	}
	out := append([]string(nil), current...)
	if resp.URL != "" {
		out = append(out, resp.URL)
	}
	return out, nil
}

// Delete removes the photo by its stored file name.
func (u *BackendUploader) Delete(ctx context.Context, creds api.Credentials, current []string, photoURL string) ([]string, error) {
	filename, ok := FilenameFromURL(photoURL)
	if !ok {
		return nil, apperr.New(deleteFailedMessage)
	}
	if err := u.client.DeletePhoto(ctx, creds, filename); err != nil {
		return nil, err
	}
	return without(current, photoURL), nil
}
