package photos

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/config"
	"prema-client/internal/fakeapi"
	"prema-client/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*fakeapi.Server, *api.Client, api.Credentials) {
	t.Helper()
	srv := fakeapi.New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := api.New(ts.URL)
	require.NoError(t, err)

	_, err = srv.SeedUser(models.RegisterData{Email: "ana@example.com", Password: "secret", Name: "Ana", Age: 27, Gender: "female"})
	require.NoError(t, err)
	tok, err := c.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	return srv, c, api.Credentials{Token: tok.AccessToken}
}

func jpeg(name string) Photo {
	return Photo{Filename: name, ContentType: "image/jpeg", Body: bytes.NewReader([]byte("\xff\xd8\xff fake"))}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"/uploads/abc.jpg", "abc.jpg", true},
		{"https://host/uploads/abc.jpg", "abc.jpg", true},
		{"uploads/abc.jpg", "abc.jpg", true},
		{"https://cdn/photos/abc.jpg", "", false},
		{"/uploads/", "", false},
	}
	for _, tt := range tests {
		got, ok := FilenameFromURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestDefaultFilename(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	assert.Regexp(t, `^photo_1700000000000_\d+\.jpeg$`, DefaultFilename("image/jpg", now))
	assert.Regexp(t, `^photo_1700000000000_\d+\.png$`, DefaultFilename("image/png", now))
	assert.Regexp(t, `\.jpeg$`, DefaultFilename("", now))
}

func TestBackendUploader_UploadAndDelete(t *testing.T) {
	_, c, creds := newBackend(t)
	ctx := context.Background()
	u := NewBackendUploader(c)

	photos, err := u.Upload(ctx, creds, nil, jpeg("a.jpg"))
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.True(t, strings.HasPrefix(photos[0], "/uploads/"))

	photos, err = u.Upload(ctx, creds, photos, Photo{ContentType: "image/png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	require.Len(t, photos, 2)

	remaining, err := u.Delete(ctx, creds, photos, photos[0])
	require.NoError(t, err)
	assert.Equal(t, photos[1:], remaining)
}

func TestBackendUploader_Errors(t *testing.T) {
	srv, c, creds := newBackend(t)
	ctx := context.Background()
	u := NewBackendUploader(c)

	_, err := u.Delete(ctx, creds, []string{"https://cdn/x.jpg"}, "https://cdn/x.jpg")
	assert.EqualError(t, err, "Unable to determine photo filename for deletion.")

	full := make([]string, MaxPhotos)
	_, err = u.Upload(ctx, creds, full, jpeg("a.jpg"))
	assert.Error(t, err)

	srv.Fail(http.MethodPost, "/users/photos/upload", fakeapi.Failure{Status: http.StatusInternalServerError})
	_, err = u.Upload(ctx, creds, nil, jpeg("a.jpg"))
	assert.EqualError(t, err, "Failed to upload photo. Please try again.")
}

func TestBackendUploader_URLOnlyResponseAppends(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"/uploads/new.jpg"}`)
	}))
	defer ts.Close()

	c, err := api.New(ts.URL)
	require.NoError(t, err)

	photos, err := NewBackendUploader(c).Upload(context.Background(), api.Credentials{Token: "t"}, []string{"/uploads/old.jpg"}, jpeg("new.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/old.jpg", "/uploads/new.jpg"}, photos)
}

// fakeBucket accepts S3 object PUT and DELETE requests.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		b.deleted = append(b.deleted, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Uploader_UploadAndDelete(t *testing.T) {
	_, c, creds := newBackend(t)
	ctx := context.Background()

	bucket := &fakeBucket{objects: make(map[string][]byte)}
	s3srv := httptest.NewServer(bucket)
	defer s3srv.Close()

	u, err := NewS3Uploader(ctx, c, config.AWSConfig{
		Region:    "us-east-1",
		S3Bucket:  "prema-photos",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Endpoint:  s3srv.URL,
	})
	require.NoError(t, err)

	photos, err := u.Upload(ctx, creds, nil, jpeg("me.JPG"))
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.True(t, strings.HasPrefix(photos[0], s3srv.URL+"/prema-photos/photos/"))
	assert.True(t, strings.HasSuffix(photos[0], ".jpg"))

	bucket.mu.Lock()
	require.Len(t, bucket.objects, 1)
	for key, data := range bucket.objects {
		assert.True(t, strings.HasPrefix(key, "/prema-photos/photos/"))
		assert.Equal(t, "\xff\xd8\xff fake", string(data))
	}
	bucket.mu.Unlock()

	remaining, err := u.Delete(ctx, creds, photos, photos[0])
	require.NoError(t, err)
	assert.Empty(t, remaining)

	bucket.mu.Lock()
	assert.Len(t, bucket.deleted, 1)
	bucket.mu.Unlock()
}
