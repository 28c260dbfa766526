// Package photos uploads and removes profile photos. The backend uploader
// posts multipart files to the API; the S3 uploader writes straight to a
// bucket and then saves the new photo list on the profile.
package photos

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
)

// MaxPhotos is the number of photos a profile can hold.
const MaxPhotos = 6

// Photo is one image to upload.
type Photo struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Uploader adds and removes profile photos. Both calls return the photo list
// that should be shown after the operation.
type Uploader interface {
	Upload(ctx context.Context, creds api.Credentials, current []string, p Photo) ([]string, error)
	Delete(ctx context.Context, creds api.Credentials, current []string, photoURL string) ([]string, error)
}

var uploadsPattern = regexp.MustCompile(`(?:^|/)uploads/?([^/]+)$`)

// FilenameFromURL extracts the stored file name from a photo URL.
func FilenameFromURL(photoURL string) (string, bool) {
	m := uploadsPattern.FindStringSubmatch(photoURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DefaultFilename names a photo that came without one, e.g. from a camera.
func DefaultFilename(contentType string, now time.Time) string {
	ext := "jpg"
	if _, sub, ok := strings.Cut(contentType, "/"); ok && sub != "" {
		ext = sub
	}
	if ext == "jpg" {
		ext = "jpeg"
	}
	return fmt.Sprintf("photo_%d_%d.%s", now.UnixMilli(), rand.Intn(1000), ext)
}

// Open reads a photo from disk, guessing its content type from the extension.
// The caller closes the returned file.
func Open(path string) (Photo, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Photo{}, nil, fmt.Errorf("failed to open photo: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = "image/jpeg"
	}
	return Photo{Filename: filepath.Base(path), ContentType: ct, Body: f}, f, nil
}

func without(list []string, item string) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		if p != item {
			out = append(out, p)
		}
	}
	return out
}

func withDefaults(p Photo) Photo {
	if p.ContentType == "" {
		p.ContentType = "image/jpeg"
	}
	if p.Filename == "" {
		p.Filename = DefaultFilename(p.ContentType, time.Now())
	}
	return p
}

var errTooMany = apperr.New(fmt.Sprintf("You can upload at most %d photos", MaxPhotos))
