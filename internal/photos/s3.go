package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"prema-client/internal/api"
	"prema-client/internal/apperr"
	cfgpkg "prema-client/internal/config"
	"prema-client/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	uploadFailedMessage = "Failed to upload photo. Please try again."
	presignExpiry       = 5 * time.Minute
)

// S3Uploader writes photos to a bucket through pre-signed PUT URLs and then
// records the public URL on the profile.
type S3Uploader struct {
	client    *api.Client
	s3Client  *s3.Client
	http      *resty.Client
	bucket    string
	publicURL string
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, client *api.Client, cfg cfgpkg.AWSConfig) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.S3Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
		}
	}

	return &S3Uploader{
		client:    client,
		s3Client:  s3Client,
		http:      resty.New().SetTimeout(time.Minute),
		bucket:    cfg.S3Bucket,
		publicURL: publicURL,
	}, nil
}

func (u *S3Uploader) objectKey(filename string) string {
	return "photos/" + uuid.New().String() + strings.ToLower(path.Ext(filename))
}

func (u *S3Uploader) keyFromURL(photoURL string) (string, bool) {
	prefix := u.publicURL + "/"
	if !strings.HasPrefix(photoURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(photoURL, prefix), true
}

// Upload puts the object, then saves the extended photo list on the profile.
func (u *S3Uploader) Upload(ctx context.Context, creds api.Credentials, current []string, p Photo) ([]string, error) {
	if len(current) >= MaxPhotos {
		return nil, errTooMany
	}
	p = withDefaults(p)

	body, err := io.ReadAll(p.Body)
	if err != nil {
		return nil, apperr.Wrap(uploadFailedMessage, fmt.Errorf("failed to read photo: %w", err))
	}

	key := u.objectKey(p.Filename)
	presignClient := s3.NewPresignClient(u.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(p.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		return nil, apperr.Wrap(uploadFailedMessage, fmt.Errorf("failed to generate pre-signed URL: %w", err))
	}

	resp, err := u.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", p.ContentType).
		SetBody(body).
		Put(request.URL)
	if err != nil {
		return nil, apperr.Wrap(uploadFailedMessage, fmt.Errorf("failed to upload object: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperr.Wrap(uploadFailedMessage, fmt.Errorf("object upload returned HTTP %d", resp.StatusCode()))
	}

	photos := append(append([]string(nil), current...), u.publicURL+"/"+key)
	user, err := u.client.UpdateProfile(ctx, creds, models.ProfileUpdate{Photos: models.PhotoList(photos)})
	if err != nil {
		return nil, err
	}
	log.Info().Str("key", key).Msg("Photo uploaded to S3")
	return user.Photos, nil
}

// Delete drops the photo from the profile and removes the object when it
// lives in this bucket. A failed object removal is logged only.
func (u *S3Uploader) Delete(ctx context.Context, creds api.Credentials, current []string, photoURL string) ([]string, error) {
	update := models.ProfileUpdate{Photos: models.PhotoList(without(current, photoURL))}
	user, err := u.client.UpdateProfile(ctx, creds, update)
	if err != nil {
		return nil, err
	}

	if key, ok := u.keyFromURL(photoURL); ok {
		_, err := u.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete photo object")
		}
	}
	return user.Photos, nil
}
