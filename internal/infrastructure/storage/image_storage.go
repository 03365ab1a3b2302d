// Package storage holds the S3-compatible object store for listing images.
// Listers upload garment photos through presigned URLs so image bytes never
// pass through the gateway.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	infraconfig "github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// imageExtensions maps the accepted upload content types to file extensions.
// Anything outside this map is rejected before a URL is signed.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ErrUnsupportedContentType is returned for non-image upload requests
var ErrUnsupportedContentType = errors.New("unsupported image content type")

// ImageStorage issues presigned URLs for listing photos.
// Compatible with any S3-compatible backend (AWS S3, MinIO, RustFS, etc.)
type ImageStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// ImageStorageOption is a functional option for configuring ImageStorage
type ImageStorageOption func(*ImageStorage)

// WithLogger sets a custom logger for ImageStorage
func WithLogger(logger *zap.Logger) ImageStorageOption {
	return func(s *ImageStorage) {
		s.logger = logger
	}
}

// NewImageStorage creates an ImageStorage from configuration
func NewImageStorage(cfg *infraconfig.StorageConfig, opts ...ImageStorageOption) (*ImageStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	store := &ImageStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration == 0 {
		store.presignExpiration = 15 * time.Minute
	}
	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup.
func (s *ImageStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Lost the creation race to another instance, which is fine
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ImageKey builds the object key for a new listing photo. Keys are namespaced
// by listing so a listing's photos can be listed and cleaned up together.
func ImageKey(listingID, contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedContentType
	}
	if listingID == "" {
		return "", errors.New("listing id is required")
	}
	return fmt.Sprintf("listings/%s/%s.%s", listingID, uuid.NewString(), ext), nil
}

// PresignUpload generates a presigned PUT URL for a listing photo.
// Returns the object key, the URL, and the URL's expiry.
func (s *ImageStorage) PresignUpload(ctx context.Context, listingID, contentType string) (string, string, time.Time, error) {
	key, err := ImageKey(listingID, contentType)
	if err != nil {
		return "", "", time.Time{}, err
	}

	presignReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return key, presignReq.URL, time.Now().Add(s.presignExpiration), nil
}

// DeleteImage removes an uploaded photo
func (s *ImageStorage) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *ImageStorage) Bucket() string {
	return s.bucket
}
