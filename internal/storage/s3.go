package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when the requested key does not exist
var ErrObjectNotFound = errors.New("object not found")

// API is the subset of the S3 client used by S3Client
type API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Client stores build logs in an S3 bucket
type S3Client struct {
	client   API
	uploader *manager.Uploader
	bucket   string
	logger   *logger.Logger
}

// NewS3Client creates a new S3 client
func NewS3Client(client API, bucket string, logger *logger.Logger) (*S3Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	logger.Debug().
		Str("bucket", bucket).
		Msg("S3 client created")

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// PutObject uploads body under key. Large bodies are sent as a multipart upload.
func (s *S3Client) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("content_type", contentType).
		Msg("Uploading object to S3")

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.WithError(err).Error().
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("Failed to upload object to S3")
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("Object uploaded to S3")

	return nil
}

// DownloadFile returns the content of key
func (s *S3Client) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("Downloading file from S3")

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("Failed to download file from S3")
		return nil, fmt.Errorf("failed to download file from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("Failed to read file data")
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("File downloaded from S3")

	return data, nil
}

// Ping checks that the bucket is reachable
func (s *S3Client) Ping(ctx context.Context) error {
	// Try to list objects with max 1 result to check connectivity
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to ping S3: %w", err)
	}
	return nil
}
