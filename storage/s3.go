package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Storage keeps artifacts in an S3 bucket. Credentials come from the
// SDK's default chain.
type S3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
}

// NewS3Storage creates an S3-backed storage for the given bucket.
func NewS3Storage(bucket, region string) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket name cannot be empty")
	}
	if region == "" {
		return nil, fmt.Errorf("s3 region cannot be empty")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		presignExpiry: 15 * time.Minute,
	}, nil
}

// Upload stores the reader's content under the given key.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

// Download opens the object stored under the given key.
func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download from s3: %w", err)
	}
	return result.Body, nil
}

// Delete removes the object stored under the given key.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

// Exists reports whether an object is stored under the given key.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check s3 object: %w", err)
	}
	return true, nil
}

// GetURL returns a presigned URL for the object stored under the key.
func (s *S3Storage) GetURL(ctx context.Context, key string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrObjectNotFound
	}

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return presigned.URL, nil
}

// objectKey normalizes a key for S3 and rejects traversal attempts, the
// same contract LocalStorage enforces for filesystem paths.
func (s *S3Storage) objectKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	clean := path.Clean(key)
	if clean == ".." || len(clean) >= 3 && clean[:3] == "../" {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidKey)
	}
	if path.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute keys not allowed", ErrInvalidKey)
	}
	return clean, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
