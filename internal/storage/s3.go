// Package storage persists uploaded media in S3 and prepares images for it.
package storage

import (
	"bytes"
	"context"
	"fmt"

	appconfig "scribio/internal/config"
	"scribio/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the subset of blob operations the services need. The S3
// implementation is swapped for a stub in tests.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store uploads objects to a single configured bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Store(ctx context.Context, cfg *appconfig.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.AWSBucket,
		region: cfg.AWSRegion,
	}, nil
}

// Put uploads the body under key and returns the public object URL.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", models.NewUpstreamError("Failed to upload file", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.NewUpstreamError("Failed to delete file", err)
	}
	return nil
}
