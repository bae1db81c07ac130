package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/mealscope/backend/config"
)

// S3ObjectStorage is the ObjectStorage implementation backed by S3.
type S3ObjectStorage struct {
	s3Config *config.S3Config
}

// NewS3ObjectStorage creates a new S3ObjectStorage instance
func NewS3ObjectStorage(s3Config *config.S3Config) *S3ObjectStorage {
	return &S3ObjectStorage{s3Config: s3Config}
}

// Put uploads image bytes under a fresh key and returns the key as the
// storage reference.
func (s *S3ObjectStorage) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := fmt.Sprintf("meal-images/%s%s", uuid.New().String(), extensionFor(contentType))

	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return key, nil
}

// Get downloads the image bytes for a storage reference.
func (s *S3ObjectStorage) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.s3Config.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from S3: %w", ref, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from S3: %w", ref, err)
	}
	return data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
