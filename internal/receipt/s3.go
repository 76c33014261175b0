package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zombor/receipt-processor/internal/scanning"
)

// S3API is the subset of the S3 client used by S3Storage
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements the Storage interface on Amazon S3
type S3Storage struct {
	client S3API
}

// NewS3Storage creates a new S3Storage instance
func NewS3Storage(client S3API) *S3Storage {
	return &S3Storage{client: client}
}

// NewS3StorageFromConfig creates an S3Storage from an AWS config
func NewS3StorageFromConfig(cfg aws.Config) *S3Storage {
	return NewS3Storage(s3.NewFromConfig(cfg))
}

// Save uploads a document
func (s *S3Storage) Save(ctx context.Context, ref scanning.DocumentRef, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ref.Bucket),
		Key:         aws.String(ref.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s: %w", ref, err)
	}
	return nil
}

// Fetch downloads a document
func (s *S3Storage) Fetch(ctx context.Context, ref scanning.DocumentRef) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", fmt.Errorf("getting object %s: %w", ref, ErrObjectNotFound)
		}
		return nil, "", fmt.Errorf("getting object %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading object %s: %w", ref, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

// Head verifies the object exists and is readable
func (s *S3Storage) Head(ctx context.Context, ref scanning.DocumentRef) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("heading object %s: %w", ref, ErrObjectNotFound)
		}
		return fmt.Errorf("heading object %s: %w", ref, err)
	}
	return nil
}

// Delete removes a document
func (s *S3Storage) Delete(ctx context.Context, ref scanning.DocumentRef) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", ref, err)
	}
	return nil
}
