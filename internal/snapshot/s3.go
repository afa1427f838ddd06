package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client used by S3Store, declared here so
// tests can stand in a fake without touching the network.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements Store against one S3 bucket.
type S3Store struct {
	bucket string
	api    s3API
}

// NewS3Store wraps an AWS config into a Store for the given bucket.
func NewS3Store(cfg aws.Config, bucket string) *S3Store {
	return &S3Store{bucket: bucket, api: s3.NewFromConfig(cfg)}
}

// Latest lists every key under the table's prefix and fetches the greatest
// one. Keys embed the capture timestamp, so the greatest key is the newest
// snapshot.
func (s *S3Store) Latest(ctx context.Context, table string) (Object, error) {
	prefix := table + "/"

	var latest string
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return Object{}, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil && *obj.Key > latest {
				latest = *obj.Key
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	if latest == "" {
		return Object{}, fmt.Errorf("table %s: %w", table, ErrNotFound)
	}

	got, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(latest),
	})
	if err != nil {
		return Object{}, fmt.Errorf("get %s/%s: %w", s.bucket, latest, err)
	}
	defer got.Body.Close()

	body, err := io.ReadAll(got.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read %s/%s: %w", s.bucket, latest, err)
	}
	return Object{Key: latest, Body: body}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}
