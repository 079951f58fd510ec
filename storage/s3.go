package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store reads objects from Amazon S3.
type S3Store struct {
	c s3iface.S3API
}

// NewS3Store creates a store backed by the given session.
func NewS3Store(p client.ConfigProvider) *S3Store {
	return &S3Store{c: s3.New(p)}
}

// NewS3StoreWithClient wraps an existing S3 client.
func NewS3StoreWithClient(c s3iface.S3API) *S3Store {
	return &S3Store{c: c}
}

// GetObject fetches bucket/key. Missing objects are reported as ErrNotFound.
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.c.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}

	obj := &Object{
		ContentType:  aws.StringValue(out.ContentType),
		CacheControl: aws.StringValue(out.CacheControl),
		LastModified: out.LastModified,
		Body:         body,
	}
	if out.Expires != nil {
		if t, err := http.ParseTime(*out.Expires); err == nil {
			obj.Expires = &t
		}
	}
	return obj, nil
}

func isNotFound(err error) bool {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return true
	}
	return false
}
