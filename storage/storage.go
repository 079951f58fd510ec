// Package storage provides read access to the object store holding source
// and fallback images.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Object is a fetched object together with the metadata the handler
// forwards to clients.
type Object struct {
	ContentType  string
	CacheControl string
	LastModified *time.Time
	Expires      *time.Time
	Body         []byte
}

// Store fetches objects by bucket and key.
type Store interface {
	GetObject(ctx context.Context, bucket, key string) (*Object, error)
}
