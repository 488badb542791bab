package storage

import (
	"context"
	"io"
)

// Storage is the minimal interface the ledger export needs from an object
// store: write a snapshot, check whether one already exists, link to it.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetURL(key string) string
}
