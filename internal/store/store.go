package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrDestinationUnavailable means the destination store cannot be listed or
// prepared. Listing failures abort a run before any mutation.
var ErrDestinationUnavailable = errors.New("store: destination unavailable")

// Entry is one object currently present at the destination. SourceModified is
// the modification marker of the source version last written under the name,
// so the destination itself doubles as the sync ledger and no separate
// manifest is kept between runs.
type Entry struct {
	Name           string
	Size           int64
	SourceModified time.Time
}

// PutInput describes one object write.
type PutInput struct {
	Name string
	Body io.Reader

	// Size of the body, -1 when unknown up front.
	Size int64

	// SourceModified is recorded alongside the content as the sync marker.
	// Zero means the source exposed none.
	SourceModified time.Time
}

// Store is a flat, hierarchical-path byte store: list, read, write, delete.
// Downstream consumers read whatever the synchronizer wrote through the same
// interface.
type Store interface {
	List(ctx context.Context) ([]*Entry, error)
	Put(ctx context.Context, in *PutInput) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// Open picks a backend from the destination location. "s3://bucket/prefix"
// selects the S3 store, anything else is treated as a local volume directory.
func Open(ctx context.Context, location string, s3cfg *S3Config) (Store, error) {
	if strings.HasPrefix(location, "s3://") {
		return NewS3Store(ctx, location, s3cfg)
	}
	return NewLocalStore(location)
}
