// Package archive mirrors snapshot files to off-box storage. A Target is a
// write-mostly object store: the backup manager pushes each snapshot after
// creation and deletes mirrored copies when retention prunes them locally.
package archive

import (
	"context"
	"io"
	"time"
)

// Object describes one mirrored snapshot.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Target is the mirroring surface. Implementations must tolerate repeated
// Store calls for the same key (retries after partial failures) by leaving
// the first complete copy in place.
type Target interface {
	// Store uploads the reader's contents under key.
	Store(ctx context.Context, key string, r io.Reader, size int64) error
	// List returns objects under prefix in key order.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
