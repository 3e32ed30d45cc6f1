package blob

import (
	"context"
	"time"
)

// Object is one stored blob as returned by a listing call.
type Object struct {
	Key          string
	LastModified time.Time
}

// Store is the key-value blob store the pipeline persists snapshots,
// permanence files and validation reports to. Keys are slash-separated
// paths; List returns every object whose key starts with prefix.
type Store interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
