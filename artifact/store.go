// Package artifact stores the files a sweep produces: rendered maps and
// trained weight snapshots.
package artifact

import (
	"context"
	"errors"
	"os"
)

// ErrNotFound is returned by Get when an artifact does not exist.
var ErrNotFound = os.ErrNotExist

// Store persists named artifacts. Names are slash separated and relative.
type Store interface {
	// Put writes data under name, replacing any previous artifact.
	Put(ctx context.Context, name string, data []byte) error
	// Location describes where name is stored, for logs and reports.
	Location(name string) string
}

// Getter is implemented by stores that can read artifacts back.
type Getter interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// Get reads name from s if s supports reading.
func Get(ctx context.Context, s Store, name string) ([]byte, error) {
	g, ok := s.(Getter)
	if !ok {
		return nil, errors.New("artifact: store does not support reads")
	}
	return g.Get(ctx, name)
}
