package store

import (
	"context"
	"errors"
)

// Fixed keys for the persisted entries.
const (
	KeyHistory  = "qrScanHistory"
	KeyDarkMode = "darkMode"
)

var ErrNotFound = errors.New("key not found")

// KVStore persists small opaque values under fixed keys.  The history blob
// and the display preference each live under their own key.
type KVStore interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
