package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A zero TTL means no expiry.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
