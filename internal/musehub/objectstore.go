package musehub

import (
	"context"
	"fmt"
	"time"
)

// ObjectStore returns time-limited download URLs for content-addressed
// objects. No object bytes pass through the service; only metadata and
// URLs do.
type ObjectStore interface {
	PresignedURL(ctx context.Context, repoID, objectID string, ttl time.Duration) (url string, expiresAt time.Time, err error)
}

// LocalObjectStore is the default ObjectStore: it returns file:// URLs
// pointing at a local directory, suitable for development. A production
// deployment swaps this for an S3-backed implementation without any
// caller-visible change, since the port is the same.
type LocalObjectStore struct {
	BaseDir string
}

// PresignedURL builds a file:// URL; TTL is honored in the expiry field
// only, since local files aren't actually access-controlled by time.
func (s LocalObjectStore) PresignedURL(_ context.Context, repoID, objectID string, ttl time.Duration) (string, time.Time, error) {
	url := fmt.Sprintf("file://%s/%s/%s", s.BaseDir, repoID, objectID)
	return url, time.Now().Add(ttl), nil
}
