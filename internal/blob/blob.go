// Package blob abstracts the object store holding the actual image bytes.
// Keys are derived from the image identity as "{slug}.{ext}".
package blob

import (
	"context"
	"net/url"
	"strings"
)

// Store is the object store contract the upload flow depends on.
// Delete is idempotent: deleting an already-missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL returns the browser-reachable URL for a stored key.
	PublicURL(key string) string
}

// joinPublicURL builds a public URL from a base and a key, escaping each
// path segment.
func joinPublicURL(baseURL, key string) string {
	base := strings.TrimRight(baseURL, "/")
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return base + "/" + strings.Join(segments, "/")
}
