// Package storage abstracts where uploaded files physically live.
package storage

import "context"

// ObjectStorage stores uploaded blobs under opaque keys and serves them
// back by URL. Implementations must be safe for concurrent use.
type ObjectStorage interface {
	// Put stores contents under key and returns the public URL.
	Put(ctx context.Context, key string, contents []byte, contentType string) (string, error)
	// Delete removes the blob for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
