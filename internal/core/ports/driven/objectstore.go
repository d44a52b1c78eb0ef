package driven

import "context"

// ObjectStore persists original upload bytes in a durable blob store.
// Backed by MinIO in deployments, a directory tree in development.
//
// Keys are always random identifiers chosen by the caller; filenames
// never reach the store.
type ObjectStore interface {
	// Put stores bytes under a key and returns a storage reference.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get retrieves bytes by storage reference.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes a stored object. Deleting a missing object is
	// not an error.
	Delete(ctx context.Context, ref string) error

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error
}
