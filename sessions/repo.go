package sessions

import "context"

// Repo is the durable key-value storage behind the session store.
// Implementations must be safe for concurrent use.
type Repo interface {
	// Get returns the value stored under key, or (nil, nil) if there is none
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
