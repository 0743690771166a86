// Package evalcache backs the evaluator's statement classification cache.
// A statement's (Target, TransactionMode) pair never changes for a given
// query text and database's schema, so the cache is write-once per key and
// never expires entries on its own: Memory forgets everything on restart,
// Redis remembers across every gateway replica until the key is evicted by
// Redis itself.
package evalcache

import "context"

// Cache is a minimal string store. internal/evaluator adapts its
// Requirements type onto this interface rather than the other way around,
// so this package stays free of any dependency on the evaluator.
type Cache interface {
	// Get returns the stored value for key, or ok=false if absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any prior entry.
	Set(ctx context.Context, key, value string) error
}
