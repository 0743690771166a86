package evalcache

import (
	"context"
	"sync"
)

// Memory is the default, per-process Cache. It never evicts entries; the
// classification space for a running gateway is bounded by the set of
// distinct query texts it has actually seen, which is small relative to
// request volume in practice.
type Memory struct {
	values sync.Map // string -> string
}

// NewMemory constructs an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{}
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.values.Load(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

// Set implements Cache.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.values.Store(key, value)
	return nil
}

var _ Cache = (*Memory)(nil)
