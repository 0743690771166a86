package evalcache

import (
	"context"
	"strings"

	"github.com/StricklySoft/cypher-gateway/internal/evaluator"
)

// fieldSep separates Requirements.Target from Requirements.TransactionMode
// in an encoded cache entry. Neither field's value set (READERS, WRITERS,
// AUTO, MANAGED, IMPLICIT) can ever contain it.
const fieldSep = "|"

// RequirementsCache adapts a Cache into evaluator.RequirementsCache,
// encoding each Requirements as "<Target>|<TransactionMode>". It satisfies
// evaluator.RequirementsCache so *evaluator.Evaluator can be constructed
// with either a Memory- or Redis-backed Cache underneath.
type RequirementsCache struct {
	cache Cache
}

// NewRequirementsCache wraps cache for use as an evaluator.RequirementsCache.
func NewRequirementsCache(cache Cache) *RequirementsCache {
	return &RequirementsCache{cache: cache}
}

// Get implements evaluator.RequirementsCache. Any error from the underlying
// Cache (a transient Redis failure, say) is treated the same as a miss:
// the evaluator falls back to EXPLAIN rather than failing the request.
func (c *RequirementsCache) Get(ctx context.Context, key string) (evaluator.Requirements, bool) {
	val, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		return evaluator.Requirements{}, false
	}
	target, mode, found := strings.Cut(val, fieldSep)
	if !found {
		return evaluator.Requirements{}, false
	}
	return evaluator.Requirements{
		Target:          evaluator.Target(target),
		TransactionMode: evaluator.TransactionMode(mode),
	}, true
}

// Set implements evaluator.RequirementsCache. A write failure is swallowed:
// losing a cache entry only costs a future EXPLAIN round-trip, never
// correctness.
func (c *RequirementsCache) Set(ctx context.Context, key string, req evaluator.Requirements) {
	_ = c.cache.Set(ctx, key, string(req.Target)+fieldSep+string(req.TransactionMode))
}

var _ evaluator.RequirementsCache = (*RequirementsCache)(nil)
