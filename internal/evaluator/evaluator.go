package evaluator

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/singleflight"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// ExplainRunner issues an `EXPLAIN <query>` against a read-mode session for
// the named database and returns its plan. It is satisfied by
// internal/router in production and by a fake in tests.
type ExplainRunner interface {
	Explain(ctx context.Context, database, cypher string) (neo4j.Plan, error)
}

// Capabilities is the subset of internal/capabilities.Snapshot the
// evaluator needs: whether server-side routing lets the database decide
// target on its own.
type Capabilities interface {
	SSRAvailable() bool
}

// RequirementsCache is an optional second-tier, cross-replica store for
// classification decisions, consulted (and populated) alongside the
// Evaluator's own per-process sync.Map. Satisfied by
// internal/evalcache.NewRequirementsCache in production; nil disables it
// and the Evaluator behaves exactly as a single-process, memory-only
// cache.
type RequirementsCache interface {
	Get(ctx context.Context, key string) (Requirements, bool)
	Set(ctx context.Context, key string, req Requirements)
}

// Evaluator classifies statements into ExecutionRequirements, caching the
// result per query text so repeated submissions of the same statement (the
// common case for parameterized queries) skip the EXPLAIN round-trip.
type Evaluator struct {
	capabilities Capabilities
	runner       ExplainRunner
	external     RequirementsCache

	cache  sync.Map // string -> Requirements
	flight singleflight.Group
}

// New constructs an Evaluator. runner is only consulted when capabilities
// reports SSR unavailable. external may be nil, in which case classification
// is cached only for this process's lifetime.
func New(capabilities Capabilities, runner ExplainRunner, external RequirementsCache) *Evaluator {
	return &Evaluator{capabilities: capabilities, runner: runner, external: external}
}

// Classify derives the ExecutionRequirements for a statement against the
// given database, consulting (and populating) the cache keyed by the raw
// query text. Concurrent calls for the same text collapse into a single
// EXPLAIN via singleflight.
func (e *Evaluator) Classify(ctx context.Context, database, text string) (Requirements, error) {
	mode := classifyTransactionMode(text)

	if cached, ok := e.cache.Load(text); ok {
		req := cached.(Requirements)
		req.TransactionMode = mode
		return req, nil
	}

	if e.external != nil {
		if req, ok := e.external.Get(ctx, text); ok {
			e.cache.Store(text, req)
			req.TransactionMode = mode
			return req, nil
		}
	}

	if e.capabilities.SSRAvailable() {
		req := Requirements{Target: TargetAuto, TransactionMode: mode}
		e.cache.Store(text, req)
		return req, nil
	}

	target, err, _ := e.flight.Do(text, func() (any, error) {
		if cached, ok := e.cache.Load(text); ok {
			return cached.(Requirements).Target, nil
		}
		plan, explainErr := e.runner.Explain(ctx, database, text)
		if explainErr != nil {
			return nil, explainErr
		}
		return classifyTarget(plan), nil
	})
	if err != nil {
		return Requirements{}, wrapExplainError(err, text)
	}

	req := Requirements{Target: target.(Target), TransactionMode: mode}
	e.cache.Store(text, req)
	if e.external != nil {
		e.external.Set(ctx, text, req)
	}
	return req, nil
}

// wrapExplainError classifies an EXPLAIN failure per spec.md §4.2: a
// syntax error surfaces as INVALID_QUERY carrying the normalized text;
// anything else is a DATABASE_ERROR. The runner is responsible for
// distinguishing the two before returning (see internal/router), so this
// only wraps an already-typed *sserr.Error, defaulting to DATABASE_ERROR
// for anything untyped.
func wrapExplainError(err error, text string) error {
	if sserr.HasCode(err, sserr.CodeInvalidQuery) {
		return err
	}
	if se, ok := sserr.AsError(err); ok {
		return se
	}
	return sserr.Wrapf(err, sserr.CodeDatabaseError, "EXPLAIN failed for statement %q", text)
}
