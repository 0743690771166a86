// Package orchestrator drives the two public operations a request can ask
// of the gateway — a single streamed statement, or a sequential batch of
// statements collected eagerly — by classifying each statement with the
// evaluator and executing it through the session router.
package orchestrator

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StricklySoft/cypher-gateway/internal/authadapter"
	"github.com/StricklySoft/cypher-gateway/internal/codec"
	"github.com/StricklySoft/cypher-gateway/internal/evaluator"
	"github.com/StricklySoft/cypher-gateway/internal/router"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// Evaluator classifies a statement's routing and transaction-mode
// requirements. Satisfied by *evaluator.Evaluator in production.
type Evaluator interface {
	Classify(ctx context.Context, database, text string) (evaluator.Requirements, error)
}

// Capabilities reports whether the connected deployment supports
// impersonation. Satisfied by *capabilities.Snapshot in production.
type Capabilities interface {
	EnterpriseEdition() bool
}

// Router executes a classified statement against the database. Satisfied
// by *router.Router in production.
type Router interface {
	RunManaged(ctx context.Context, database string, target evaluator.Target, impersonatedUser, cypher string, params map[string]any) ([]string, []*neo4j.Record, neo4j.ResultSummary, error)
	RunAutoCommit(ctx context.Context, database string, target evaluator.Target, impersonatedUser, cypher string, params map[string]any) ([]string, []*neo4j.Record, neo4j.ResultSummary, error)
	OpenStream(ctx context.Context, database string, target evaluator.Target, mode evaluator.TransactionMode, impersonatedUser, cypher string, params map[string]any) (router.Cursor, error)
}

// Orchestrator implements spec.md §4.5's stream and run operations.
type Orchestrator struct {
	evaluator Evaluator
	router    Router
	caps      Capabilities
}

// New constructs an Orchestrator. caps gates impersonation (spec.md §4.4:
// impersonation only takes effect against an Enterprise Edition deployment;
// Community rejects an ImpersonatedUser session config outright).
func New(ev Evaluator, rt Router, caps Capabilities) *Orchestrator {
	return &Orchestrator{evaluator: ev, router: rt, caps: caps}
}

// impersonatedUser returns principal's impersonation target, or "" if either
// the principal isn't impersonating or the connected deployment can't honor
// it, in which case the request falls back to running as the service
// identity.
func (o *Orchestrator) impersonatedUser(principal authadapter.Principal) string {
	if !o.caps.EnterpriseEdition() {
		return ""
	}
	return principal.ImpersonatedUser()
}

// Run executes queries sequentially, each in its own session acquisition,
// in strict submission order. A DATABASE_ERROR from any statement is
// captured as a failure EagerResult so later statements still run; any
// other error kind (INVALID_QUERY, AUTH, transport) aborts the remainder
// of the batch immediately, recorded as AbortErr.
func (o *Orchestrator) Run(ctx context.Context, principal authadapter.Principal, database string, queries []codec.AnnotatedQuery) *ResultContainer {
	container := &ResultContainer{}
	seen := map[notificationKey]bool{}

	for _, q := range queries {
		req, err := o.evaluator.Classify(ctx, database, q.Text)
		if err != nil {
			container.AbortErr = err
			break
		}

		var (
			keys    []string
			records []*neo4j.Record
			summary neo4j.ResultSummary
		)
		if req.TransactionMode == evaluator.ModeImplicit {
			keys, records, summary, err = o.router.RunAutoCommit(ctx, database, req.Target, o.impersonatedUser(principal), q.Text, q.Parameters)
		} else {
			keys, records, summary, err = o.router.RunManaged(ctx, database, req.Target, o.impersonatedUser(principal), q.Text, q.Parameters)
		}

		if err != nil {
			if sserr.HasCode(err, sserr.CodeDatabaseError) {
				container.Results = append(container.Results, EagerResult{Statement: q, Err: err})
				continue
			}
			container.AbortErr = err
			break
		}

		container.collectNotifications(seen, summary.Notifications())
		container.Results = append(container.Results, EagerResult{
			Statement: q,
			Columns:   keys,
			Records:   records,
			Summary:   summary,
		})
	}

	return container
}

// StreamResult is the outcome of opening a stream: a pull iterator in the
// Go 1.23 iter.Seq2 shape plus the requirements the statement was
// classified with. Summary/SummaryErr are only meaningful once Records has
// been fully ranged over (or abandoned early — ranging to completion or
// breaking out both close the underlying session).
type StreamResult struct {
	Records      func(yield func(*neo4j.Record, error) bool)
	Requirements evaluator.Requirements

	Summary    neo4j.ResultSummary
	SummaryErr error
}

// Stream classifies query and opens a pull-style cursor over its results.
// The caller drives the cursor by ranging over Records; stopping the range
// early (including via context cancellation) still closes the session,
// since the iterator's defer runs on every exit path.
func (o *Orchestrator) Stream(ctx context.Context, principal authadapter.Principal, database string, query codec.AnnotatedQuery) (*StreamResult, error) {
	req, err := o.evaluator.Classify(ctx, database, query.Text)
	if err != nil {
		return nil, err
	}

	cursor, err := o.router.OpenStream(ctx, database, req.Target, req.TransactionMode,
		o.impersonatedUser(principal), query.Text, query.Parameters)
	if err != nil {
		return nil, err
	}

	result := &StreamResult{Requirements: req}
	result.Records = func(yield func(*neo4j.Record, error) bool) {
		defer func() {
			result.Summary, result.SummaryErr = cursor.Summary(ctx)
			_ = cursor.Close(ctx)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			rec, ok, nextErr := cursor.Next(ctx)
			if nextErr != nil {
				yield(nil, nextErr)
				return
			}
			if !ok {
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}

	return result, nil
}
