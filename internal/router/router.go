// Package router acquires Bolt sessions with the access mode,
// impersonation, database, and bookmark-manager settings a classified
// statement requires, and drives the query through them.
package router

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	neo4jclient "github.com/StricklySoft/cypher-gateway/pkg/clients/neo4j"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"

	"github.com/StricklySoft/cypher-gateway/internal/evaluator"
)

const tracerName = "github.com/StricklySoft/cypher-gateway/internal/router"

// Router wraps the driver directly (not pkg/clients/neo4j.Client's
// convenience methods, which hardcode access mode) to get full control
// over neo4j.SessionConfig.
type Router struct {
	driver          neo4jclient.Driver
	bookmarkManager neo4j.BookmarkManager
	fetchSize       int
	tracer          trace.Tracer
}

// New constructs a Router. fetchSize is the record prefetch watermark
// (config `fetch_size`, default 2000); bookmarkManager is the process-wide
// instance shared by every session the router opens.
func New(driver neo4jclient.Driver, bookmarkManager neo4j.BookmarkManager, fetchSize int) *Router {
	return &Router{
		driver:          driver,
		bookmarkManager: bookmarkManager,
		fetchSize:       fetchSize,
		tracer:          otel.Tracer(tracerName),
	}
}

func accessModeFor(target evaluator.Target) neo4j.AccessMode {
	if target == evaluator.TargetReaders {
		return neo4j.AccessModeRead
	}
	return neo4j.AccessModeWrite
}

func (r *Router) sessionConfig(database string, target evaluator.Target, impersonatedUser string) neo4j.SessionConfig {
	cfg := neo4j.SessionConfig{
		AccessMode:      accessModeFor(target),
		DatabaseName:    database,
		BookmarkManager: r.bookmarkManager,
		FetchSize:       r.fetchSize,
	}
	if impersonatedUser != "" {
		cfg.ImpersonatedUser = impersonatedUser
	}
	return cfg
}

func (r *Router) startSpan(ctx context.Context, operation, database, cypher string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "router."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.name", database),
		attribute.String("db.statement", truncateStatement(cypher)),
	)
	return ctx, span
}

// truncateStatement mirrors pkg/clients/neo4j's span-truncation convention
// so Cypher statement bodies never leak past 100 runes into telemetry.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= 100 {
		return s
	}
	return string(runes[:100]) + "..."
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Explain issues `EXPLAIN <cypher>` against a read-mode session and
// returns the resulting plan; it implements evaluator.ExplainRunner. A
// syntax error from the database is classified as CodeInvalidQuery
// carrying the normalized text; any other failure is CodeDatabaseError.
func (r *Router) Explain(ctx context.Context, database, cypher string) (neo4j.Plan, error) {
	ctx, span := r.startSpan(ctx, "Explain", database, cypher)
	defer func() { finishSpan(span, nil) }()

	session := r.driver.NewSession(ctx, r.sessionConfig(database, evaluator.TargetReaders, ""))
	defer session.Close(ctx)

	result, err := session.Run(ctx, "EXPLAIN "+cypher, nil)
	if err != nil {
		return nil, classifyExplainError(err, cypher)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, classifyExplainError(err, cypher)
	}
	return summary.Plan(), nil
}

// classifyExplainError distinguishes a syntax error (the database rejects
// the statement outright) from any other EXPLAIN failure. The driver
// itself does not expose a typed "syntax error" value in its public API;
// the gateway recognizes one by the server's exact
// Neo.ClientError.Statement.SyntaxError status code.
func classifyExplainError(err error, cypher string) error {
	if isSyntaxError(err) {
		return sserr.New(sserr.CodeInvalidQuery, cypher)
	}
	return sserr.Wrap(err, sserr.CodeDatabaseError, "EXPLAIN failed")
}

func isSyntaxError(err error) bool {
	if !neo4j.IsNeo4jError(err) {
		return false
	}
	dbErr, ok := err.(*db.Neo4jError)
	if !ok {
		return false
	}
	return dbErr.Code == "Neo.ClientError.Statement.SyntaxError"
}

// RunManaged runs cypher inside a retriable managed transaction — ExecuteRead
// when target is READERS, ExecuteWrite otherwise (WRITERS or AUTO) — and
// eagerly collects every record. Used by the batch (run) orchestrator
// operation, where the whole statement must complete before any part of
// the response is sent, so the driver's automatic retry can apply safely.
func (r *Router) RunManaged(ctx context.Context, database string, target evaluator.Target, impersonatedUser, cypher string, params map[string]any) ([]string, []*neo4j.Record, neo4j.ResultSummary, error) {
	ctx, span := r.startSpan(ctx, "RunManaged", database, cypher)

	session := r.driver.NewSession(ctx, r.sessionConfig(database, target, impersonatedUser))
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		keys, err := res.Keys()
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return pairResult{keys: keys, records: records, summary: summary}, nil
	}

	var (
		raw any
		err error
	)
	if target == evaluator.TargetReaders {
		raw, err = session.ExecuteRead(ctx, work)
	} else {
		raw, err = session.ExecuteWrite(ctx, work)
	}
	finishSpan(span, err)
	if err != nil {
		return nil, nil, nil, sserr.Wrap(err, sserr.CodeDatabaseError, "managed transaction failed")
	}
	pr := raw.(pairResult)
	return pr.keys, pr.records, pr.summary, nil
}

type pairResult struct {
	keys    []string
	records []*neo4j.Record
	summary neo4j.ResultSummary
}

// RunAutoCommit runs cypher as an auto-commit statement (used by the batch
// path for IMPLICIT transaction mode) and eagerly collects every record. Auto-commit statements are never
// retried by the driver.
func (r *Router) RunAutoCommit(ctx context.Context, database string, target evaluator.Target, impersonatedUser, cypher string, params map[string]any) ([]string, []*neo4j.Record, neo4j.ResultSummary, error) {
	ctx, span := r.startSpan(ctx, "RunAutoCommit", database, cypher)

	session := r.driver.NewSession(ctx, r.sessionConfig(database, target, impersonatedUser))
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		finishSpan(span, err)
		return nil, nil, nil, sserr.Wrap(err, sserr.CodeDatabaseError, "auto-commit query failed")
	}
	keys, err := result.Keys()
	if err != nil {
		finishSpan(span, err)
		return nil, nil, nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to read result keys")
	}
	records, err := result.Collect(ctx)
	if err != nil {
		finishSpan(span, err)
		return nil, nil, nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to collect results")
	}
	summary, err := result.Consume(ctx)
	finishSpan(span, err)
	if err != nil {
		return nil, nil, nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to consume result summary")
	}
	return keys, records, summary, nil
}

// Stream is an open result cursor the orchestrator pulls records from one
// at a time instead of collecting the whole result into memory. Record
// retrieval happens inside a session (and, for MANAGED mode, inside an
// explicit transaction that Close commits) that stays open until Close.
//
// True incremental streaming and the driver's automatic managed-transaction
// retry are mutually exclusive: retry replays the transaction function from
// the top, which is only safe if nothing has been sent to the client yet.
// So a MANAGED statement streams through an explicit (unmanaged)
// transaction instead of ExecuteRead/ExecuteWrite — the caller gets a
// cursor, not a retry guarantee. An IMPLICIT statement streams through
// plain auto-commit, which the driver never retries anyway.
type Stream struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	result  neo4j.ResultWithContext
}

// Cursor is the narrow view of Stream the orchestrator depends on — kept as
// an interface so tests can substitute a fake without building a real
// session or transaction.
type Cursor interface {
	Keys() ([]string, error)
	Next(ctx context.Context) (*neo4j.Record, bool, error)
	Close(ctx context.Context) error
	Summary(ctx context.Context) (neo4j.ResultSummary, error)
}

// Keys returns the result's column names.
func (s *Stream) Keys() ([]string, error) {
	return s.result.Keys()
}

// Next advances the cursor and returns the next record. ok is false once
// the result is exhausted; callers should then call Summary.
func (s *Stream) Next(ctx context.Context) (*neo4j.Record, bool, error) {
	if s.result.Next(ctx) {
		return s.result.Record(), true, nil
	}
	if err := s.result.Err(); err != nil {
		return nil, false, sserr.Wrap(err, sserr.CodeDatabaseError, "stream read failed")
	}
	return nil, false, nil
}

// Close commits (MANAGED) the explicit transaction if one is open, then
// closes the session. Call it whether or not the cursor was exhausted so
// the session returns to the pool.
func (s *Stream) Close(ctx context.Context) error {
	var err error
	if s.tx != nil {
		err = s.tx.Commit(ctx)
		if err != nil {
			_ = s.tx.Rollback(ctx)
		}
	}
	if closeErr := s.session.Close(ctx); err == nil {
		err = closeErr
	}
	if err != nil {
		return sserr.Wrap(err, sserr.CodeDatabaseError, "failed to close stream")
	}
	return nil
}

// Summary consumes and returns the result's summary. Only valid after Next
// has returned ok=false.
func (s *Stream) Summary(ctx context.Context) (neo4j.ResultSummary, error) {
	summary, err := s.result.Consume(ctx)
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to consume stream summary")
	}
	return summary, nil
}

// OpenStream opens a result cursor for cypher per the MANAGED/IMPLICIT
// distinction documented on Stream. The caller owns the returned Stream and
// must Close it.
func (r *Router) OpenStream(ctx context.Context, database string, target evaluator.Target, mode evaluator.TransactionMode, impersonatedUser, cypher string, params map[string]any) (Cursor, error) {
	_, span := r.startSpan(ctx, "OpenStream", database, cypher)

	session := r.driver.NewSession(ctx, r.sessionConfig(database, target, impersonatedUser))

	if mode == evaluator.ModeImplicit {
		result, err := session.Run(ctx, cypher, params)
		if err != nil {
			finishSpan(span, err)
			session.Close(ctx)
			return nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to open auto-commit stream")
		}
		finishSpan(span, nil)
		return &Stream{session: session, result: result}, nil
	}

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		finishSpan(span, err)
		session.Close(ctx)
		return nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to begin stream transaction")
	}
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		finishSpan(span, err)
		_ = tx.Rollback(ctx)
		session.Close(ctx)
		return nil, sserr.Wrap(err, sserr.CodeDatabaseError, "failed to open managed stream")
	}
	finishSpan(span, nil)
	return &Stream{session: session, tx: tx, result: result}, nil
}
