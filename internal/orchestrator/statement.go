package orchestrator

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StricklySoft/cypher-gateway/internal/codec"
)

// EagerResult is the outcome of one statement executed by Run: either a
// success carrying the statement's columns, collected records, and
// summary, or a failure carrying the structured DATABASE_ERROR the database
// produced for it. Evaluator errors abort the batch instead.
type EagerResult struct {
	Statement codec.AnnotatedQuery
	Columns   []string
	Records   []*neo4j.Record
	Summary   neo4j.ResultSummary
	Err       error
}

// Failed reports whether this result is a failure EagerResult.
func (r EagerResult) Failed() bool { return r.Err != nil }

// ResultContainer accumulates the outcome of a multi-statement Run. It is
// mutated while the batch executes and is safe to treat as immutable once
// Run returns.
type ResultContainer struct {
	// Results holds one EagerResult per statement that actually executed,
	// in submission order, successes and failures interleaved.
	Results []EagerResult

	// Notifications is the deduplicated set of server warnings raised
	// across every successful statement, by (code, position offset).
	Notifications []neo4j.Notification

	// AbortErr is the hard error (INVALID_QUERY, AUTH, transport) that cut
	// the batch short, or nil if every statement was attempted.
	AbortErr error
}

type notificationKey struct {
	code   string
	offset int
}

// collectNotifications merges a statement's notifications into the
// container, skipping any (code, offset) pair already recorded.
func (c *ResultContainer) collectNotifications(seen map[notificationKey]bool, notifications []neo4j.Notification) {
	for _, n := range notifications {
		offset := -1
		if pos := n.Position(); pos != nil {
			offset = pos.Offset()
		}
		key := notificationKey{code: n.Code(), offset: offset}
		if seen[key] {
			continue
		}
		seen[key] = true
		c.Notifications = append(c.Notifications, n)
	}
}
