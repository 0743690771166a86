// Package evaluator classifies a Cypher statement into its execution
// requirements: which kind of Bolt session it needs (read replica capable
// or writer-only) and whether it must run as a managed, retriable
// transaction or an auto-commit one.
package evaluator

// Target is the routing requirement of a statement.
type Target string

const (
	// TargetReaders means the statement may be served by a read replica.
	TargetReaders Target = "READERS"

	// TargetWriters means the statement must reach a writer.
	TargetWriters Target = "WRITERS"

	// TargetAuto means server-side routing is available and the database
	// itself decides; no EXPLAIN classification is needed.
	TargetAuto Target = "AUTO"
)

// TransactionMode is the transaction-function requirement of a statement.
type TransactionMode string

const (
	// ModeManaged statements run inside a retriable read/write transaction
	// function.
	ModeManaged TransactionMode = "MANAGED"

	// ModeImplicit statements run auto-commit and are never retried by the
	// driver.
	ModeImplicit TransactionMode = "IMPLICIT"
)

// Requirements is the derived, immutable pair a statement is classified
// into before a session is acquired for it.
type Requirements struct {
	Target          Target
	TransactionMode TransactionMode
}
