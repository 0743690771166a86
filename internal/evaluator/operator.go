package evaluator

import (
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// updatingOperators is the known set of EXPLAIN plan operator names that
// may mutate the graph or schema. Operator names are matched after
// normalization (see normalizeOperatorName).
var updatingOperators = map[string]bool{
	"Create":        true,
	"Merge":         true,
	"Delete":        true,
	"DetachDelete":  true,
	"SetProperty":   true,
	"SetLabels":     true,
	"RemoveLabels":  true,
	"LockingMerge":  true,
	"ProcedureCall": true,
}

// normalizeOperatorName strips the `@db` suffix some operators carry (e.g.
// cluster-aware plans annotate the target database) and any trailing
// parenthesized type annotation, e.g. "NodeByLabelScan(0)" -> "NodeByLabelScan".
func normalizeOperatorName(name string) string {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// isUpdatingOperator reports whether the normalized operator name may
// mutate the graph: a name in updatingOperators, a schema operator whose
// name starts with "Create" or "Drop", or any name the evaluator doesn't
// recognize at all (the __UNKNOWN__ case from spec.md §4.2, a safe
// over-approximation since an unrecognized plan operator might be a
// mutation the evaluator simply hasn't been taught about yet).
func isUpdatingOperator(name string) bool {
	norm := normalizeOperatorName(name)
	if updatingOperators[norm] {
		return true
	}
	if strings.HasPrefix(norm, "Create") || strings.HasPrefix(norm, "Drop") {
		return true
	}
	return !knownReadOperators[norm]
}

// knownReadOperators is the set of common read-only plan operators. An
// operator absent from both this set and updatingOperators is treated as
// __UNKNOWN__ and classified as updating (target = WRITERS), per spec.
var knownReadOperators = map[string]bool{
	"AllNodesScan":         true,
	"NodeByLabelScan":      true,
	"NodeByIdSeek":         true,
	"NodeIndexSeek":        true,
	"NodeIndexScan":        true,
	"NodeUniqueIndexSeek":  true,
	"Argument":             true,
	"Projection":           true,
	"Filter":               true,
	"Expand":               true,
	"VarLengthExpand":      true,
	"OptionalExpand":       true,
	"Optional":             true,
	"Apply":                true,
	"CartesianProduct":     true,
	"Limit":                true,
	"Skip":                 true,
	"Sort":                 true,
	"Top":                  true,
	"Distinct":             true,
	"Aggregation":          true,
	"UnwindCollection":     true,
	"EagerAggregation":     true,
	"Union":                true,
	"ProduceResults":       true,
	"Eager":                true,
	"AntiConditionalApply": true,
	"ConditionalApply":     true,
	"Input":                true,
	"EmptyResult":          true,
	"SemiApply":            true,
	"AntiSemiApply":        true,
	"LetSemiApply":         true,
	"LetAntiSemiApply":     true,
	"ValueHashJoin":        true,
	"NodeHashJoin":         true,
}

// planOperatorNames walks an EXPLAIN plan tree and collects the (raw,
// un-normalized) name of every operator, root to leaves.
func planOperatorNames(root neo4j.Plan) []string {
	if root == nil {
		return nil
	}
	var names []string
	var walk func(n neo4j.Plan)
	walk = func(n neo4j.Plan) {
		names = append(names, n.Operator())
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(root)
	return names
}

// classifyTarget derives the routing target from an EXPLAIN plan's operator
// set: any updating operator (including an unrecognized one) means the
// statement must go to a writer.
func classifyTarget(plan neo4j.Plan) Target {
	for _, name := range planOperatorNames(plan) {
		if isUpdatingOperator(name) {
			return TargetWriters
		}
	}
	return TargetReaders
}
