// Package codec implements the bidirectional mapping between JSON request/
// response bodies and the Cypher value system exposed by the Neo4j driver.
//
// The codec is the only place in the gateway where dynamic JSON shape is
// interpreted: everywhere else, values travel as the driver's own Go
// representation (neo4j.Node, neo4j.Relationship, dbtype.Date, and so on)
// without being copied into a parallel type system.
package codec

import (
	"strings"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// ResultFormat is one of the result shapes a caller may request for a
// statement's response.
type ResultFormat string

const (
	// FormatRow renders each record as a plain row of values.
	FormatRow ResultFormat = "ROW"

	// FormatGraph additionally renders the deduplicated set of nodes and
	// relationships referenced anywhere in the result.
	FormatGraph ResultFormat = "GRAPH"
)

// parseResultFormat maps a case-insensitive resultDataContents entry to a
// ResultFormat. Unknown values report ok=false and the caller skips them:
// the legacy Neo4j HTTP API silently ignores unrecognized contents entries,
// and this codec follows the same leniency.
func parseResultFormat(s string) (ResultFormat, bool) {
	switch strings.ToLower(s) {
	case "row":
		return FormatRow, true
	case "graph":
		return FormatGraph, true
	default:
		return "", false
	}
}

// AnnotatedQuery is a single Cypher statement plus the parameters and
// response-shaping options a caller attached to it.
type AnnotatedQuery struct {
	// Text is the Cypher statement, trimmed of surrounding whitespace.
	Text string

	// Parameters holds the decoded Cypher parameter values, keyed by
	// parameter name.
	Parameters map[string]any

	// IncludeStats requests that the response carry the statement's
	// write-counters (nodes created, properties set, and so on).
	IncludeStats bool

	// ResultFormats is the non-empty set of result shapes requested for
	// the statement. Defaults to {FormatRow} when the caller specifies
	// nothing.
	ResultFormats map[ResultFormat]bool
}

// WantsGraph reports whether the query requested a graph projection.
func (q AnnotatedQuery) WantsGraph() bool {
	return q.ResultFormats[FormatGraph]
}

// WantsRow reports whether the query requested the row shape. This is true
// for every query that did not explicitly ask for graph alone, matching
// the legacy API's default.
func (q AnnotatedQuery) WantsRow() bool {
	return q.ResultFormats[FormatRow]
}

// QueryContainer is an ordered batch of statements submitted in a single
// HTTP request.
type QueryContainer struct {
	Statements []AnnotatedQuery
}

// jsonStatement is the wire shape of a single statement entry, as accepted
// by both the batch and streaming request bodies.
type jsonStatement struct {
	Statement          string         `json:"statement"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	IncludeStats       bool           `json:"includeStats,omitempty"`
	ResultDataContents []string       `json:"resultDataContents,omitempty"`
}

// jsonQueryContainer is the wire shape of the batch request body
// (`{"statements":[...]}`).
type jsonQueryContainer struct {
	Statements []jsonStatement `json:"statements"`
}

var errUnsupportedType = sserr.Newf(sserr.CodeInvalidParameter,
	"unsupported $type value; supported tags are Date, Time, LocalTime, "+
		"DateTime, LocalDateTime, Duration, Period, Point, Byte[]")
