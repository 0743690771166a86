package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// newDecoder returns a json.Decoder configured to preserve number shape
// (json.Number) so DecodeParameters can distinguish INTEGER from FLOAT.
func newDecoder(r io.Reader) *json.Decoder {
	d := json.NewDecoder(r)
	d.UseNumber()
	return d
}

// DecodeQueryContainer parses the batch request body
// (`{"statements":[{...}, ...]}`) used by the legacy `application/json`
// view.
func DecodeQueryContainer(body io.Reader) (QueryContainer, error) {
	var wire jsonQueryContainer
	if err := newDecoder(body).Decode(&wire); err != nil {
		return QueryContainer{}, sserr.Wrapf(err, sserr.CodeInvalidParameter, "request body is not valid JSON")
	}
	statements := make([]AnnotatedQuery, 0, len(wire.Statements))
	for _, s := range wire.Statements {
		q, err := toAnnotatedQuery(s)
		if err != nil {
			return QueryContainer{}, err
		}
		statements = append(statements, q)
	}
	return QueryContainer{Statements: statements}, nil
}

// DecodeAnnotatedQuery parses the single-statement request body
// (`{"statement":..., "parameters":...}`) used by the streaming
// `application/x-ndjson` view.
func DecodeAnnotatedQuery(body io.Reader) (AnnotatedQuery, error) {
	var wire jsonStatement
	if err := newDecoder(body).Decode(&wire); err != nil {
		return AnnotatedQuery{}, sserr.Wrapf(err, sserr.CodeInvalidParameter, "request body is not valid JSON")
	}
	return toAnnotatedQuery(wire)
}

func toAnnotatedQuery(s jsonStatement) (AnnotatedQuery, error) {
	text := strings.TrimSpace(s.Statement)
	if text == "" {
		return AnnotatedQuery{}, sserr.New(sserr.CodeInvalidParameter, "statement must not be empty")
	}

	params, err := DecodeParameters(s.Parameters)
	if err != nil {
		return AnnotatedQuery{}, err
	}

	formats := map[ResultFormat]bool{}
	if len(s.ResultDataContents) == 0 {
		formats[FormatRow] = true
	} else {
		for _, raw := range s.ResultDataContents {
			if f, ok := parseResultFormat(raw); ok {
				formats[f] = true
			}
		}
		if len(formats) == 0 {
			formats[FormatRow] = true
		}
	}

	return AnnotatedQuery{
		Text:          text,
		Parameters:    params,
		IncludeStats:  s.IncludeStats,
		ResultFormats: formats,
	}, nil
}

// ReadAll buffers the body so its raw bytes can be inspected (e.g. to
// recover the original statement text for an INVALID_QUERY error message)
// without consuming the reader twice.
func ReadAll(body io.Reader) (io.Reader, []byte, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(data), data, nil
}
