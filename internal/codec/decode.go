package codec

import (
	"encoding/json"
	"strconv"
	"strings"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// DecodeParameters converts a JSON parameter object into the map the Neo4j
// driver expects, recursively resolving nested lists, maps, and $type
// wrappers per the rules in the parameter mapping table.
func DecodeParameters(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		dv, err := decodeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = dv
	}
	return out, nil
}

// decodeValue maps a single decoded-JSON value (as produced by an
// encoding/json decoder with UseNumber: nil, bool, string, json.Number,
// []any, map[string]any) to the corresponding Cypher value. Any other Go
// type, float64 included, is rejected as INVALID_PARAMETER.
func decodeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case json.Number:
		return decodeNumber(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			dv, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case map[string]any:
		if tag, ok := val["$type"]; ok {
			return decodeTagged(tag, val["_value"])
		}
		out := make(map[string]any, len(val))
		for k, e := range val {
			dv, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	default:
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "unsupported parameter value of Go type %T", v)
	}
}

// decodeNumber distinguishes a Cypher INTEGER (64-bit) from a FLOAT
// (64-bit) by the literal's shape: a json.Number containing neither a
// decimal point nor an exponent marker decodes as an integer; anything
// else decodes as a float64 at full double precision.
func decodeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "parameter value %q is not a valid number", s)
	}
	return f, nil
}

// decodeTagged resolves a {"$type":tag,"_value":literal} wrapper. tag must
// be a string naming a registered extended type, and literal (for every
// tag this gateway recognizes) must itself be a string.
func decodeTagged(tag any, value any) (any, error) {
	tagName, ok := tag.(string)
	if !ok {
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "$type must be a string, got %T", tag)
	}
	decoder, known := tagRegistry[tagName]
	if !known {
		return nil, errUnsupportedType.WithDetail("tag", tagName)
	}
	literal, ok := value.(string)
	if !ok {
		return nil, sserr.Newf(sserr.CodeInvalidParameter,
			"Value %v of type $type:%s has to be String-based", value, tagName)
	}
	return decoder(literal)
}
