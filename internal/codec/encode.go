package codec

import (
	"encoding/hex"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// EncodeValue renders a Cypher value (as produced by the driver) into its
// new-format JSON representation: primitives and containers pass through,
// and every extended type is wrapped as {"$type":tag,"_value":...}.
//
// Lossy float->float32 coercion never happens here: float64 values are
// encoded as-is and Go's encoding/json renders them at full double
// precision.
func EncodeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int64, float64:
		return val
	case int:
		return int64(val)
	case []byte:
		return wrappedValue{Type: "Byte[]", Value: hex.EncodeToString(val)}
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = EncodeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = EncodeValue(e)
		}
		return out
	case neo4j.Date:
		return wrappedValue{Type: "Date", Value: time.Time(val).Format("2006-01-02")}
	case neo4j.LocalTime:
		return wrappedValue{Type: "LocalTime", Value: time.Time(val).Format("15:04:05.999999999")}
	case neo4j.Time:
		return wrappedValue{Type: "Time", Value: time.Time(val).Format("15:04:05.999999999Z07:00")}
	case neo4j.LocalDateTime:
		return wrappedValue{Type: "LocalDateTime", Value: time.Time(val).Format("2006-01-02T15:04:05.999999999")}
	case time.Time:
		// The driver returns DATE_TIME values as a plain time.Time.
		return wrappedValue{Type: "DateTime", Value: val.Format("2006-01-02T15:04:05.999999999Z07:00")}
	case neo4j.Duration:
		return encodeDuration(val)
	case neo4j.Point2D:
		return wrappedValue{Type: "Point", Value: renderPoint2D(val)}
	case neo4j.Point3D:
		return wrappedValue{Type: "Point", Value: renderPoint3D(val)}
	case neo4j.Node:
		return wrappedValue{Type: "Node", Value: nodeValue{Labels: val.Labels, Props: encodeProps(val.Props)}}
	case neo4j.Relationship:
		return wrappedValue{Type: "Relationship", Value: relValue{RelType: val.Type, Props: encodeProps(val.Props)}}
	case neo4j.Path:
		return wrappedValue{Type: "Path", Value: encodePath(val)}
	default:
		// Unrecognized driver type: pass it through unchanged for
		// encoding/json to render rather than fail the whole response.
		return v
	}
}

type nodeValue struct {
	Labels []string       `json:"_labels"`
	Props  map[string]any `json:"_props"`
}

type relValue struct {
	RelType string         `json:"_type"`
	Props   map[string]any `json:"_props"`
}

func encodeProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = EncodeValue(v)
	}
	return out
}

// encodePath renders a path as the alternating node/relationship sequence
// a client would walk: start node, first relationship, next node, and so
// on.
func encodePath(p neo4j.Path) []any {
	out := make([]any, 0, len(p.Nodes)+len(p.Relationships))
	if len(p.Nodes) > 0 {
		out = append(out, EncodeValue(p.Nodes[0]))
	}
	for i, rel := range p.Relationships {
		out = append(out, EncodeValue(rel))
		if i+1 < len(p.Nodes) {
			out = append(out, EncodeValue(p.Nodes[i+1]))
		}
	}
	return out
}

// encodeDuration disambiguates the driver's single Duration representation
// into the literal form that round-trips most naturally: a pure month
// count renders as a Period literal, a pure second count (no months, no
// days) renders as a Duration literal, and anything mixing both renders as
// the raw ISO-8601 form under the Duration tag.
func encodeDuration(d neo4j.Duration) wrappedValue {
	switch {
	case d.Months != 0 && d.Days == 0 && d.Seconds == 0 && d.Nanos == 0:
		return wrappedValue{Type: "Period", Value: formatPeriod(d.Months, 0)}
	case d.Months == 0 && d.Days != 0 && d.Seconds == 0 && d.Nanos == 0:
		return wrappedValue{Type: "Period", Value: formatPeriod(0, d.Days)}
	case d.Months == 0 && d.Days == 0:
		return wrappedValue{Type: "Duration", Value: formatDuration(d.Seconds, d.Nanos)}
	default:
		return wrappedValue{Type: "Duration", Value: formatISO(d)}
	}
}

func formatPeriod(months, days int64) string {
	years := months / 12
	remMonths := months % 12
	s := "P"
	if years != 0 {
		s += itoa(years) + "Y"
	}
	if remMonths != 0 {
		s += itoa(remMonths) + "M"
	}
	if days != 0 {
		s += itoa(days) + "D"
	}
	if s == "P" {
		s = "P0D"
	}
	return s
}

func formatDuration(seconds int64, nanos int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	s := "PT"
	if hours != 0 {
		s += itoa(hours) + "H"
	}
	if minutes != 0 {
		s += itoa(minutes) + "M"
	}
	if secs != 0 || nanos != 0 || s == "PT" {
		if nanos != 0 {
			s += formatFractionalSeconds(secs, nanos) + "S"
		} else {
			s += itoa(secs) + "S"
		}
	}
	return s
}

func formatISO(d neo4j.Duration) string {
	s := "P"
	years := d.Months / 12
	months := d.Months % 12
	if years != 0 {
		s += itoa(years) + "Y"
	}
	if months != 0 {
		s += itoa(months) + "M"
	}
	if d.Days != 0 {
		s += itoa(d.Days) + "D"
	}
	timePart := formatDuration(d.Seconds, d.Nanos)
	if timePart != "PT" {
		s += timePart[1:]
	}
	return s
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func formatFractionalSeconds(secs int64, nanos int) string {
	// nanos is always paired with a non-negative secs component here.
	s := itoa(secs) + "."
	frac := itoa(int64(nanos))
	for len(frac) < 9 {
		frac = "0" + frac
	}
	for len(frac) > 1 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	return s + frac
}
