package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// tagDecoder parses a $type literal (the _value string) into a Cypher
// value. tagEncoder renders a Cypher value of the matching Go type back
// into its $type/_value wire form; it is only ever called with a value
// whose concrete type the registration guarantees, so it never needs to
// report a mismatch.
type tagDecoder func(literal string) (any, error)
type tagEncoder func(v any) wrappedValue

// wrappedValue is the wire shape of an extended-type value under the
// new-format view: {"$type":"...", "_value": ...}.
type wrappedValue struct {
	Type  string `json:"$type"`
	Value any    `json:"_value"`
}

// tagRegistry is the closed table mapping a $type tag to its decoder. It is
// consulted by decodeTagged and is the single place new extended
// types would be added.
var tagRegistry = map[string]tagDecoder{
	"Date":          decodeDate,
	"Time":          decodeTime,
	"LocalTime":     decodeLocalTime,
	"DateTime":      decodeDateTime,
	"LocalDateTime": decodeLocalDateTime,
	"Duration":      decodeDuration,
	"Period":        decodePeriod,
	"Point":         decodePoint,
	"Byte[]":        decodeByteArray,
}

func decodeDate(literal string) (any, error) {
	t, err := time.Parse("2006-01-02", literal)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "Date literal %q is not ISO-8601", literal)
	}
	return neo4j.DateOf(t), nil
}

func decodeTime(literal string) (any, error) {
	t, err := time.Parse("15:04:05Z07:00", literal)
	if err != nil {
		t, err = time.Parse("15:04:05.999999999Z07:00", literal)
	}
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "Time literal %q is not ISO-8601 offset time", literal)
	}
	return neo4j.OffsetTimeOf(t), nil
}

func decodeLocalTime(literal string) (any, error) {
	t, err := time.Parse("15:04:05", literal)
	if err != nil {
		t, err = time.Parse("15:04:05.999999999", literal)
	}
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "LocalTime literal %q is not ISO-8601 local time", literal)
	}
	return neo4j.LocalTimeOf(t), nil
}

// splitZoneName separates the bracketed "[Region/City]" suffix some clients
// append to a zoned date-time literal from the rest of the literal. When
// the zone name loads, decodeDateTime reads the local date-time (to whole
// seconds) in that zone and ignores the offset; otherwise it parses the
// offset form.
func splitZoneName(literal string) (string, string) {
	if i := strings.IndexByte(literal, '['); i >= 0 && strings.HasSuffix(literal, "]") {
		return literal[:i], literal[i+1 : len(literal)-1]
	}
	return literal, ""
}

func decodeDateTime(literal string) (any, error) {
	base, zone := splitZoneName(literal)
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err == nil {
			if t, perr := time.ParseInLocation("2006-01-02T15:04:05", base[:min(len(base), 19)], loc); perr == nil {
				return t, nil
			}
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
	} {
		if t, err := time.Parse(layout, base); err == nil {
			return t, nil
		}
	}
	return nil, sserr.Newf(sserr.CodeInvalidParameter, "DateTime literal %q is not ISO-8601 zoned date-time", literal)
}

func decodeLocalDateTime(literal string) (any, error) {
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, literal); err == nil {
			return neo4j.LocalDateTimeOf(t), nil
		}
	}
	return nil, sserr.Newf(sserr.CodeInvalidParameter, "LocalDateTime literal %q is not ISO-8601 local date-time", literal)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// decodeDuration parses a full ISO-8601 duration ("PnYnMnDTnHnMnS") into the
// driver's single Duration representation.
func decodeDuration(literal string) (any, error) {
	return parseISO8601Duration(literal)
}

// decodePeriod parses a date-only ISO-8601 period ("PnYnMnD", no time
// component) using the same underlying Duration type; Cypher has no
// separate period value, only DURATION.
func decodePeriod(literal string) (any, error) {
	if strings.ContainsRune(literal, 'T') {
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "Period literal %q must not contain a time component", literal)
	}
	return parseISO8601Duration(literal)
}

// parseISO8601Duration parses "P[nY][nM][nD][T[nH][nM][nS]]" into months,
// days, seconds and nanoseconds. Fractional seconds are supported.
func parseISO8601Duration(literal string) (neo4j.Duration, error) {
	var d neo4j.Duration
	s := literal
	if !strings.HasPrefix(s, "P") {
		return d, sserr.Newf(sserr.CodeInvalidParameter, "duration literal %q must start with P", literal)
	}
	s = s[1:]

	datePart, timePart, hasTime := s, "", false
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		datePart, timePart, hasTime = s[:i], s[i+1:], true
	}

	var years, months, days int64
	var err error
	years, months, days, err = scanDateComponents(datePart)
	if err != nil {
		return d, sserr.Wrapf(err, sserr.CodeInvalidParameter, "duration literal %q has an invalid date component", literal)
	}

	var hours, minutes int64
	var seconds float64
	if hasTime {
		hours, minutes, seconds, err = scanTimeComponents(timePart)
		if err != nil {
			return d, sserr.Wrapf(err, sserr.CodeInvalidParameter, "duration literal %q has an invalid time component", literal)
		}
	}

	totalSeconds := hours*3600 + minutes*60 + int64(seconds)
	nanos := int(int64((seconds-float64(int64(seconds)))*1e9) % 1e9)

	d.Months = years*12 + months
	d.Days = days
	d.Seconds = totalSeconds
	d.Nanos = nanos
	return d, nil
}

func scanDateComponents(s string) (years, months, days int64, err error) {
	for len(s) > 0 {
		idx := strings.IndexAny(s, "YMD")
		if idx < 0 {
			return 0, 0, 0, fmt.Errorf("trailing characters %q", s)
		}
		n, perr := strconv.ParseInt(s[:idx], 10, 64)
		if perr != nil {
			return 0, 0, 0, perr
		}
		switch s[idx] {
		case 'Y':
			years = n
		case 'M':
			months = n
		case 'D':
			days = n
		}
		s = s[idx+1:]
	}
	return years, months, days, nil
}

func scanTimeComponents(s string) (hours, minutes int64, seconds float64, err error) {
	for len(s) > 0 {
		idx := strings.IndexAny(s, "HMS")
		if idx < 0 {
			return 0, 0, 0, fmt.Errorf("trailing characters %q", s)
		}
		n, perr := strconv.ParseFloat(s[:idx], 64)
		if perr != nil {
			return 0, 0, 0, perr
		}
		switch s[idx] {
		case 'H':
			hours = int64(n)
		case 'M':
			minutes = int64(n)
		case 'S':
			seconds = n
		}
		s = s[idx+1:]
	}
	return hours, minutes, seconds, nil
}

// decodePoint parses "SRID=<int>;POINT(x y [z])" (or "POINT Z(x y z)") WKT
// into a Point2D or Point3D depending on whether a Z ordinate is present.
func decodePoint(literal string) (any, error) {
	parts := strings.SplitN(literal, ";", 2)
	if len(parts) != 2 {
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "Point literal %q must be SRID=<int>;POINT(...)", literal)
	}
	sridStr := strings.TrimPrefix(strings.TrimSpace(parts[0]), "SRID=")
	srid, err := strconv.ParseUint(sridStr, 10, 32)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "Point literal %q has an invalid SRID", literal)
	}

	wkt := strings.TrimSpace(parts[1])
	open := strings.IndexByte(wkt, '(')
	closeIdx := strings.LastIndexByte(wkt, ')')
	if open < 0 || closeIdx < open {
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "Point literal %q is not valid WKT", literal)
	}
	coords := strings.Fields(wkt[open+1 : closeIdx])

	toFloat := func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}

	switch len(coords) {
	case 2:
		x, err1 := toFloat(coords[0])
		y, err2 := toFloat(coords[1])
		if err1 != nil || err2 != nil {
			return nil, sserr.Newf(sserr.CodeInvalidParameter, "Point literal %q has non-numeric coordinates", literal)
		}
		return neo4j.Point2D{X: x, Y: y, SpatialRefId: uint32(srid)}, nil
	case 3:
		x, err1 := toFloat(coords[0])
		y, err2 := toFloat(coords[1])
		z, err3 := toFloat(coords[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, sserr.Newf(sserr.CodeInvalidParameter, "Point literal %q has non-numeric coordinates", literal)
		}
		return neo4j.Point3D{X: x, Y: y, Z: z, SpatialRefId: uint32(srid)}, nil
	default:
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "Point literal %q must have 2 or 3 coordinates", literal)
	}
}

// decodeByteArray parses pairs of hex digits, with optional interspersed
// whitespace, into a raw byte slice (Cypher BYTES).
func decodeByteArray(literal string) (any, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, literal)
	if len(clean)%2 != 0 {
		return nil, sserr.Newf(sserr.CodeInvalidParameter, "Byte[] literal has an odd number of hex digits")
	}
	out := make([]byte, len(clean)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(clean[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, sserr.Wrapf(err, sserr.CodeInvalidParameter, "Byte[] literal contains non-hex digits")
		}
		out[i] = byte(b)
	}
	return out, nil
}
