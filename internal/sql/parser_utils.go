package sql

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// splitCommaSeparated splits a string by commas, but keeps it simple:
// it's fine for "id, name".
func splitCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitTopLevel splits by commas that are not nested in parentheses,
// e.g. "id INTEGER, name VARCHAR(16), PRIMARY KEY (id, name)".
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					out = append(out, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		out = append(out, p)
	}
	return out
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// parseNumber parses a numeric literal into the narrowest value type:
// integer if it fits int32, unsigned if it fits uint32, floating otherwise.
func parseNumber(tok string) (Value, error) {
	s := strings.TrimSpace(tok)
	if s == "" {
		return Value{}, fmt.Errorf("empty literal")
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case i >= math.MinInt32 && i <= math.MaxInt32:
			return IntegerValue(int32(i)), nil
		case i >= 0 && i <= math.MaxUint32:
			return UnsignedValue(uint32(i)), nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatingValue(f), nil
	}

	return Value{}, fmt.Errorf("cannot parse literal %q", tok)
}
