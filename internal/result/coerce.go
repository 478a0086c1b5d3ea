package result

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// The getters of Rows and List convert between scalar types the way the C
// library functions strtol, strtoul and strtod do: leading whitespace is
// skipped, the longest valid prefix is used and garbage yields 0.

func asString(v sql.Value) string {
	switch v.Type {
	case sql.TypeVarchar:
		return v.S
	case sql.TypeInteger:
		return strconv.FormatInt(int64(v.I32), 10)
	case sql.TypeUnsigned:
		return strconv.FormatUint(uint64(v.U32), 10)
	case sql.TypeFloating:
		return fmt.Sprintf("%f", v.F64)
	case sql.TypeBlob:
		return hex.EncodeToString(v.Blob)
	default:
		return ""
	}
}

func asInteger(v sql.Value) int32 {
	switch v.Type {
	case sql.TypeVarchar:
		return int32(strtol(v.S))
	case sql.TypeInteger:
		return v.I32
	case sql.TypeUnsigned:
		return int32(v.U32)
	case sql.TypeFloating:
		return int32(v.F64)
	default:
		return 0
	}
}

func asUnsigned(v sql.Value) uint32 {
	switch v.Type {
	case sql.TypeVarchar:
		return uint32(strtol(v.S))
	case sql.TypeInteger:
		return uint32(v.I32)
	case sql.TypeUnsigned:
		return v.U32
	case sql.TypeFloating:
		return uint32(v.F64)
	default:
		return 0
	}
}

func asFloating(v sql.Value) float64 {
	switch v.Type {
	case sql.TypeVarchar:
		return strtod(v.S)
	case sql.TypeInteger:
		return float64(v.I32)
	case sql.TypeUnsigned:
		return float64(v.U32)
	case sql.TypeFloating:
		return v.F64
	default:
		return 0
	}
}

// strtol parses an optionally signed decimal prefix of s.
func strtol(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// out of range: saturate like strtol
		if s[0] == '-' {
			return -1 << 63
		}
		return 1<<63 - 1
	}
	return n
}

// strtod parses the longest floating point prefix of s.
func strtod(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	for end < len(s) && strings.IndexByte("+-.0123456789eE", s[end]) >= 0 {
		end++
	}
	for ; end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return f
		}
	}
	return 0
}
