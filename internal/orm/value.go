package orm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AsInt64 converts a value scanned from SQLite into an int64. Text values
// holding decimal numbers (e.g. "1700000000.0") are truncated toward zero.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(math.Trunc(n)), true
	case []byte:
		return AsInt64(string(n))
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Trunc(f)), true
		}
	}
	return 0, false
}

// AsString converts a scanned value into a string. Nil is not a string.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case nil:
		return "", false
	}
	return fmt.Sprint(v), true
}

// FormatValue is the default display formatting: nil becomes "".
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IsIdentifier reports whether s is a plain SQL identifier
// ([A-Za-z_][A-Za-z0-9_]*). Only such names are spliced into statements.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
