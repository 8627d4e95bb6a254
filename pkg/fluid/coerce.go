package fluid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// falsy strings coerce to zero when they do not parse as a number.
var falsy = map[string]bool{
	"false": true,
	"no":    true,
	"off":   true,
}

// CoerceFloat converts a settings value for a numeric key.
//
// Numbers convert directly and booleans become 0 or 1. Strings are parsed as
// a float; a string that does not parse becomes 0 when it reads "false", "no"
// or "off" (in any case) and 1 otherwise. Any other value goes through its
// string form.
func CoerceFloat(value any) float64 {
	if f, ok := numeric(value); ok {
		return f
	}
	s := stringForm(value)
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return truthiness(s)
}

// CoerceInt converts a settings value for an integer key. It follows the
// CoerceFloat rule and truncates toward zero. Values that are not finite fall
// back to the truthiness rule.
func CoerceInt(value any) int {
	if i, ok := integer(value); ok {
		return i
	}
	f, ok := numeric(value)
	if !ok {
		s := stringForm(value)
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
			return int(truthiness(s))
		}
		f = parsed
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return int(truthiness(stringForm(value)))
	}
	return int(math.Trunc(f))
}

func truthiness(s string) float64 {
	if falsy[strings.ToLower(strings.TrimSpace(s))] {
		return 0
	}
	return 1
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	if i, ok := integer(value); ok {
		return float64(i), true
	}
	return 0, false
}

func integer(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func stringForm(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
