package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IsNull reports whether a scalar is null. Missing map keys read as nil.
func IsNull(v any) bool {
	return v == nil
}

// StringOf stringifies a scalar; null becomes the empty string.
func StringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

var currencyRunes = map[rune]bool{'$': true, '€': true, '£': true, '¥': true}

// ParseNumber parses a string as a number after stripping surrounding
// whitespace, a leading currency symbol, thousands separators, and a
// trailing percent sign.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimSuffix(s, "%")
	for r := range currencyRunes {
		s = strings.TrimPrefix(s, string(r))
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NumberOf coerces a scalar to a number: numeric types pass through,
// booleans map to 0/1, strings go through ParseNumber.
func NumberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return ParseNumber(x)
	default:
		return 0, false
	}
}

var (
	trueTokens  = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true}
	falseTokens = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true}
)

// BoolOf coerces a scalar to a boolean. Recognized string tokens
// (case-insensitive) are true/t/1/yes/y and false/f/0/no/n; anything else
// falls back to a truthiness cast.
func BoolOf(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		tok := strings.ToLower(strings.TrimSpace(x))
		if trueTokens[tok] {
			return true
		}
		if falseTokens[tok] {
			return false
		}
		return tok != ""
	default:
		return true
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Cast coerces a scalar to the target type of a projection schema entry.
// Non-castable values coerce to null rather than raising; that holds for
// every target type.
func Cast(v any, dtype string) any {
	if IsNull(v) {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(dtype)) {
	case "integer":
		f, ok := NumberOf(v)
		if !ok {
			return nil
		}
		return int64(f)
	case "float":
		f, ok := NumberOf(v)
		if !ok {
			return nil
		}
		return f
	case "boolean":
		if s, isStr := v.(string); isStr {
			tok := strings.ToLower(strings.TrimSpace(s))
			if !trueTokens[tok] && !falseTokens[tok] {
				return nil
			}
		}
		return BoolOf(v)
	case "date":
		t, ok := parseTime(StringOf(v))
		if !ok {
			return nil
		}
		return t.Format("2006-01-02")
	case "datetime":
		t, ok := parseTime(StringOf(v))
		if !ok {
			return nil
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return StringOf(v)
	}
}
