// Package ident provides the identifier quoting and expression rewriting
// shared by the script generators and the interpreter. Keeping these in
// one place is what keeps the three backends agreeing on how a column
// reference is spelled.
package ident

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Quote emits a column reference for the declarative backend. A bare
// identifier (letters/digits/underscore, not starting with a digit) is
// returned unquoted; anything else is wrapped in double quotes with
// internal quotes doubled.
func Quote(col string) string {
	if isBareIdent(col) {
		return col
	}
	return `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
}

func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// numericCmp matches a direct column-vs-numeric-literal comparison: a bare
// or quoted identifier, an operator, and a numeric literal. Deliberately
// narrow; comparisons buried in arbitrary sub-expressions are left alone.
var numericCmp = regexp.MustCompile(
	`([A-Za-z_][A-Za-z0-9_]*|"(?:[^"]|"")+")\s*(<=|>=|<>|=|<|>)\s*(-?\d+(?:\.\d+)?)`,
)

// SoftenNumericComparisons rewrites every column <op> numeric-literal
// comparison in a declarative-backend predicate to attempt a numeric cast
// of the column first, so values stored as text (for example from an
// imported file) still compare numerically.
func SoftenNumericComparisons(expr string) string {
	return numericCmp.ReplaceAllString(expr, `TRY_CAST($1 AS DOUBLE) $2 $3`)
}

// RewriteMode selects the target spelling of a rewritten column reference.
type RewriteMode int

const (
	// RewriteQuoted spells columns as quoted identifiers (declarative backend).
	RewriteQuoted RewriteMode = iota
	// RewriteAccessor spells columns as typed accessor calls
	// (interpreter / dataframe backend).
	RewriteAccessor
)

// accessorCall detects expressions that already reference the accessor
// helpers explicitly; those are left untouched to avoid double-rewriting.
var accessorCall = regexp.MustCompile(`\b(num|str|bool|val)\s*\(`)

// RewriteColumns rewrites every whole-word occurrence of a known column
// name in expr. Longer column names are matched before shorter ones that
// are prefixes of them, to avoid partial-name collisions.
func RewriteColumns(expr string, cols []string, mode RewriteMode) string {
	if len(cols) == 0 {
		return expr
	}
	if mode == RewriteAccessor && accessorCall.MatchString(expr) {
		return expr
	}

	ordered := append([]string(nil), cols...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	// Replace with sentinels first so a shorter column name can never
	// match inside an already rewritten longer one.
	replacements := make([]string, len(ordered))
	for i, col := range ordered {
		switch mode {
		case RewriteAccessor:
			replacements[i] = fmt.Sprintf("num(%q)", col)
		default:
			replacements[i] = Quote(col)
		}
		expr = replaceWord(expr, col, sentinel(i))
	}
	for i := range ordered {
		expr = strings.ReplaceAll(expr, sentinel(i), replacements[i])
	}
	return expr
}

func sentinel(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

// replaceWord replaces occurrences of name in expr that are not embedded
// in a longer identifier.
func replaceWord(expr, name, with string) string {
	if name == "" {
		return expr
	}
	var b strings.Builder
	for i := 0; i < len(expr); {
		j := strings.Index(expr[i:], name)
		if j < 0 {
			b.WriteString(expr[i:])
			break
		}
		j += i
		end := j + len(name)
		if boundaryBefore(expr, j) && boundaryAfter(expr, end) {
			b.WriteString(expr[i:j])
			b.WriteString(with)
			i = end
			continue
		}
		b.WriteString(expr[i : j+1])
		i = j + 1
	}
	return b.String()
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
