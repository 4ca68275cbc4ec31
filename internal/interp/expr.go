package interp

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leapflow/internal/ident"
)

// Predicate decides whether one row survives a filter.
type Predicate func(row Row) (bool, error)

// Formula computes one scalar from one row.
type Formula func(row Row) (any, error)

var exprFileOpts = &syntax.FileOptions{}

// CompileFilter compiles a boolean row expression. The source is parsed
// once; only a single expression is accepted, statements are rejected at
// compile time. Column values are bound by name into the evaluation
// environment, with clean numeric strings coerced to numbers so
// predicates like "amount > 5" work on freshly imported text data.
func CompileFilter(src string) (Predicate, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = "True"
	}
	expr, err := exprFileOpts.ParseExpr("filter", src, 0)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return func(row Row) (bool, error) {
		thread := &starlark.Thread{Name: "filter"}
		v, err := starlark.EvalExprOptions(exprFileOpts, thread, expr, rowEnv(row, true))
		if err != nil {
			return false, err
		}
		return bool(v.Truth()), nil
	}, nil
}

// CompileFormula compiles a value expression. Bare references to the
// given columns are rewritten to typed accessor calls first, unless the
// expression already uses the accessors itself.
func CompileFormula(src string, cols []string) (Formula, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = "0"
	}
	src = ident.RewriteColumns(src, cols, ident.RewriteAccessor)
	expr, err := exprFileOpts.ParseExpr("formula", src, 0)
	if err != nil {
		return nil, fmt.Errorf("compile formula: %w", err)
	}
	return func(row Row) (any, error) {
		thread := &starlark.Thread{Name: "formula"}
		v, err := starlark.EvalExprOptions(exprFileOpts, thread, expr, rowEnv(row, false))
		if err != nil {
			return nil, err
		}
		return fromStarlark(v), nil
	}, nil
}

// rowEnv binds the row into a Starlark environment: one name per column
// that is a legal identifier, plus the typed accessors num/str/bool/val
// which also reach columns whose names are not identifiers.
func rowEnv(row Row, coerceNumeric bool) starlark.StringDict {
	env := make(starlark.StringDict, len(row)+4)
	for col, v := range row {
		if !isIdentName(col) {
			continue
		}
		if coerceNumeric {
			if s, ok := v.(string); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					env[col] = starlark.Float(f)
					continue
				}
			}
		}
		env[col] = toStarlark(v)
	}
	env["num"] = accessorBuiltin("num", row, func(v any) starlark.Value {
		f, ok := NumberOf(v)
		if !ok {
			return starlark.None
		}
		return starlark.Float(f)
	})
	env["str"] = accessorBuiltin("str", row, func(v any) starlark.Value {
		return starlark.String(StringOf(v))
	})
	env["bool"] = accessorBuiltin("bool", row, func(v any) starlark.Value {
		return starlark.Bool(BoolOf(v))
	})
	env["val"] = accessorBuiltin("val", row, toStarlark)
	return env
}

func accessorBuiltin(name string, row Row, conv func(any) starlark.Value) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var col string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &col); err != nil {
			return nil, err
		}
		return conv(row[col]), nil
	})
}

func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(x)
	case float64:
		return starlark.Float(x)
	case int:
		return starlark.MakeInt(x)
	case int64:
		return starlark.MakeInt64(x)
	case string:
		return starlark.String(x)
	default:
		return starlark.String(StringOf(x))
	}
}

func fromStarlark(v starlark.Value) any {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.Float:
		return float64(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		f, _ := starlark.AsFloat(x)
		return f
	case starlark.String:
		return string(x)
	default:
		return v.String()
	}
}

func isIdentName(s string) bool {
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
