// Package codegen emits the two script realizations of a pipeline graph:
// a dataframe-style (pandas) script and a declarative (DuckDB SQL) script.
// Both walk the graph in dependency order and emit one named binding or
// subquery per node. Generation never fails; unsupported or malformed
// configurations degrade to clearly marked placeholders.
package codegen

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/graph"
)

const maxSlugLen = 40

// slug lowercases a label and collapses non-alphanumeric runs to a single
// underscore. Empty results fall back to "node".
func slug(label string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		s = "node"
	}
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "_")
	}
	return s
}

// bindingNames assigns a collision-safe, human-readable name per node.
// Duplicate base names are suffixed with an incrementing counter in
// first-seen order.
func bindingNames(order []string, byID map[string]*graph.Node) map[string]string {
	counts := make(map[string]int)
	names := make(map[string]string, len(order))
	for _, nid := range order {
		label := ""
		if n := byID[nid]; n != nil {
			label = n.Data.Label
		}
		base := slug(label)
		counts[base]++
		if counts[base] == 1 {
			names[nid] = base
		} else {
			names[nid] = fmt.Sprintf("%s_%d", base, counts[base])
		}
	}
	return names
}

// endNode picks the binding the emitted script's final "result" refers to:
// the explicit preview target when given, otherwise the last node in
// dependency order.
func endNode(order []string, target string) string {
	if target != "" {
		for _, nid := range order {
			if nid == target {
				return target
			}
		}
	}
	if len(order) == 0 {
		return ""
	}
	return order[len(order)-1]
}
