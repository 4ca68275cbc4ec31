package interp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/leapflow/internal/graph"
	"github.com/leapstack-labs/leapflow/internal/validate"
)

// Runner executes pipeline graphs. The zero value is usable: files are
// read and written through the local filesystem and sampling is seeded
// from the clock.
type Runner struct {
	Logger *slog.Logger

	// Loader resolves a source path to its raw bytes. Defaults to
	// os.ReadFile.
	Loader func(ctx context.Context, path string) ([]byte, error)

	// Sink persists a produced artifact. Defaults to os.WriteFile.
	Sink func(path string, data []byte) error

	// Seed fixes the sampling RNG when non-zero. Node-level seeds take
	// precedence.
	Seed int64
}

// Result is the outcome of a run: the row-set of the end node plus any
// per-node errors accumulated along the way. Node errors do not abort
// the run; the affected node degrades and downstream nodes still execute.
type Result struct {
	RowSet     *RowSet
	NodeErrors map[string]string
}

// Run executes the graph up to target ("" means the whole graph) and
// returns the end node's row-set. Structural problems abort with no
// partial result: validation failures up front, and source or
// unrecognized-kind failures mid-run. Other per-node execution problems
// are collected in the result instead.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, target string) (*Result, error) {
	sub := g.SubgraphTo(target)
	if err := validate.CheckBlocking(sub); err != nil {
		return nil, err
	}

	byID := sub.ByID()
	order := sub.TopoOrder()
	parents := sub.Parents()

	outputs := make(map[string]*RowSet, len(order))
	res := &Result{NodeErrors: make(map[string]string)}

	for _, nid := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := byID[nid]
		if n == nil {
			continue
		}
		start := time.Now()
		out, err := r.applyNode(ctx, n, parents[nid], outputs)
		if err != nil {
			if structuralFailure(n.Data.Type) {
				return nil, fmt.Errorf("node %s: %w", nid, err)
			}
			res.NodeErrors[nid] = err.Error()
		}
		if out == nil {
			out = NewRowSet()
		}
		outputs[nid] = out
		r.logger().Debug("node executed",
			"node", nid,
			"kind", n.Data.Type,
			"rows", len(out.Rows),
			"elapsed", time.Since(start),
		)
	}

	if end := runEndNode(order, target); end != "" {
		res.RowSet = outputs[end]
	} else {
		res.RowSet = NewRowSet()
	}
	return res, nil
}

func (r *Runner) applyNode(ctx context.Context, n *graph.Node, pids []string, outputs map[string]*RowSet) (*RowSet, error) {
	d := n.Data
	ins := make([]*RowSet, 0, len(pids))
	for _, pid := range pids {
		in := outputs[pid]
		if in == nil {
			in = NewRowSet()
		}
		ins = append(ins, in)
	}

	switch d.Type {
	case graph.KindSource:
		return r.opSource(ctx, d)
	case graph.KindSelect:
		return opSelect(ins[0], d), nil
	case graph.KindFilter:
		return opFilter(ins[0], d)
	case graph.KindSummarize:
		return opSummarize(ins[0], d), nil
	case graph.KindFormula:
		return opFormula(ins[0], d)
	case graph.KindSort:
		return opSort(ins[0], d), nil
	case graph.KindSample:
		return r.opSample(ins[0], d), nil
	case graph.KindJoin:
		return opJoin(ins[0], ins[1], d), nil
	case graph.KindInspect:
		return ins[0], nil
	case graph.KindSink:
		return ins[0], r.opSink(ins[0], d)
	default:
		var out *RowSet
		if len(ins) > 0 {
			out = ins[0]
		}
		return out, fmt.Errorf("unsupported operation %s", d.Type)
	}
}

// structuralFailure reports whether an error from this kind aborts the
// whole run. A failed source or an unrecognized kind leaves nothing to
// degrade from; transform and sink errors degrade per node instead.
func structuralFailure(kind graph.Kind) bool {
	switch kind {
	case graph.KindSelect, graph.KindFilter, graph.KindSummarize,
		graph.KindFormula, graph.KindSort, graph.KindSample,
		graph.KindJoin, graph.KindInspect, graph.KindSink:
		return false
	}
	return true
}

// runEndNode resolves which node's output the run reports: the explicit
// target when it is part of the order, otherwise the last executed node.
func runEndNode(order []string, target string) string {
	if target != "" {
		for _, id := range order {
			if id == target {
				return target
			}
		}
	}
	if len(order) == 0 {
		return ""
	}
	return order[len(order)-1]
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) load(ctx context.Context, path string) ([]byte, error) {
	if r.Loader != nil {
		return r.Loader(ctx, path)
	}
	return os.ReadFile(path)
}

func (r *Runner) sink(path string, data []byte) error {
	if r.Sink != nil {
		return r.Sink(path, data)
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *Runner) seed(d graph.NodeData) int64 {
	if s := int64(graph.AsInt(d.Seed, 0)); s != 0 {
		return s
	}
	if r.Seed != 0 {
		return r.Seed
	}
	return time.Now().UnixNano()
}
