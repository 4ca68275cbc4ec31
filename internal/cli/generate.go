package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/codegen"
	"github.com/leapstack-labs/leapflow/internal/graph"
)

func newGenerateCmd() *cobra.Command {
	var (
		target   string
		optimize bool
		watch    bool
		toStdout bool
	)

	cmd := &cobra.Command{
		Use:   "generate <workflow.json>",
		Short: "Generate the pandas and SQL scripts for a workflow",
		Long: `Generate both script realizations of a workflow: a pandas script and
a DuckDB SQL script. Scripts are written next to each other in the
output directory, named after the workflow file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generateOnce(cmd, args[0], target, optimize, toStdout); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchWorkflow(cmd.Context(), args[0], func() {
				if err := generateOnce(cmd, args[0], target, optimize, toStdout); err != nil {
					logger.Error("regenerate failed", "error", err)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Generate up to this node only")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "Prune and combine redundant nodes first")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate whenever the workflow file changes")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print scripts instead of writing files")
	return cmd
}

func generateOnce(cmd *cobra.Command, path, target string, optimize, toStdout bool) error {
	wf, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	g := wf.Graph()
	if optimize {
		g = graph.Optimize(g, target)
	}

	py := codegen.Pandas(g, target)
	sqlText := codegen.SQL(g, target)

	if toStdout {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), py)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), sqlText)
		return nil
	}

	if err := os.MkdirAll(cfg.OutDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pyPath := filepath.Join(cfg.OutDir, base+".py")
	sqlPath := filepath.Join(cfg.OutDir, base+".sql")

	if err := os.WriteFile(pyPath, []byte(py+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", pyPath, err)
	}
	if err := os.WriteFile(sqlPath, []byte(sqlText+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", sqlPath, err)
	}
	logger.Info("scripts generated", "python", pyPath, "sql", sqlPath)
	return nil
}

// watchWorkflow blocks and re-runs regen whenever the workflow file is
// rewritten. The parent directory is watched because editors replace
// files instead of writing them in place.
func watchWorkflow(ctx context.Context, path string, regen func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching workflow", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("workflow changed", "op", ev.Op.String())
			regen()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
