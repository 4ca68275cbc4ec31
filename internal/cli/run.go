package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/interp"
	"github.com/leapstack-labs/leapflow/internal/state"
)

func newRunCmd() *cobra.Command {
	var (
		target string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Execute a workflow with the in-process interpreter",
		Long: `Run a workflow directly, without generating a script. Sink nodes write
their artifacts; the end node's rows are printed in the configured
output format. The outcome is recorded in the run history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}

			store, err := state.Open(cfg.StatePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := store.StartRun(state.RunKindRun, target)
			if err != nil {
				return err
			}

			runner := &interp.Runner{Logger: logger}
			res, err := runner.Run(cmd.Context(), wf.Graph(), target)
			if err != nil {
				_ = store.FinishRun(rec.ID, state.RunStatusFailed, 0, err.Error())
				return err
			}
			if err := store.FinishRun(rec.ID, state.RunStatusSuccess, len(res.RowSet.Rows), ""); err != nil {
				logger.Warn("record run", "error", err)
			}

			for nodeID, msg := range res.NodeErrors {
				logger.Warn("node error", "node", nodeID, "error", msg)
			}

			rs := res.RowSet
			if limit > 0 && len(rs.Rows) > limit {
				trimmed := *rs
				trimmed.Rows = rs.Rows[:limit]
				rs = &trimmed
			}
			return renderRowSet(cmd.OutOrStdout(), rs, cfg.Output)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Run up to this node only")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many rows (0 = all)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveAPI(cmd)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		target      string
		equivalence bool
	)

	cmd := &cobra.Command{
		Use:   "validate <workflow.json>",
		Short: "Check a workflow's structure, optionally against the SQL backend",
		Long: `Check every structural rule over the workflow graph and report all
violations. With --equivalence the workflow is additionally executed on
both the interpreter and the SQL engine, and the results compared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateWorkflow(cmd, args[0], target, equivalence)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Validate up to this node only")
	cmd.Flags().BoolVar(&equivalence, "equivalence", false, "Cross-check interpreter and SQL engine results")
	return cmd
}

func fmtRows(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
