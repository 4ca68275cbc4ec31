package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/interp"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/internal/validate"
)

func validateWorkflow(cmd *cobra.Command, path, target string, equivalence bool) error {
	wf, err := loadWorkflow(path)
	if err != nil {
		return err
	}
	g := wf.Graph().SubgraphTo(target)

	if vs := validate.Check(g); len(vs) > 0 {
		for _, v := range vs {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", v)
		}
		return fmt.Errorf("%d validation error(s)", len(vs))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ workflow is structurally valid")

	if !equivalence {
		return nil
	}

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.StartRun(state.RunKindValidate, target)
	if err != nil {
		return err
	}

	runner := &interp.Runner{
		Logger: logger,
		// An equivalence check must not write sink artifacts.
		Sink: func(string, []byte) error { return nil },
	}
	rep, err := newChecker(runner).Check(cmd.Context(), wf.Graph(), target)
	if err != nil {
		_ = store.FinishRun(rec.ID, state.RunStatusFailed, 0, err.Error())
		return err
	}

	if !rep.Match {
		_ = store.FinishRun(rec.ID, state.RunStatusMismatch, rep.Interp.Rows, rep.Reason)
		return fmt.Errorf("backends disagree: %s", rep.Reason)
	}
	if err := store.FinishRun(rec.ID, state.RunStatusSuccess, rep.Interp.Rows, ""); err != nil {
		logger.Warn("record run", "error", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ backends agree (%s, %d columns)\n",
		fmtRows(rep.Interp.Rows), len(rep.Interp.Columns))
	return nil
}
