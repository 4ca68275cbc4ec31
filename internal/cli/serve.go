package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/adapter"
	"github.com/leapstack-labs/leapflow/internal/equiv"
	"github.com/leapstack-labs/leapflow/internal/interp"
	"github.com/leapstack-labs/leapflow/internal/server"
	"github.com/leapstack-labs/leapflow/internal/state"
)

// newChecker builds an equivalence checker bound to the configured
// engine.
func newChecker(runner *interp.Runner) *equiv.Checker {
	return &equiv.Checker{
		Logger: logger,
		Runner: runner,
		Open: func(ctx context.Context) (adapter.Adapter, error) {
			engineCfg := adapter.Config{Type: cfg.Engine, Path: cfg.Database}
			db, err := adapter.New(engineCfg, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, engineCfg); err != nil {
				return nil, err
			}
			return db, nil
		},
	}
}

func serveAPI(cmd *cobra.Command) error {
	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := &interp.Runner{Logger: logger}
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Logger:  logger,
		Runner:  runner,
		Checker: newChecker(runner),
		Store:   store,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}
