package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/orchestrator"
	"github.com/sells-group/thesis-scout/internal/report"
)

var (
	runDry bool
	runOut string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every enabled provider over the configured segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runDry {
			cfg.Run.Dry = true
		}
		if runOut != "" {
			cfg.Run.OutputDir = runOut
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		adapters, err := orchestrator.BuildAdapters(ctx, cfg)
		if err != nil {
			return err
		}

		o := orchestrator.New(cfg, adapters, orchestrator.BuildTools(cfg), orchestrator.WithStore(st))
		rep, err := o.Run(ctx)
		if err != nil {
			if rep == nil {
				return eris.Wrap(err, "run")
			}
			zap.L().Error("run finished but the report was not saved", zap.Error(err))
		}

		fmt.Fprint(os.Stdout, report.Summary(rep))
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDry, "dry", false, "skip validation and stub all tool calls")
	runCmd.Flags().StringVar(&runOut, "out", "", "report output directory (default from config)")
	rootCmd.AddCommand(runCmd)
}
