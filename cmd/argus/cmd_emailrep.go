package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/modules"
	"argus/internal/osintweb"
	"argus/internal/tracker"
	"argus/internal/types"
)

// emailrepCmd checks one address against the reputation services. It
// needs no AI providers, so it builds a leaner stack than analyze.
var emailrepCmd = &cobra.Command{
	Use:   "emailrep [address]",
	Short: "Check an email address against reputation services",
	Long: `Queries the configured email reputation checkers in order and
prints their verdicts. The chain stops early once one service reports
a high-confidence verdict.

Example:
  argus emailrep john@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runEmailRep,
}

func runEmailRep(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := resolveWorkspace()
	if err := logging.Initialize(ws); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	cfg, err := config.Load(config.DefaultPath(ws))
	if err != nil {
		return err
	}
	trk, err := tracker.Open(ws)
	if err != nil {
		return fmt.Errorf("failed to open tracker: %w", err)
	}
	defer trk.Close()

	address := args[0]
	logger.Info("Checking email reputation", zap.String("address", address))

	mod := modules.NewEmailRepModule(modules.Deps{
		Email:   osintweb.DefaultEmailCheckers(cfg.OSINT),
		Tracker: trk,
	})
	env := mod.Analyze(ctx, address, types.AnalyzeOptions{
		SessionID: uuid.NewString(),
		UserID:    "cli",
	})
	if env.Result.Error != "" {
		return fmt.Errorf("%s", env.Result.Error)
	}

	fmt.Fprintln(cmd.OutOrStdout(), env.Result.Text)
	if safe, ok := env.Details["safe"]; ok {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSafe: %s (confidence %.2f)\n", safe, env.Confidence)
	}
	return nil
}
