package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"argus/internal/sourcegen"
)

var retryFailed bool

// sourcegenCmd bulk-generates the global OSINT source catalog
var sourcegenCmd = &cobra.Command{
	Use:   "sourcegen",
	Short: "Generate a global catalog of OSINT sources via the AI providers",
	Long: `Walks continent, then country, then batched source prompts through
the provider chain, collecting OSINT sources (media, government, NGO,
cyber, data portals) into .argus/osint_sources_global.json.

Collection is resumable: countries already in the catalog are skipped,
and countries that fail land in .argus/osint_failed_report.json for a
later run with --retry-failed.`,
	RunE: runSourcegen,
}

func init() {
	sourcegenCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Retry only the countries in the failure report")
}

func runSourcegen(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	ws := resolveWorkspace()
	s, err := buildStack(ws)
	if err != nil {
		return err
	}
	defer s.Close()

	// One prompt, first available provider; Ask handles quota backoff.
	ask := func(ctx context.Context, prompt string) (string, error) {
		available, err := s.router.AvailableProviders()
		if err != nil {
			return "", err
		}
		if len(available) == 0 {
			return "", fmt.Errorf("no AI providers available")
		}
		return s.router.Ask(ctx, available[0], prompt)
	}
	gen := sourcegen.New(ask, s.cfg.Sourcegen, ws)

	if retryFailed {
		logger.Info("Retrying failed countries", zap.String("report", gen.FailedPath()))
		if err := gen.RetryFailed(ctx); err != nil {
			return fmt.Errorf("retry failed: %w", err)
		}
	} else {
		logger.Info("Starting source generation", zap.String("output", gen.OutputPath()))
		if err := gen.Run(ctx); err != nil {
			return fmt.Errorf("source generation failed: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Catalog written to %s\n", gen.OutputPath())
	if _, err := os.Stat(gen.FailedPath()); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Some countries failed; see %s and re-run with --retry-failed.\n", gen.FailedPath())
	}
	return nil
}
