package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"argus/internal/availability"
	"argus/internal/config"
	"argus/internal/locate"
	"argus/internal/logging"
	"argus/internal/modules"
	"argus/internal/orchestrator"
	"argus/internal/osintweb"
	"argus/internal/provider"
	"argus/internal/router"
	"argus/internal/tracker"
	"argus/internal/types"
)

var (
	analyzeQueryType string
	analyzeMode      string
	analyzeProvider  string
	analyzeRaw       bool
)

// analyzeCmd runs the full module fan-out for one query
var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Run a query through every analysis module and build a report",
	Long: `Runs the full fan-out: location extraction with per-location
satellite lookups, then each analysis module in sequence, then
aggregation into a single deduplicated report.

Progress is narrated as modules run; the final report is rendered to
the terminal.

Examples:
  argus analyze "wildfires near Athens this week"
  argus analyze --query-type username johndoe
  argus analyze --mode metadata "Black Rock City aerial photo"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

// askCmd sends one prompt to every available provider and merges answers
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask all available AI providers and merge their answers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeQueryType, "query-type", "", "Footprint query type: email, username, ip, domain, url (default: auto-detect)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "Timeline mode: image, metadata, reverse")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "Pin a specific AI provider")
	analyzeCmd.Flags().BoolVar(&analyzeRaw, "raw", false, "Print the report as plain text without terminal styling")
}

// stack bundles everything a query run needs, so commands share one
// construction path and one teardown order.
type stack struct {
	cfg     *config.Config
	watcher *config.Watcher
	tracker *tracker.Tracker
	store   *availability.Store
	router  *router.Router
}

// buildStack wires config, logging, tracking, providers, and routing
// for the given workspace. Callers must Close it.
func buildStack(ws string) (*stack, error) {
	if err := logging.Initialize(ws); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	s := &stack{}
	cfgPath := config.DefaultPath(ws)
	if w, err := config.NewWatcher(cfgPath); err == nil {
		s.watcher = w
		s.cfg = w.Current()
	} else {
		// No .argus directory yet; run on a one-shot load.
		cfg, lerr := config.Load(cfgPath)
		if lerr != nil {
			return nil, lerr
		}
		s.cfg = cfg
	}

	trk, err := tracker.Open(ws)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open tracker: %w", err)
	}
	s.tracker = trk

	reg := provider.NewRegistry(s.cfg)
	if len(reg.Names()) == 0 {
		s.Close()
		return nil, fmt.Errorf("no AI providers configured; set COHERE_API_KEY, GEMINI_API_KEY, HUGGINGFACE_API_KEY, or OPENAI_API_KEY")
	}
	s.store = availability.NewStore(ws, reg.Names())
	s.router = router.New(reg, s.store, trk, s.cfg.Router)
	return s, nil
}

func (s *stack) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.tracker != nil {
		_ = s.tracker.Close()
	}
	logging.Close()
}

// orchestratorSource returns the fan-out config, live from the watcher
// when one is running so file edits take effect mid-run.
func (s *stack) orchestratorSource() func() config.OrchestratorConfig {
	if s.watcher != nil {
		return func() config.OrchestratorConfig { return s.watcher.Current().Orchestrator }
	}
	cfg := s.cfg.Orchestrator
	return func() config.OrchestratorConfig { return cfg }
}

// scoringSource returns the confidence weights, live from the watcher
// when one is running.
func (s *stack) scoringSource() func() config.ScoringConfig {
	if s.watcher != nil {
		return func() config.ScoringConfig { return s.watcher.Current().Scoring }
	}
	cfg := s.cfg.Scoring
	return func() config.ScoringConfig { return cfg }
}

// buildDeps wires the external OSINT collaborators for the modules.
func buildDeps(s *stack) modules.Deps {
	ddg := osintweb.NewDuckDuckGo(s.cfg.OSINT)
	return modules.Deps{
		AI:        s.router,
		Checkers:  osintweb.DefaultCheckers(s.cfg.OSINT),
		Email:     osintweb.DefaultEmailCheckers(s.cfg.OSINT),
		Satellite: osintweb.NewFIRMSSource(s.cfg.OSINT),
		Timeline:  osintweb.NewTimelineClient(ddg),
		Search:    ddg,
		Scorer:    modules.NewWeightedScorerFromSource(s.scoringSource()),
		Tracker:   s.tracker,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	query := joinArgs(args)
	ws := resolveWorkspace()
	logger.Info("Processing query", zap.String("query", query), zap.String("workspace", ws))

	s, err := buildStack(ws)
	if err != nil {
		return err
	}
	defer s.Close()

	deps := buildDeps(s)
	registry := modules.DefaultRegistry(deps)
	satellite := modules.NewSatelliteModule(deps)
	locator := locate.New(s.router.AskAny)

	orch := orchestrator.NewFromSource(registry, satellite, locator, s.tracker, s.orchestratorSource())

	opts := types.AnalyzeOptions{
		SessionID: uuid.NewString(),
		UserID:    "cli",
		Provider:  analyzeProvider,
		QueryType: analyzeQueryType,
		Mode:      analyzeMode,
	}

	result := orch.Run(ctx, query, opts, orchestrator.WriterStatus(cmd.OutOrStdout()))

	fmt.Fprintln(cmd.OutOrStdout())
	rendered := result.Report
	if !analyzeRaw {
		if out, rerr := renderReport(result.Report); rerr == nil {
			rendered = out
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	prompt := joinArgs(args)
	ws := resolveWorkspace()

	s, err := buildStack(ws)
	if err != nil {
		return err
	}
	defer s.Close()

	merged := s.router.AskEnsemble(ctx, prompt, types.AnalyzeOptions{
		SessionID: uuid.NewString(),
		UserID:    "cli",
	})
	if merged.Error != "" {
		return fmt.Errorf("%s", merged.Error)
	}

	logger.Info("Ensemble answered", zap.Strings("providers", merged.Providers))
	fmt.Fprintln(cmd.OutOrStdout(), merged.Text)
	for _, e := range merged.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}
	return nil
}

// renderReport styles the plain-text report for the terminal.
func renderReport(report string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(report)
}
