package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"argus/internal/availability"
	"argus/internal/config"
	"argus/internal/provider"
)

var resetAll bool

// providersCmd groups provider availability operations
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect and manage AI provider availability",
}

var providersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers are available and why others are benched",
	RunE:  providersStatus,
}

var providersResetCmd = &cobra.Command{
	Use:   "reset [provider]",
	Short: "Clear a provider's rate-limit bench (or all with --all)",
	Long: `Minute and daily rate limits clear on their own as the window
passes. Hard limits (quota exhausted, invalid key) persist until reset
here, after the underlying problem is fixed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: providersReset,
}

func init() {
	providersResetCmd.Flags().BoolVar(&resetAll, "all", false, "Reset every provider")
	providersCmd.AddCommand(providersStatusCmd)
	providersCmd.AddCommand(providersResetCmd)
}

func openStore(ws string) (*availability.Store, error) {
	cfg, err := config.Load(config.DefaultPath(ws))
	if err != nil {
		return nil, err
	}
	reg := provider.NewRegistry(cfg)
	names := reg.Names()
	if len(names) == 0 {
		// Show state for the full provider set even with no keys set.
		names = []string{"cohere", "gemini", "huggingface", "openai"}
	}
	return availability.NewStore(ws, names), nil
}

func providersStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore(resolveWorkspace())
	if err != nil {
		return err
	}
	status, err := store.Status()
	if err != nil {
		return fmt.Errorf("failed to read availability store: %w", err)
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(cmd.OutOrStdout(), "Provider availability")
	fmt.Fprintln(cmd.OutOrStdout(), "=====================")
	for _, name := range names {
		st := status[name]
		if st.Available {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %-12s available (used %d)\n", name, st.Used)
			continue
		}
		detail := string(st.LimitType)
		if st.LastLimit != nil {
			detail = fmt.Sprintf("%s limit since %s", st.LimitType, st.LastLimit.Format("15:04:05"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %-12s benched: %s\n", name, detail)
	}
	return nil
}

func providersReset(cmd *cobra.Command, args []string) error {
	store, err := openStore(resolveWorkspace())
	if err != nil {
		return err
	}

	if resetAll {
		if err := store.ResetAll(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All providers reset.")
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("name a provider or pass --all")
	}
	if err := store.Reset(args[0]); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Provider %s reset.\n", args[0])
	return nil
}
