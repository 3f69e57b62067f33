// Package config loads argus configuration from .argus/config.yaml,
// applying defaults and environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all argus configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// AI provider configuration
	Providers ProvidersConfig `yaml:"providers"`

	// Router behavior
	Router RouterConfig `yaml:"router"`

	// Fan-out engine behavior
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Footprint/OSINT confidence scoring weights
	Scoring ScoringConfig `yaml:"scoring"`

	// External OSINT surfaces (site checks, search, satellite, email rep)
	OSINT OSINTConfig `yaml:"osint"`

	// Bulk source generation utility
	Sourcegen SourcegenConfig `yaml:"sourcegen"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig configures one AI provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ProvidersConfig configures every supported provider.
type ProvidersConfig struct {
	Cohere      ProviderConfig `yaml:"cohere"`
	Gemini      ProviderConfig `yaml:"gemini"`
	HuggingFace ProviderConfig `yaml:"huggingface"`
	OpenAI      ProviderConfig `yaml:"openai"`
}

// RouterConfig configures backoff and per-call deadlines.
type RouterConfig struct {
	BackoffInitial string `yaml:"backoff_initial"` // first wait after a 429
	BackoffMax     string `yaml:"backoff_max"`     // backoff ceiling
	CallTimeout    string `yaml:"call_timeout"`    // per-provider-call deadline
}

// OrchestratorConfig configures the fan-out engine.
type OrchestratorConfig struct {
	ModuleTimeout string `yaml:"module_timeout"` // per-module deadline
	RunDeadline   string `yaml:"run_deadline"`   // whole-run deadline
	PacingDelay   string `yaml:"pacing_delay"`   // UX delay between modules
	MaxLocations  int    `yaml:"max_locations"`  // satellite sub-fan-out bound
}

// ScoringConfig holds the weights for the pluggable confidence scorer.
// Numeric weights are configuration, not code.
type ScoringConfig struct {
	PositiveWeight float64 `yaml:"positive_weight"`
	NegativeWeight float64 `yaml:"negative_weight"`
	ErrorWeight    float64 `yaml:"error_weight"`
	MaxScore       float64 `yaml:"max_score"`
}

// OSINTConfig configures the external OSINT collaborators. Base URLs
// are overridable so tests can point checkers at local servers.
type OSINTConfig struct {
	UserAgent       string `yaml:"user_agent"`
	CheckTimeout    string `yaml:"check_timeout"` // per-check HTTP deadline
	GitHubBaseURL   string `yaml:"github_base_url"`
	RedditBaseURL   string `yaml:"reddit_base_url"`
	PastebinBaseURL string `yaml:"pastebin_base_url"`
	SearchBaseURL   string `yaml:"search_base_url"`
	FirmsBaseURL    string `yaml:"firms_base_url"`
	KickboxAPIKey   string `yaml:"kickbox_api_key"`
	EmailableAPIKey string `yaml:"emailable_api_key"`
}

// SourcegenConfig configures the bulk OSINT source generator.
type SourcegenConfig struct {
	Workers       int    `yaml:"workers"`         // bounded worker pool size
	CallLimit     int    `yaml:"call_limit"`      // max LLM calls per trailing minute
	BatchSize     int    `yaml:"batch_size"`      // sources per API call
	MaxBatches    int    `yaml:"max_batches"`     // batches per country
	OutputFile    string `yaml:"output_file"`
	FailedReport  string `yaml:"failed_report"`
	RetrySleep    string `yaml:"retry_sleep"`     // pause between retry calls
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "argus",
		Version: "1.0.0",

		Providers: ProvidersConfig{
			Cohere: ProviderConfig{
				Model:   "command-r",
				BaseURL: "https://api.cohere.com/v1",
				Timeout: "120s",
			},
			Gemini: ProviderConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "120s",
			},
			HuggingFace: ProviderConfig{
				Model:   "mistralai/Mistral-7B-Instruct-v0.3",
				BaseURL: "https://api-inference.huggingface.co",
				Timeout: "120s",
			},
			OpenAI: ProviderConfig{
				Model:   "gpt-3.5-turbo",
				Timeout: "120s",
			},
		},

		Router: RouterConfig{
			BackoffInitial: "10s",
			BackoffMax:     "80s",
			CallTimeout:    "120s",
		},

		Orchestrator: OrchestratorConfig{
			ModuleTimeout: "60s",
			RunDeadline:   "10m",
			PacingDelay:   "800ms",
			MaxLocations:  3,
		},

		Scoring: ScoringConfig{
			PositiveWeight: 10,
			NegativeWeight: 2,
			ErrorWeight:    -1,
			MaxScore:       100,
		},

		OSINT: OSINTConfig{
			UserAgent:       "Mozilla/5.0 (compatible; argus/1.0)",
			CheckTimeout:    "8s",
			GitHubBaseURL:   "https://api.github.com",
			RedditBaseURL:   "https://www.reddit.com",
			PastebinBaseURL: "https://pastebin.com",
			SearchBaseURL:   "https://api.duckduckgo.com",
			FirmsBaseURL:    "https://firms.modaps.eosdis.nasa.gov",
		},

		Sourcegen: SourcegenConfig{
			Workers:      3,
			CallLimit:    10,
			BatchSize:    20,
			MaxBatches:   5,
			OutputFile:   "osint_sources_global.json",
			FailedReport: "osint_failed_report.json",
			RetrySleep:   "3s",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config path under a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".argus", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets environment variables win over the file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		c.Providers.Cohere.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Providers.Gemini.APIKey = key
	}
	if key := os.Getenv("HUGGINGFACE_API_KEY"); key != "" {
		c.Providers.HuggingFace.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("KICKBOX_API_KEY"); key != "" {
		c.OSINT.KickboxAPIKey = key
	}
	if key := os.Getenv("EMAILABLE_API_KEY"); key != "" {
		c.OSINT.EmailableAPIKey = key
	}
	if v := os.Getenv("ARGUS_MODULE_TIMEOUT"); v != "" {
		c.Orchestrator.ModuleTimeout = v
	}
	if v := os.Getenv("ARGUS_PACING_DELAY"); v != "" {
		c.Orchestrator.PacingDelay = v
	}
}

// Duration parses a duration string field, falling back to def when the
// field is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
