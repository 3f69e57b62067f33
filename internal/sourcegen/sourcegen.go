// Package sourcegen bulk-generates a global OSINT source catalog by
// walking continent, country, then batched source prompts through an
// LLM. Countries are collected by a bounded worker pool sharing one
// sliding-window rate gate; failures land in a JSON report a retry
// pass consumes later.
package sourcegen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"argus/internal/config"
	"argus/internal/locate"
	"argus/internal/logging"
)

// Source is one cataloged OSINT source.
type Source struct {
	Country    string `json:"country"`
	SourceName string `json:"source_name"`
	Bucket     string `json:"bucket"`
	TrustTier  int    `json:"trust_tier"`
	Access     string `json:"access"`
	Language   string `json:"language"`
	Notes      string `json:"notes"`
}

// Failure records one country that could not be collected.
type Failure struct {
	Continent string `json:"continent"`
	Country   string `json:"country"`
	Reason    string `json:"reason"`
}

// Catalog is the output document: continent, then country, then sources.
type Catalog map[string]map[string][]Source

// AskFunc is the LLM dependency. Implementations own retry/backoff;
// the generator owns proactive rate limiting through the gate.
type AskFunc func(ctx context.Context, prompt string) (string, error)

// Generator drives the collection run.
type Generator struct {
	ask  AskFunc
	gate *Gate
	cfg  config.SourcegenConfig

	outputPath string
	failedPath string

	fileMu sync.Mutex // output file read-modify-write
}

// New builds a Generator writing under the workspace .argus directory.
func New(ask AskFunc, cfg config.SourcegenConfig, workspace string) *Generator {
	return &Generator{
		ask:        ask,
		gate:       NewGate(cfg.CallLimit),
		cfg:        cfg,
		outputPath: filepath.Join(workspace, ".argus", cfg.OutputFile),
		failedPath: filepath.Join(workspace, ".argus", cfg.FailedReport),
	}
}

const continentsPrompt = "List all current major continents on Earth as a JSON array of strings. " +
	"Return only the JSON array, with no explanation or extra text."

func countriesPrompt(continent string) string {
	return fmt.Sprintf("List all sovereign countries in the continent: %s. "+
		"Return only a JSON array of strings, with no explanation or extra text.", continent)
}

func (g *Generator) sourcePrompt(country string, batch int) string {
	return fmt.Sprintf(`You are an expert OSINT cataloguer.
Generate a list of %d OSINT sources for %s using 10 buckets (e.g., Government, National Media, Regional Media, NGO, Tech, Cyber, Community, Data Portals, Intelligence, Trackers).
Each entry must be a JSON object with:
- country
- source_name
- bucket
- trust_tier (1-3)
- access (RSS/API/Scrape)
- language
- notes
Respond strictly in valid JSON. Do not include markdown, explanation, or comments.
If you cannot find %d sources, return as many as possible, but always return a valid JSON array.
Batch: %d`, g.cfg.BatchSize, country, g.cfg.BatchSize, batch)
}

// Run performs the full global collection. It returns an error only
// for top-level fatal conditions (continent list unobtainable, file
// I/O broken); per-country failures go to the failure report.
func (g *Generator) Run(ctx context.Context) error {
	log := logging.Get(logging.CategorySourcegen)

	if err := g.initOutput(); err != nil {
		return err
	}

	continents, err := g.askStringArray(ctx, continentsPrompt)
	if err != nil {
		return fmt.Errorf("continent list: %w", err)
	}
	log.Info("collecting %d continents", len(continents))

	var failMu sync.Mutex
	var failures []Failure

	for _, continent := range continents {
		countries, err := g.askStringArray(ctx, countriesPrompt(continent))
		if err != nil {
			log.Error("country list for %s: %v", continent, err)
			failMu.Lock()
			failures = append(failures, Failure{Continent: continent, Reason: "country list: " + err.Error()})
			failMu.Unlock()
			continue
		}

		pending, err := g.filterCollected(continent, countries)
		if err != nil {
			return err
		}
		log.Info("continent %s: %d countries pending of %d", continent, len(pending), len(countries))

		grp, grpCtx := errgroup.WithContext(ctx)
		grp.SetLimit(g.cfg.Workers)
		for _, country := range pending {
			country := country
			grp.Go(func() error {
				if fail := g.collectCountry(grpCtx, continent, country); fail != nil {
					failMu.Lock()
					failures = append(failures, *fail)
					failMu.Unlock()
				}
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return err
		}
	}

	return g.writeFailureReport(failures)
}

// RetryFailed re-runs collection for every entry in the failure
// report, sequentially with a fixed pause between calls.
func (g *Generator) RetryFailed(ctx context.Context) error {
	log := logging.Get(logging.CategorySourcegen)

	data, err := os.ReadFile(g.failedPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("failure report %s not found", g.failedPath)
	}
	if err != nil {
		return fmt.Errorf("read failure report: %w", err)
	}
	var failed []Failure
	if err := json.Unmarshal(data, &failed); err != nil {
		return fmt.Errorf("parse failure report: %w", err)
	}
	if len(failed) == 0 {
		log.Info("no failed countries to retry")
		return os.Remove(g.failedPath)
	}

	if err := g.initOutput(); err != nil {
		return err
	}

	pause := config.Duration(g.cfg.RetrySleep, 3*time.Second)
	var remaining []Failure
	for i, entry := range failed {
		if entry.Country == "" {
			continue
		}
		done, err := g.alreadyCollected(entry.Continent, entry.Country)
		if err != nil {
			return err
		}
		if done {
			log.Info("%s already collected, skipping retry", entry.Country)
			continue
		}
		log.Info("retrying %s (%s)", entry.Country, entry.Continent)
		if fail := g.collectCountry(ctx, entry.Continent, entry.Country); fail != nil {
			remaining = append(remaining, *fail)
		}
		if i < len(failed)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
	}

	if len(remaining) == 0 {
		log.Info("all retries succeeded")
		return os.Remove(g.failedPath)
	}
	return g.writeFailureReport(remaining)
}

// collectCountry gathers up to MaxBatches batches of sources for one
// country, deduplicating across batches by normalized source name.
func (g *Generator) collectCountry(ctx context.Context, continent, country string) *Failure {
	log := logging.Get(logging.CategorySourcegen)
	var all []Source
	seen := make(map[string]struct{})

	for batch := 1; batch <= g.cfg.MaxBatches; batch++ {
		if err := g.gate.Wait(ctx); err != nil {
			return &Failure{Continent: continent, Country: country, Reason: "cancelled: " + err.Error()}
		}
		raw, err := g.ask(ctx, g.sourcePrompt(country, batch))
		if err != nil {
			return &Failure{Continent: continent, Country: country,
				Reason: fmt.Sprintf("%v (batch %d)", err, batch)}
		}

		arr := locate.ExtractJSONArray(raw)
		if arr == "" {
			return &Failure{Continent: continent, Country: country,
				Reason: fmt.Sprintf("No JSON array (batch %d)", batch)}
		}
		var batchSources []Source
		if err := json.Unmarshal([]byte(sanitizeJSON(arr)), &batchSources); err != nil {
			return &Failure{Continent: continent, Country: country,
				Reason: fmt.Sprintf("%v (batch %d)", err, batch)}
		}

		for _, s := range batchSources {
			key := normalizeSourceName(s.SourceName)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, s)
		}
		// A short batch means the model ran out of sources.
		if len(batchSources) < g.cfg.BatchSize {
			break
		}
	}

	if len(all) == 0 {
		return &Failure{Continent: continent, Country: country, Reason: "No sources collected"}
	}
	if err := g.appendCountry(continent, country, all); err != nil {
		return &Failure{Continent: continent, Country: country, Reason: err.Error()}
	}
	log.Info("saved %d sources for %s (%s)", len(all), country, continent)
	return nil
}

// askStringArray asks the LLM and decodes a JSON string array.
func (g *Generator) askStringArray(ctx context.Context, prompt string) ([]string, error) {
	if err := g.gate.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := g.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	arr := locate.ExtractJSONArray(raw)
	if arr == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var out []string
	if err := json.Unmarshal([]byte(sanitizeJSON(arr)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- catalog file handling ---

func (g *Generator) initOutput() error {
	g.fileMu.Lock()
	defer g.fileMu.Unlock()
	if _, err := os.Stat(g.outputPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(g.outputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(g.outputPath, []byte("{}"), 0644)
}

func (g *Generator) readCatalog() (Catalog, error) {
	data, err := os.ReadFile(g.outputPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if cat == nil {
		cat = Catalog{}
	}
	return cat, nil
}

// appendCountry merges one country into the catalog file. Existing
// entries win: a country already collected is never overwritten.
func (g *Generator) appendCountry(continent, country string, sources []Source) error {
	g.fileMu.Lock()
	defer g.fileMu.Unlock()

	cat, err := g.readCatalog()
	if err != nil {
		return err
	}
	if _, ok := cat[continent]; !ok {
		cat[continent] = map[string][]Source{}
	}
	if _, exists := cat[continent][country]; exists {
		return nil
	}
	cat[continent][country] = sources

	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return os.WriteFile(g.outputPath, data, 0644)
}

func (g *Generator) alreadyCollected(continent, country string) (bool, error) {
	g.fileMu.Lock()
	defer g.fileMu.Unlock()
	cat, err := g.readCatalog()
	if err != nil {
		return false, err
	}
	_, ok := cat[continent][country]
	return ok, nil
}

func (g *Generator) filterCollected(continent string, countries []string) ([]string, error) {
	g.fileMu.Lock()
	defer g.fileMu.Unlock()
	cat, err := g.readCatalog()
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, c := range countries {
		if _, ok := cat[continent][c]; !ok {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

func (g *Generator) writeFailureReport(failures []Failure) error {
	log := logging.Get(logging.CategorySourcegen)
	if len(failures) == 0 {
		log.Info("all countries processed successfully")
		return nil
	}
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return fmt.Errorf("encode failure report: %w", err)
	}
	if err := os.WriteFile(g.failedPath, data, 0644); err != nil {
		return fmt.Errorf("write failure report: %w", err)
	}
	log.Warn("wrote %d failures to %s", len(failures), g.failedPath)
	return nil
}

// FailedPath returns where the failure report lives.
func (g *Generator) FailedPath() string { return g.failedPath }

// OutputPath returns where the catalog lives.
func (g *Generator) OutputPath() string { return g.outputPath }

// --- sanitation ---

var nonASCII = regexp.MustCompile(`[^\x00-\x7F]`)
var trailingComma = regexp.MustCompile(`,\s*]`)

// sanitizeJSON strips non-ASCII noise (emoji, decorative glyphs) and
// trailing commas that LLMs routinely emit inside otherwise-valid
// arrays.
func sanitizeJSON(s string) string {
	s = nonASCII.ReplaceAllString(s, "")
	return trailingComma.ReplaceAllString(s, "]")
}

var nonWord = regexp.MustCompile(`\W+`)

// normalizeSourceName canonicalizes a source name for deduplication.
func normalizeSourceName(name string) string {
	return strings.ToLower(nonWord.ReplaceAllString(name, ""))
}
