package sourcegen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"argus/internal/config"
)

func TestMain(m *testing.M) {
	// The genai dependency chain starts a long-lived opencensus stats
	// worker at init; it is not ours to stop.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testCfg() config.SourcegenConfig {
	return config.SourcegenConfig{
		Workers:      3,
		CallLimit:    100,
		BatchSize:    2,
		MaxBatches:   3,
		OutputFile:   "osint_sources.json",
		FailedReport: "osint_failed_report.json",
		RetrySleep:   "0s",
	}
}

// scriptedAsk answers prompts by matching substrings, in order of
// registration. Unmatched prompts fail the test.
type scriptedAsk struct {
	t       *testing.T
	mu      sync.Mutex
	scripts []askScript
	calls   []string
}

type askScript struct {
	contains string
	answer   string
	err      error
}

func (s *scriptedAsk) on(contains, answer string) *scriptedAsk {
	s.scripts = append(s.scripts, askScript{contains: contains, answer: answer})
	return s
}

func (s *scriptedAsk) onErr(contains string, err error) *scriptedAsk {
	s.scripts = append(s.scripts, askScript{contains: contains, err: err})
	return s
}

func (s *scriptedAsk) ask(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, prompt)
	for _, sc := range s.scripts {
		if strings.Contains(prompt, sc.contains) {
			return sc.answer, sc.err
		}
	}
	s.t.Errorf("unscripted prompt: %q", prompt)
	return "", fmt.Errorf("unscripted prompt")
}

func sourcesJSON(country string, n int) string {
	var entries []string
	for i := 0; i < n; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"country":%q,"source_name":"Source %d","bucket":"Government","trust_tier":1,"access":"RSS","language":"en","notes":""}`,
			country, i))
	}
	return "[" + strings.Join(entries, ",") + "]"
}

func readCatalogFile(t *testing.T, path string) Catalog {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestGate_AllowsUpToLimitWithoutWaiting(t *testing.T) {
	g := NewGate(3)
	base := time.Now()
	g.now = func() time.Time { return base }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatal("should not sleep under the limit")
		return nil
	}
	for i := 0; i < 3; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if g.InFlight() != 3 {
		t.Errorf("in flight = %d", g.InFlight())
	}
}

func TestGate_BlocksUntilOldestExpires(t *testing.T) {
	g := NewGate(2)
	now := time.Now()
	g.now = func() time.Time { return now }

	var slept []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d) // advance the clock instead of sleeping
		return nil
	}

	g.Wait(context.Background())
	now = now.Add(10 * time.Second)
	g.Wait(context.Background())

	// Third call must wait for the first stamp (50s old) to age out.
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 1 {
		t.Fatalf("slept %d times, want 1", len(slept))
	}
	want := 50*time.Second + 100*time.Millisecond
	if slept[0] != want {
		t.Errorf("slept %v, want %v", slept[0], want)
	}
}

func TestGate_WaitHonorsContext(t *testing.T) {
	g := NewGate(1)
	g.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCollectCountry_DedupesAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	// Batches 1 and 2 return the same two sources, so batch 2 adds
	// nothing; batch 3 is short and ends collection.
	sa.on("Batch: 1", sourcesJSON("Norway", 2))
	sa.on("Batch: 2", sourcesJSON("Norway", 2))
	sa.on("Batch: 3", `[{"country":"Norway","source_name":"Unique","bucket":"Tech","trust_tier":2,"access":"API","language":"en","notes":""}]`)

	g := New(sa.ask, testCfg(), dir)
	if err := g.initOutput(); err != nil {
		t.Fatal(err)
	}
	if fail := g.collectCountry(context.Background(), "Europe", "Norway"); fail != nil {
		t.Fatalf("unexpected failure: %+v", fail)
	}

	cat := readCatalogFile(t, g.OutputPath())
	got := cat["Europe"]["Norway"]
	if len(got) != 3 {
		t.Fatalf("sources = %d, want 3 (deduped)", len(got))
	}
	if got[2].SourceName != "Unique" {
		t.Errorf("last source = %q", got[2].SourceName)
	}
}

func TestCollectCountry_StopsEarlyOnShortBatch(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("Batch: 1", sourcesJSON("Fiji", 1)) // short: 1 < BatchSize 2

	g := New(sa.ask, testCfg(), dir)
	g.initOutput()
	if fail := g.collectCountry(context.Background(), "Oceania", "Fiji"); fail != nil {
		t.Fatalf("unexpected failure: %+v", fail)
	}
	if len(sa.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(sa.calls))
	}
}

func TestCollectCountry_FencedAndNoisyJSON(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("Batch: 1", "```json\n[{\"country\":\"Japan\",\"source_name\":\"NHK ⭐\",\"bucket\":\"National Media\",\"trust_tier\":1,\"access\":\"RSS\",\"language\":\"ja\",\"notes\":\"\"},]\n```")

	g := New(sa.ask, testCfg(), dir)
	g.initOutput()
	if fail := g.collectCountry(context.Background(), "Asia", "Japan"); fail != nil {
		t.Fatalf("unexpected failure: %+v", fail)
	}
	cat := readCatalogFile(t, g.OutputPath())
	if len(cat["Asia"]["Japan"]) != 1 {
		t.Fatalf("sources = %d", len(cat["Asia"]["Japan"]))
	}
}

func TestCollectCountry_ReportsFailureOnGarbage(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("Batch: 1", "I'm sorry, I cannot help with that.")

	g := New(sa.ask, testCfg(), dir)
	g.initOutput()
	fail := g.collectCountry(context.Background(), "Europe", "Atlantis")
	if fail == nil {
		t.Fatal("expected failure")
	}
	if fail.Country != "Atlantis" || !strings.Contains(fail.Reason, "No JSON array") {
		t.Errorf("failure = %+v", fail)
	}
}

func TestRun_CollectsAndSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("continents", `["Europe"]`)
	sa.on("countries in the continent: Europe", `["Norway", "Sweden"]`)
	sa.on("for Norway", sourcesJSON("Norway", 1))
	sa.on("for Sweden", sourcesJSON("Sweden", 1))

	cfg := testCfg()
	g := New(sa.ask, cfg, dir)

	// Pre-seed Norway so only Sweden is pending.
	os.MkdirAll(filepath.Join(dir, ".argus"), 0755)
	seed := Catalog{"Europe": {"Norway": {{Country: "Norway", SourceName: "Existing"}}}}
	data, _ := json.Marshal(seed)
	os.WriteFile(g.OutputPath(), data, 0644)

	if err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, call := range sa.calls {
		if strings.Contains(call, "for Norway") {
			t.Error("Norway was already collected, should not be re-asked")
		}
	}
	cat := readCatalogFile(t, g.OutputPath())
	if cat["Europe"]["Norway"][0].SourceName != "Existing" {
		t.Error("existing entry was overwritten")
	}
	if len(cat["Europe"]["Sweden"]) != 1 {
		t.Error("Sweden was not collected")
	}
	if _, err := os.Stat(g.FailedPath()); !os.IsNotExist(err) {
		t.Error("no failure report expected on clean run")
	}
}

func TestRun_WorkerPoolRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	var inFlight, peak int32

	countries := `["A", "B", "C", "D", "E", "F"]`
	ask := func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "continents") {
			return `["Testland"]`, nil
		}
		if strings.Contains(prompt, "countries in the continent") {
			return countries, nil
		}
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return sourcesJSON("X", 1), nil
	}

	cfg := testCfg()
	cfg.Workers = 2
	g := New(ask, cfg, dir)
	if err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrent collections = %d, want <= 2", p)
	}
}

func TestRun_WritesFailureReport(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("continents", `["Europe"]`)
	sa.on("countries in the continent: Europe", `["Norway", "Atlantis"]`)
	sa.on("for Norway", sourcesJSON("Norway", 1))
	sa.onErr("for Atlantis", fmt.Errorf("model refused"))

	g := New(sa.ask, testCfg(), dir)
	if err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(g.FailedPath())
	if err != nil {
		t.Fatal(err)
	}
	var failures []Failure
	if err := json.Unmarshal(data, &failures); err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d", len(failures))
	}
	if failures[0].Country != "Atlantis" || !strings.Contains(failures[0].Reason, "model refused") {
		t.Errorf("failure = %+v", failures[0])
	}
}

func TestRetryFailed_ConsumesReport(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("for Atlantis", sourcesJSON("Atlantis", 1))

	g := New(sa.ask, testCfg(), dir)
	os.MkdirAll(filepath.Join(dir, ".argus"), 0755)
	report := []Failure{{Continent: "Europe", Country: "Atlantis", Reason: "model refused"}}
	data, _ := json.Marshal(report)
	os.WriteFile(g.FailedPath(), data, 0644)

	if err := g.RetryFailed(context.Background()); err != nil {
		t.Fatal(err)
	}

	cat := readCatalogFile(t, g.OutputPath())
	if len(cat["Europe"]["Atlantis"]) != 1 {
		t.Error("retried country missing from catalog")
	}
	if _, err := os.Stat(g.FailedPath()); !os.IsNotExist(err) {
		t.Error("report should be removed after full success")
	}
}

func TestRetryFailed_KeepsRemainingFailures(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t}
	sa.on("for Atlantis", sourcesJSON("Atlantis", 1))
	sa.onErr("for Lemuria", fmt.Errorf("still refusing"))

	g := New(sa.ask, testCfg(), dir)
	os.MkdirAll(filepath.Join(dir, ".argus"), 0755)
	report := []Failure{
		{Continent: "Europe", Country: "Atlantis", Reason: "x"},
		{Continent: "Asia", Country: "Lemuria", Reason: "y"},
	}
	data, _ := json.Marshal(report)
	os.WriteFile(g.FailedPath(), data, 0644)

	if err := g.RetryFailed(context.Background()); err != nil {
		t.Fatal(err)
	}

	left, err := os.ReadFile(g.FailedPath())
	if err != nil {
		t.Fatal(err)
	}
	var remaining []Failure
	json.Unmarshal(left, &remaining)
	if len(remaining) != 1 || remaining[0].Country != "Lemuria" {
		t.Errorf("remaining = %+v", remaining)
	}
}

func TestRetryFailed_SkipsAlreadyCollected(t *testing.T) {
	dir := t.TempDir()
	sa := &scriptedAsk{t: t} // any ask call would fail the test

	g := New(sa.ask, testCfg(), dir)
	os.MkdirAll(filepath.Join(dir, ".argus"), 0755)
	seed := Catalog{"Europe": {"Norway": {{Country: "Norway", SourceName: "Existing"}}}}
	data, _ := json.Marshal(seed)
	os.WriteFile(g.OutputPath(), data, 0644)
	report, _ := json.Marshal([]Failure{{Continent: "Europe", Country: "Norway", Reason: "x"}})
	os.WriteFile(g.FailedPath(), report, 0644)

	if err := g.RetryFailed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sa.calls) != 0 {
		t.Errorf("made %d LLM calls, want 0", len(sa.calls))
	}
}

func TestRetryFailed_MissingReportErrors(t *testing.T) {
	g := New(nil, testCfg(), t.TempDir())
	if err := g.RetryFailed(context.Background()); err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestNormalizeSourceName(t *testing.T) {
	if normalizeSourceName("The Guardian (UK)") != normalizeSourceName("the guardian uk") {
		t.Error("normalization should collapse punctuation and case")
	}
}
