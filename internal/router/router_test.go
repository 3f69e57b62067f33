package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"argus/internal/availability"
	"argus/internal/config"
	"argus/internal/provider"
	"argus/internal/types"
)

// stubClient scripts per-call responses so tests can drive retry paths.
type stubClient struct {
	name string

	mu    sync.Mutex
	calls int
	fn    func(call int) (string, error)
	delay time.Duration
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Ask(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.fn(call)
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func answer(text string) func(int) (string, error) {
	return func(int) (string, error) { return text, nil }
}

func failWith(err error) func(int) (string, error) {
	return func(int) (string, error) { return "", err }
}

func testRouterConfig() config.RouterConfig {
	return config.RouterConfig{
		BackoffInitial: "10s",
		BackoffMax:     "80s",
		CallTimeout:    "5s",
	}
}

// newTestRouter wires a router over stub clients with a temp-dir store
// and a sleep that records instead of waiting.
func newTestRouter(t *testing.T, clients ...provider.Client) (*Router, *availability.Store, *[]time.Duration) {
	t.Helper()
	names := make([]string, len(clients))
	for i, c := range clients {
		names[i] = c.Name()
	}
	store := availability.NewStore(t.TempDir(), names)
	reg := provider.NewRegistryFromClients(clients...)
	r := New(reg, store, nil, testRouterConfig())

	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		slept = append(slept, d)
		return nil
	}
	return r, store, &slept
}

func TestAsk_RetriesWithDoublingBackoff(t *testing.T) {
	client := &stubClient{name: "cohere", fn: func(call int) (string, error) {
		if call <= 3 {
			return "", provider.ErrRateLimited
		}
		return "recovered", nil
	}}
	r, _, slept := newTestRouter(t, client)

	text, err := r.Ask(context.Background(), "cohere", "q")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if text != "recovered" {
		t.Errorf("got %q", text)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("sleep[%d] = %s, want %s", i, (*slept)[i], d)
		}
	}
	if client.callCount() != 4 {
		t.Errorf("callCount = %d, want 4", client.callCount())
	}
}

func TestAsk_BackoffCapsAtMax(t *testing.T) {
	client := &stubClient{name: "cohere", fn: func(call int) (string, error) {
		if call <= 5 {
			return "", provider.ErrRateLimited
		}
		return "ok", nil
	}}
	r, _, slept := newTestRouter(t, client)

	if _, err := r.Ask(context.Background(), "cohere", "q"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second, 80 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	if (*slept)[4] != 80*time.Second {
		t.Errorf("backoff exceeded cap: %s", (*slept)[4])
	}
}

func TestAsk_FailsFastWhenUnavailable(t *testing.T) {
	client := &stubClient{name: "cohere", fn: answer("never")}
	r, store, _ := newTestRouter(t, client)

	if err := store.MarkUnavailable("cohere", availability.LimitHard); err != nil {
		t.Fatal(err)
	}
	_, err := r.Ask(context.Background(), "cohere", "q")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if client.callCount() != 0 {
		t.Error("client was called despite unavailability")
	}
}

func TestAsk_SentinelOnHardError(t *testing.T) {
	client := &stubClient{name: "cohere", fn: failWith(errors.New("connection refused"))}
	r, _, _ := newTestRouter(t, client)

	text, err := r.Ask(context.Background(), "cohere", "q")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Error during cohere completion: connection refused"
	if text != want {
		t.Errorf("sentinel = %q, want %q", text, want)
	}
}

func TestAsk_BackoffInterruptedByContext(t *testing.T) {
	client := &stubClient{name: "cohere", fn: failWith(provider.ErrRateLimited)}
	r, _, _ := newTestRouter(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Ask(ctx, "cohere", "q")
	if err == nil || !strings.Contains(err.Error(), "backoff interrupted") {
		t.Fatalf("expected interrupted backoff, got %v", err)
	}
}

func TestAnalyze_Success(t *testing.T) {
	client := &stubClient{name: "gemini", fn: answer("the capital is Oslo")}
	r, store, _ := newTestRouter(t, client)

	env := r.Analyze(context.Background(), "capital of Norway?", types.AnalyzeOptions{})
	if env.Result.Error != "" {
		t.Fatalf("unexpected error: %s", env.Result.Error)
	}
	if env.Result.Text != "the capital is Oslo" {
		t.Errorf("text = %q", env.Result.Text)
	}
	if env.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", env.Confidence)
	}
	if env.Details["provider"] != "gemini" {
		t.Errorf("provider detail = %q", env.Details["provider"])
	}
	if !types.ValidateShape(env) {
		t.Error("envelope shape invalid")
	}

	status, err := store.Status()
	if err != nil {
		t.Fatal(err)
	}
	if status["gemini"].Used != 1 {
		t.Errorf("usage = %d, want 1", status["gemini"].Used)
	}
}

func TestAnalyze_RateLimitMarksMinute(t *testing.T) {
	client := &stubClient{name: "gemini", fn: failWith(fmt.Errorf("status 429: %w", provider.ErrRateLimited))}
	r, store, _ := newTestRouter(t, client)

	env := r.Analyze(context.Background(), "q", types.AnalyzeOptions{})
	if env.Result.Error == "" {
		t.Fatal("expected error in envelope")
	}
	if !strings.Contains(env.Result.Text, "failed or is rate-limited") {
		t.Errorf("text = %q", env.Result.Text)
	}
	if env.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", env.Confidence)
	}
	if !types.ValidateShape(env) {
		t.Error("error envelope shape invalid")
	}

	status, err := store.Status()
	if err != nil {
		t.Fatal(err)
	}
	st := status["gemini"]
	if st.Available {
		t.Error("provider still available after rate limit")
	}
	if st.LimitType != availability.LimitMinute {
		t.Errorf("limit type = %s, want minute", st.LimitType)
	}
}

func TestAnalyze_HardErrorMarksHard(t *testing.T) {
	client := &stubClient{name: "openai", fn: failWith(errors.New("invalid API key"))}
	r, store, _ := newTestRouter(t, client)

	env := r.Analyze(context.Background(), "q", types.AnalyzeOptions{})
	if env.Result.Error == "" {
		t.Fatal("expected error in envelope")
	}

	status, err := store.Status()
	if err != nil {
		t.Fatal(err)
	}
	if status["openai"].LimitType != availability.LimitHard {
		t.Errorf("limit type = %s, want hard", status["openai"].LimitType)
	}
	// Hard limits need an explicit reset before the provider is retried.
	if ok, _ := store.IsAvailable("openai"); ok {
		t.Error("hard-limited provider reported available")
	}
}

func TestAnalyze_NoProviderAvailable(t *testing.T) {
	client := &stubClient{name: "cohere", fn: answer("never")}
	r, store, _ := newTestRouter(t, client)

	if err := store.MarkUnavailable("cohere", availability.LimitHard); err != nil {
		t.Fatal(err)
	}
	env := r.Analyze(context.Background(), "q", types.AnalyzeOptions{})
	if env.Result.Error != "Provider unavailable." {
		t.Errorf("error = %q", env.Result.Error)
	}
	if !types.ValidateShape(env) {
		t.Error("envelope shape invalid")
	}
	if client.callCount() != 0 {
		t.Error("client was called")
	}
}

func TestAnalyze_FallsBackInRegistryOrder(t *testing.T) {
	first := &stubClient{name: "cohere", fn: answer("first")}
	second := &stubClient{name: "gemini", fn: answer("second")}
	r, store, _ := newTestRouter(t, first, second)

	if err := store.MarkUnavailable("cohere", availability.LimitHard); err != nil {
		t.Fatal(err)
	}
	env := r.Analyze(context.Background(), "q", types.AnalyzeOptions{})
	if env.Details["provider"] != "gemini" {
		t.Errorf("picked %q, want gemini", env.Details["provider"])
	}
	if env.Result.Text != "second" {
		t.Errorf("text = %q", env.Result.Text)
	}
}

func TestAskEnsemble_MergesInRegistryOrder(t *testing.T) {
	// First provider answers slowest; the merge must still lead with it.
	a := &stubClient{name: "cohere", fn: answer("foo"), delay: 30 * time.Millisecond}
	b := &stubClient{name: "gemini", fn: failWith(errors.New("boom"))}
	c := &stubClient{name: "openai", fn: answer("baz")}
	r, _, _ := newTestRouter(t, a, b, c)

	merged := r.AskEnsemble(context.Background(), "q", types.AnalyzeOptions{})
	if merged.Text != "foo baz" {
		t.Errorf("merged text = %q, want %q", merged.Text, "foo baz")
	}
	if merged.Error != "" {
		t.Errorf("unexpected ensemble error: %s", merged.Error)
	}
	if len(merged.Providers) != 2 || merged.Providers[0] != "cohere" || merged.Providers[1] != "openai" {
		t.Errorf("providers = %v", merged.Providers)
	}
	if len(merged.Errors) != 1 || !strings.HasPrefix(merged.Errors[0], "gemini: ") {
		t.Errorf("errors = %v", merged.Errors)
	}
}

func TestAskEnsemble_AllFail(t *testing.T) {
	a := &stubClient{name: "cohere", fn: failWith(errors.New("down"))}
	b := &stubClient{name: "gemini", fn: failWith(errors.New("also down"))}
	r, _, _ := newTestRouter(t, a, b)

	merged := r.AskEnsemble(context.Background(), "q", types.AnalyzeOptions{})
	if merged.Text != "" {
		t.Errorf("text = %q, want empty", merged.Text)
	}
	if merged.Error == "" {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(merged.Error, "; ") {
		t.Errorf("errors not joined: %q", merged.Error)
	}
	if !strings.Contains(merged.Error, "cohere:") || !strings.Contains(merged.Error, "gemini:") {
		t.Errorf("error missing provider attribution: %q", merged.Error)
	}
}

func TestAskEnsemble_SkipsUnavailableProviders(t *testing.T) {
	a := &stubClient{name: "cohere", fn: answer("alpha")}
	b := &stubClient{name: "gemini", fn: answer("beta")}
	r, store, _ := newTestRouter(t, a, b)

	if err := store.MarkUnavailable("gemini", availability.LimitHard); err != nil {
		t.Fatal(err)
	}
	merged := r.AskEnsemble(context.Background(), "q", types.AnalyzeOptions{})
	if merged.Text != "alpha" {
		t.Errorf("text = %q", merged.Text)
	}
	if b.callCount() != 0 {
		t.Error("unavailable provider was called")
	}
}

func TestAskEnsemble_NoProvidersAvailable(t *testing.T) {
	a := &stubClient{name: "cohere", fn: answer("x")}
	r, store, _ := newTestRouter(t, a)

	if err := store.MarkUnavailable("cohere", availability.LimitHard); err != nil {
		t.Fatal(err)
	}
	merged := r.AskEnsemble(context.Background(), "q", types.AnalyzeOptions{})
	if merged.Error != "All providers failed." {
		t.Errorf("error = %q", merged.Error)
	}
}

func TestAskAny_FirstNonEmptyWins(t *testing.T) {
	a := &stubClient{name: "cohere", fn: failWith(errors.New("down"))}
	b := &stubClient{name: "gemini", fn: answer("from gemini")}
	r, _, _ := newTestRouter(t, a, b)

	if got := r.AskAny(context.Background(), "q"); got != "from gemini" {
		t.Errorf("AskAny = %q", got)
	}
}
