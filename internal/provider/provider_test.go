package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"argus/internal/config"
)

func TestCohereClient_Ask_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Expected test-key authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  the answer  "}`))
	}))
	defer server.Close()

	client := NewCohereClient(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})
	resp, err := client.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp != "the answer" {
		t.Errorf("Expected trimmed answer, got %q", resp)
	}
}

func TestCohereClient_Ask_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewCohereClient(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Ask(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestCohereClient_Ask_NoKey(t *testing.T) {
	client := NewCohereClient(config.ProviderConfig{})
	if _, err := client.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestHuggingFaceClient_Ask_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test/model" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"generated_text": "hf says hi"}]`))
	}))
	defer server.Close()

	client := NewHuggingFaceClient(config.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test/model",
	})
	resp, err := client.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp != "hf says hi" {
		t.Errorf("got %q", resp)
	}
}

func TestHuggingFaceClient_Ask_EmptyGeneration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewHuggingFaceClient(config.ProviderConfig{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected error for empty generations")
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("wrapped: %w", ErrRateLimited), true},
		{errors.New("API request failed with status 429: too many"), true},
		{errors.New("Rate Limit exceeded"), true},
		{errors.New("quota exhausted for project"), true},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Errorf("IsRateLimited(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	a := &fakeClient{name: "a"}
	b := &fakeClient{name: "b"}
	r := NewRegistryFromClients(a, b, &fakeClient{name: "a"})

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names() = %v", names)
	}
	if c, ok := r.Get("b"); !ok || c != b {
		t.Fatal("Get(b) failed")
	}
	if _, ok := r.Get("zzz"); ok {
		t.Fatal("Get(zzz) should miss")
	}
}

type fakeClient struct {
	name string
	resp string
	err  error
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Ask(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}
