// Package availability persists per-provider rate-limit state across
// process restarts. The store is a single JSON document keyed by provider
// name, read-modify-written wholesale on every access under one mutex so
// concurrent ensemble calls cannot lose updates.
package availability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"argus/internal/logging"
)

// LimitType classifies why a provider was marked unavailable.
type LimitType string

const (
	// LimitMinute - transient per-minute rate limit, auto-recovers after 60s
	LimitMinute LimitType = "minute"
	// LimitDaily - daily quota exhausted, auto-recovers after 24h
	LimitDaily LimitType = "daily"
	// LimitHard - non-transient failure, requires explicit reset
	LimitHard LimitType = "hard"
)

// window returns the auto-recovery window for the limit type, or zero
// for limits that never recover on their own.
func (lt LimitType) window() time.Duration {
	switch lt {
	case LimitMinute:
		return time.Minute
	case LimitDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ProviderState is the persisted record for one provider.
type ProviderState struct {
	Available bool       `json:"available"`
	LastLimit *time.Time `json:"last_limit"`
	LimitType LimitType  `json:"limit_type,omitempty"`
	Used      int        `json:"used"`
}

// Store manages the availability document. File I/O errors propagate to
// callers: an unreadable store means systemic misconfiguration, and
// callers must treat the provider as unavailable.
type Store struct {
	mu        sync.Mutex
	path      string
	providers []string // registry order, also seeds the initial document

	now func() time.Time // injectable clock for tests
}

// NewStore creates a store backed by .argus/ai_availability.json under
// the given workspace.
func NewStore(workspace string, providers []string) *Store {
	return &Store{
		path:      filepath.Join(workspace, ".argus", "ai_availability.json"),
		providers: providers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// load reads the document, initializing it on first use. Caller holds mu.
func (s *Store) load() (map[string]*ProviderState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		doc := s.freshDocument()
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read availability store: %w", err)
	}
	doc := make(map[string]*ProviderState)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse availability store: %w", err)
	}
	// Providers added to the registry after the file was written start available.
	for _, p := range s.providers {
		if _, ok := doc[p]; !ok {
			doc[p] = &ProviderState{Available: true}
		}
	}
	return doc, nil
}

// save writes the whole document back. Caller holds mu.
func (s *Store) save(doc map[string]*ProviderState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode availability store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write availability store: %w", err)
	}
	return nil
}

func (s *Store) freshDocument() map[string]*ProviderState {
	doc := make(map[string]*ProviderState, len(s.providers))
	for _, p := range s.providers {
		doc[p] = &ProviderState{Available: true}
	}
	return doc
}

// IsAvailable reports whether the provider may be called. When an
// unavailable provider's limit window has elapsed (minute > 60s,
// daily > 24h) the state transitions back to available in the same
// read-modify-write, so two racing callers cannot observe a half-reset.
// Hard limits never auto-recover.
func (s *Store) IsAvailable(provider string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	st, ok := doc[provider]
	if !ok {
		return false, fmt.Errorf("unknown provider %q", provider)
	}
	if st.Available {
		return true, nil
	}
	if st.LastLimit == nil {
		return false, nil
	}
	window := st.LimitType.window()
	if window == 0 {
		return false, nil
	}
	if s.now().Sub(*st.LastLimit) > window {
		st.Available = true
		st.LastLimit = nil
		st.LimitType = ""
		if err := s.save(doc); err != nil {
			return false, err
		}
		logging.Get(logging.CategoryAvailability).Info("provider %s auto-recovered after %s limit", provider, window)
		return true, nil
	}
	return false, nil
}

// MarkUnavailable records a limit hit with the current timestamp.
func (s *Store) MarkUnavailable(provider string, limitType LimitType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	st, ok := doc[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	now := s.now()
	st.Available = false
	st.LastLimit = &now
	st.LimitType = limitType
	logging.Get(logging.CategoryAvailability).Warn("provider %s marked unavailable (%s)", provider, limitType)
	return s.save(doc)
}

// MarkAvailable clears any recorded limit for the provider.
func (s *Store) MarkAvailable(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	st, ok := doc[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	st.Available = true
	st.LastLimit = nil
	st.LimitType = ""
	return s.save(doc)
}

// RecordUsage increments the provider's usage counter.
func (s *Store) RecordUsage(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	st, ok := doc[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	st.Used++
	return s.save(doc)
}

// Reset restores one provider to a clean available state, clearing its
// usage counter. This is the only way out of a hard limit.
func (s *Store) Reset(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[provider]; !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	doc[provider] = &ProviderState{Available: true}
	logging.Get(logging.CategoryAvailability).Info("provider %s reset", provider)
	return s.save(doc)
}

// ResetAll restores every registered provider to a clean state.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(s.freshDocument())
}

// Status returns a copy of every provider's persisted state.
func (s *Store) Status() (map[string]ProviderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProviderState, len(doc))
	for name, st := range doc {
		out[name] = *st
	}
	return out, nil
}

// AvailableProviders returns the currently-available providers in
// registry order, applying auto-recovery transitions as it goes.
func (s *Store) AvailableProviders() ([]string, error) {
	var available []string
	for _, p := range s.providers {
		ok, err := s.IsAvailable(p)
		if err != nil {
			return nil, err
		}
		if ok {
			available = append(available, p)
		}
	}
	return available, nil
}

// Providers returns the registry order the store was built with.
func (s *Store) Providers() []string {
	return s.providers
}

// SetClock replaces the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}
