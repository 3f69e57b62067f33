// Package tracker records conversations, provider decisions, and
// analytics counters in a local SQLite database. Every sink is
// fire-and-forget: failures are logged and swallowed, never propagated,
// so a broken analytics store can never take down an analysis run.
package tracker

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"argus/internal/logging"
	"argus/internal/types"

	_ "modernc.org/sqlite"
)

// Tracker owns the SQLite handle. A nil *Tracker is a valid no-op sink,
// which keeps call sites unconditional.
type Tracker struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_query TEXT NOT NULL,
	processed_query TEXT NOT NULL,
	response TEXT NOT NULL,
	provider TEXT NOT NULL,
	provider_version TEXT NOT NULL,
	context TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS provider_decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	query TEXT NOT NULL,
	providers_tried TEXT NOT NULL,
	outcomes TEXT NOT NULL,
	final_provider TEXT NOT NULL,
	final_result TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analytics (
	event TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
`

// Open creates (or opens) .argus/tracker.db under the workspace.
func Open(workspace string) (*Tracker, error) {
	dir := filepath.Join(workspace, ".argus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "tracker.db"))
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tracker schema: %w", err)
	}
	return &Tracker{db: db}, nil
}

// Close releases the database handle.
func (t *Tracker) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

// LogConversation records one query/response exchange.
func (t *Tracker) LogConversation(sessionID, userID, userQuery, processedQuery, response, provider, providerVersion string, context map[string]string) {
	if t == nil || t.db == nil {
		return
	}
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		ctxJSON = []byte("{}")
	}
	_, err = t.db.Exec(
		`INSERT INTO conversations (session_id, user_id, user_query, processed_query, response, provider, provider_version, context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, userID, userQuery, processedQuery, response, provider, providerVersion, string(ctxJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryTracker).Error("log conversation: %v", err)
	}
}

// LogProviderDecision records which modules/providers were tried for a
// query and how each fared.
func (t *Tracker) LogProviderDecision(sessionID, query string, tried []string, outcomes []types.ModuleOutcome, finalProvider, finalResult string) {
	if t == nil || t.db == nil {
		return
	}
	triedJSON, err := json.Marshal(tried)
	if err != nil {
		triedJSON = []byte("[]")
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		outcomesJSON = []byte("[]")
	}
	_, err = t.db.Exec(
		`INSERT INTO provider_decisions (session_id, query, providers_tried, outcomes, final_provider, final_result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, query, string(triedJSON), string(outcomesJSON), finalProvider, finalResult, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryTracker).Error("log provider decision: %v", err)
	}
}

// LogAnalytics bumps a named event counter.
func (t *Tracker) LogAnalytics(event string, count int) {
	if t == nil || t.db == nil {
		return
	}
	_, err := t.db.Exec(
		`INSERT INTO analytics (event, count, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(event) DO UPDATE SET count = count + excluded.count, updated_at = excluded.updated_at`,
		event, count, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryTracker).Error("log analytics: %v", err)
	}
}

// AnalyticsCount returns the current counter for an event. Used by the
// CLI status view and tests; returns 0 on any failure.
func (t *Tracker) AnalyticsCount(event string) int {
	if t == nil || t.db == nil {
		return 0
	}
	var count int
	if err := t.db.QueryRow(`SELECT count FROM analytics WHERE event = ?`, event).Scan(&count); err != nil {
		return 0
	}
	return count
}

// ConversationCount returns the number of recorded conversations.
func (t *Tracker) ConversationCount() int {
	if t == nil || t.db == nil {
		return 0
	}
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		return 0
	}
	return count
}
