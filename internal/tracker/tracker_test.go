package tracker

import (
	"testing"
	"time"

	"argus/internal/types"
)

func TestNilTracker_IsNoOp(t *testing.T) {
	var tr *Tracker
	tr.LogConversation("s", "u", "q", "q", "r", "cohere", "v1", nil)
	tr.LogProviderDecision("s", "q", []string{"osint"}, nil, "osint", "success")
	tr.LogAnalytics("report_generated", 1)
	if tr.AnalyticsCount("report_generated") != 0 {
		t.Fatal("nil tracker should report zero")
	}
}

func TestLogConversation_Persists(t *testing.T) {
	tr, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	tr.LogConversation("sess-1", "user-1", "who is x", "who is x", "a report", "orchestrator", "v1",
		map[string]string{"task_type": "general"})
	tr.LogConversation("sess-1", "user-1", "who is y", "who is y", "a report", "orchestrator", "v1", nil)

	if got := tr.ConversationCount(); got != 2 {
		t.Fatalf("conversations=%d, want 2", got)
	}
}

func TestLogAnalytics_Accumulates(t *testing.T) {
	tr, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	tr.LogAnalytics("orchestration_complete", 1)
	tr.LogAnalytics("orchestration_complete", 1)
	tr.LogAnalytics("report_generated", 3)

	if got := tr.AnalyticsCount("orchestration_complete"); got != 2 {
		t.Fatalf("orchestration_complete=%d, want 2", got)
	}
	if got := tr.AnalyticsCount("report_generated"); got != 3 {
		t.Fatalf("report_generated=%d, want 3", got)
	}
}

func TestLogProviderDecision_Persists(t *testing.T) {
	tr, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	outcomes := []types.ModuleOutcome{
		{Module: "OSINT", Status: "success", Latency: 120 * time.Millisecond},
		{Module: "Verify", Status: "error", Error: "timeout", Latency: 5 * time.Second},
	}
	tr.LogProviderDecision("sess-1", "john@example.com", []string{"OSINT", "Verify"}, outcomes, "OSINT", "success")

	var count int
	if err := tr.db.QueryRow(`SELECT COUNT(*) FROM provider_decisions`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("decisions=%d, want 1", count)
	}
}
