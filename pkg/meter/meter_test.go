package meter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tollgate-ai/tollgate/pkg/admission"
	"github.com/tollgate-ai/tollgate/pkg/ledger"
	"github.com/tollgate-ai/tollgate/pkg/limits"
	"github.com/tollgate-ai/tollgate/pkg/models"
)

func newTestMeter(t *testing.T) *Meter {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "meter.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestRecordThenDailyUsage(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	m.RecordUsage(ctx, "claude-3-haiku", 1000, 500, "op", "", "")
	m.RecordUsage(ctx, "claude-3-haiku", 2000, 1000, "op", "", "")

	u := m.DailyUsage(ctx, time.Time{})
	if u.TotalInputTokens != 3000 {
		t.Errorf("expected 3000 input tokens, got %d", u.TotalInputTokens)
	}
	if u.TotalOutputTokens != 1500 {
		t.Errorf("expected 1500 output tokens, got %d", u.TotalOutputTokens)
	}
	if u.RequestCount != 2 {
		t.Errorf("expected 2 requests, got %d", u.RequestCount)
	}
	if u.Operations["op"] != 2 {
		t.Errorf("expected operations[op]=2, got %v", u.Operations)
	}
}

func TestRecordComputesCostInternally(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	m.RecordUsage(ctx, "claude-3-5-sonnet", 1000, 500, "op", "u1", "t1")

	stats := m.CostStatistics(ctx)
	if len(stats.RecentUsage) != 1 {
		t.Fatalf("expected 1 record, got %d", len(stats.RecentUsage))
	}
	rec := stats.RecentUsage[0]
	if rec.EstimatedCost < 0.0104 || rec.EstimatedCost > 0.0106 {
		t.Errorf("expected cost near 0.0105, got %v", rec.EstimatedCost)
	}
	if rec.ID == "" {
		t.Error("expected generated record ID")
	}
	if rec.UserID != "u1" || rec.TicketID != "t1" {
		t.Errorf("correlation ids not preserved: %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
}

func TestFiftyFirstRequestBlocked(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		m.RecordUsage(ctx, "claude-3-haiku", 10, 5, "op", "", "")
	}

	d := m.ShouldBlockRequest(ctx, "claude-3-haiku", 100, 50, "op")
	if !d.Blocked {
		t.Fatal("expected 51st request to be blocked")
	}
	if d.Reason != admission.ReasonDailyRequests {
		t.Errorf("expected %q, got %q", admission.ReasonDailyRequests, d.Reason)
	}
}

func TestResetClearsUsage(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	m.RecordUsage(ctx, "claude-3-haiku", 1000, 500, "op", "", "")
	m.ResetUsage(ctx)

	u := m.DailyUsage(ctx, time.Time{})
	if u.RequestCount != 0 || u.TotalCost != 0 || u.TotalInputTokens != 0 {
		t.Errorf("expected all-zero usage after reset, got %+v", u)
	}
	if len(u.Operations) != 0 {
		t.Errorf("expected empty operations map after reset, got %v", u.Operations)
	}
}

func TestExportInclusiveDateRange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "meter.db")
	l, err := ledger.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	st, err := limits.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	m := New(l, st)
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	days := []time.Time{
		time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, ts := range days {
		err := l.Append(ctx, models.UsageRecord{
			ID: fmt.Sprintf("r%d", i), Timestamp: ts,
			ModelID: "claude-3-haiku", Operation: "op",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got := m.ExportUsage(ctx,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if len(got) != 3 {
		t.Fatalf("expected 3 records in January, got %d", len(got))
	}
	for _, r := range got {
		if r.Timestamp.Month() != time.January || r.Timestamp.Year() != 2024 {
			t.Errorf("record outside range exported: %s", r.Timestamp)
		}
	}

	all := m.ExportUsage(ctx, time.Time{}, time.Time{})
	if len(all) != len(days) {
		t.Errorf("expected %d records without bounds, got %d", len(days), len(all))
	}
}

func TestRecordUsageNeverFailsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := Open(filepath.Join(t.TempDir(), "meter.db"), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	// Close the stores out from under the meter to force persistence errors.
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.RecordUsage(ctx, "claude-3-haiku", 1000, 500, "op", "", "") // must not panic or error

	if !strings.Contains(buf.String(), "recovered record usage") {
		t.Errorf("expected recoverable error to be logged, got: %s", buf.String())
	}
}

func TestReadsDegradeToDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := Open(filepath.Join(t.TempDir(), "meter.db"), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	u := m.DailyUsage(ctx, time.Time{})
	if u.RequestCount != 0 {
		t.Errorf("expected empty usage from broken store, got %+v", u)
	}
	lim := m.CostLimits(ctx)
	if lim != models.DefaultCostLimits() {
		t.Errorf("expected default limits from broken store, got %+v", lim)
	}
	if m.ExportUsage(ctx, time.Time{}, time.Time{}) != nil {
		t.Error("expected nil export from broken store")
	}
	if !strings.Contains(buf.String(), "recovered") {
		t.Error("expected degraded reads to be logged")
	}
}

func TestEstimateAndAdmit(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	// 4000 characters estimate to 1000 input tokens; with 500 expected
	// output tokens the default 1000-token ceiling is exceeded.
	prompt := strings.Repeat("a", 4000)
	d := m.EstimateAndAdmit(ctx, "claude-3-haiku", prompt, 500, "op")
	if !d.Blocked || d.Reason != admission.ReasonMaxTokens {
		t.Errorf("expected token ceiling block, got blocked=%t reason=%q", d.Blocked, d.Reason)
	}

	d = m.EstimateAndAdmit(ctx, "claude-3-haiku", "short prompt", 100, "op")
	if d.Blocked {
		t.Errorf("expected allowed, got blocked: %s", d.Reason)
	}
}
