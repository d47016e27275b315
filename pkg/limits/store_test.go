package limits

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	s := newTestStore(t)

	lim, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if lim != models.DefaultCostLimits() {
		t.Errorf("expected defaults, got %+v", lim)
	}
	if lim.DailyLimitUSD != 5.0 || lim.MonthlyLimitUSD != 50.0 {
		t.Errorf("unexpected default spend ceilings: %+v", lim)
	}
	if lim.MaxTokensPerRequest != 1000 || lim.MaxRequestsPerDay != 50 || lim.MaxRequestsPerHour != 10 {
		t.Errorf("unexpected default rate ceilings: %+v", lim)
	}
	if !lim.IsFreeTierAccount {
		t.Error("expected free tier default")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := models.CostLimits{
		DailyLimitUSD:       12.5,
		MonthlyLimitUSD:     200,
		MaxTokensPerRequest: 8000,
		MaxRequestsPerDay:   500,
		MaxRequestsPerHour:  60,
		IsFreeTierAccount:   false,
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestSaveReplacesPriorValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := models.DefaultCostLimits()
	first.DailyLimitUSD = 1.0
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.DailyLimitUSD = 99.0
	second.IsFreeTierAccount = false
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Errorf("expected latest save to win, got %+v", got)
	}
}

func TestLoadSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	want := models.DefaultCostLimits()
	want.MaxRequestsPerHour = 25
	if err := s1.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	_ = s1.Close()

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("expected persisted limits after reopen, got %+v", got)
	}
}
