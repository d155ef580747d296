package session

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evanshlee/speaking-practice-aid/internal/metrics"
	"github.com/evanshlee/speaking-practice-aid/internal/pipeline"
)

func newTestStore(t *testing.T, config StoreConfig) *Store {
	t.Helper()

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := NewStore(config, m, logger)
	t.Cleanup(store.Stop)

	return store
}

func testResult(generatedAt time.Time) *pipeline.Result {
	return &pipeline.Result{
		Report:      "=== A) SUMMARY ===\n",
		GeneratedAt: generatedAt,
	}
}

func TestStoreAddAndGet(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 10, ReportTTL: time.Hour})

	stored := store.Add("practice.webm", testResult(time.Now()))

	if stored.ID == "" {
		t.Fatal("expected non-empty report ID")
	}
	if stored.Source != "practice.webm" {
		t.Errorf("expected source practice.webm, got %s", stored.Source)
	}

	got, exists := store.Get(stored.ID)
	if !exists {
		t.Fatal("stored report not found")
	}
	if got.Result.Report != stored.Result.Report {
		t.Error("retrieved report does not match stored report")
	}

	if _, exists := store.Get("missing"); exists {
		t.Error("expected miss for unknown ID")
	}
}

func TestStoreUniqueIDs(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 10, ReportTTL: time.Hour})

	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		stored := store.Add(fmt.Sprintf("take%d.webm", i), testResult(now))
		if seen[stored.ID] {
			t.Fatalf("duplicate report ID %s", stored.ID)
		}
		seen[stored.ID] = true
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 10, ReportTTL: time.Hour})

	base := time.Now()
	first := store.Add("a.webm", testResult(base.Add(-2*time.Minute)))
	second := store.Add("b.webm", testResult(base.Add(-1*time.Minute)))
	third := store.Add("c.webm", testResult(base))

	list := store.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(list))
	}
	if list[0].ID != third.ID || list[1].ID != second.ID || list[2].ID != first.ID {
		t.Errorf("unexpected order: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 2, ReportTTL: time.Hour})

	base := time.Now()
	oldest := store.Add("a.webm", testResult(base.Add(-2*time.Minute)))
	store.Add("b.webm", testResult(base.Add(-1*time.Minute)))
	store.Add("c.webm", testResult(base))

	if store.Count() != 2 {
		t.Fatalf("expected 2 reports after eviction, got %d", store.Count())
	}
	if _, exists := store.Get(oldest.ID); exists {
		t.Error("oldest report should have been evicted")
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 10, ReportTTL: time.Hour})

	stored := store.Add("a.webm", testResult(time.Now()))

	if !store.Remove(stored.ID) {
		t.Error("expected Remove to report success")
	}
	if store.Remove(stored.ID) {
		t.Error("expected Remove to report miss on second call")
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d reports", store.Count())
	}
}

func TestStoreExpiresOldReports(t *testing.T) {
	store := newTestStore(t, StoreConfig{
		MaxReports:      10,
		ReportTTL:       50 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	store.Add("a.webm", testResult(time.Now()))

	deadline := time.Now().Add(2 * time.Second)
	for store.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if store.Count() != 0 {
		t.Error("expected report to expire")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxReports: 100, ReportTTL: time.Hour})

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 25; i++ {
				stored := store.Add(fmt.Sprintf("g%d-%d.webm", g, i), testResult(time.Now()))
				store.Get(stored.ID)
				store.List()
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if store.Count() != 100 {
		t.Errorf("expected 100 reports, got %d", store.Count())
	}
}
