package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/evanshlee/speaking-practice-aid/internal/metrics"
	"github.com/evanshlee/speaking-practice-aid/internal/pipeline"
)

const defaultCleanupInterval = 30 * time.Second

// StoredReport is one retained report run.
type StoredReport struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *pipeline.Result `json:"result"`
}

// StoreConfig contains report store configuration
type StoreConfig struct {
	MaxReports      int
	ReportTTL       time.Duration
	CleanupInterval time.Duration
}

// Store retains recent report runs in memory so practice sessions can be
// reviewed until they expire. The oldest report is evicted once the store
// is full; expired reports are swept by a background routine.
type Store struct {
	reports map[string]*StoredReport
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  StoreConfig

	nextID uint64

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewStore creates a report store and starts its cleanup routine.
func NewStore(config StoreConfig, m *metrics.Metrics, logger *slog.Logger) *Store {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaultCleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := &Store{
		reports: make(map[string]*StoredReport),
		logger:  logger,
		metrics: m,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		cleanup: make(chan struct{}),
	}

	go store.startCleanupRoutine()

	return store
}

// Add retains a completed report run and returns its stored form. When the
// store is at capacity the oldest report is evicted first.
func (s *Store) Add(source string, result *pipeline.Result) *StoredReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	report := &StoredReport{
		ID:        fmt.Sprintf("%s-%06d", result.GeneratedAt.Format("20060102"), s.nextID),
		Source:    source,
		CreatedAt: result.GeneratedAt,
		Result:    result,
	}

	for s.config.MaxReports > 0 && len(s.reports) >= s.config.MaxReports {
		s.evictOldestLocked()
	}

	s.reports[report.ID] = report
	s.metrics.SetStoredReports(len(s.reports))

	s.logger.Info("Report stored",
		slog.String("report_id", report.ID),
		slog.String("source", source),
		slog.Int("stored_reports", len(s.reports)),
	)

	return report
}

// Get retrieves a stored report by ID.
func (s *Store) Get(id string) (*StoredReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	return report, exists
}

// List returns all stored reports, newest first.
func (s *Store) List() []*StoredReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*StoredReport, 0, len(s.reports))
	for _, report := range s.reports {
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID > reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports
}

// Remove deletes a stored report by ID.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[id]; !exists {
		return false
	}

	delete(s.reports, id)
	s.metrics.SetStoredReports(len(s.reports))

	s.logger.Info("Report removed", slog.String("report_id", id))

	return true
}

// Count returns the number of stored reports.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Stop gracefully stops the store's cleanup routine.
func (s *Store) Stop() {
	s.cancel()
	<-s.cleanup

	s.logger.Info("Report store stopped", slog.Int("remaining_reports", s.Count()))
}

// evictOldestLocked removes the oldest report. Caller must hold the write
// lock.
func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time

	for id, report := range s.reports {
		if oldestID == "" || report.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = report.CreatedAt
		}
	}

	if oldestID == "" {
		return
	}

	delete(s.reports, oldestID)
	s.metrics.RecordReportEvicted()

	s.logger.Info("Evicted oldest report",
		slog.String("report_id", oldestID),
		slog.Time("created_at", oldestAt),
	)
}

// startCleanupRoutine runs in a separate goroutine to expire old reports
func (s *Store) startCleanupRoutine() {
	defer close(s.cleanup)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	s.logger.Info("Report cleanup routine started",
		slog.Duration("ttl", s.config.ReportTTL),
		slog.Duration("check_interval", s.config.CleanupInterval),
	)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Report cleanup routine stopping")
			return

		case <-ticker.C:
			s.cleanupExpiredReports()
		}
	}
}

// cleanupExpiredReports removes reports older than the configured TTL
func (s *Store) cleanupExpiredReports() {
	if s.config.ReportTTL <= 0 {
		return
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]string, 0)
	for id, report := range s.reports {
		if now.Sub(report.CreatedAt) > s.config.ReportTTL {
			expired = append(expired, id)
		}
	}

	if len(expired) == 0 {
		return
	}

	for _, id := range expired {
		delete(s.reports, id)
		s.metrics.RecordReportEvicted()
	}
	s.metrics.SetStoredReports(len(s.reports))

	s.logger.Info("Cleaned up expired reports",
		slog.Int("expired_count", len(expired)),
		slog.Int("stored_reports", len(s.reports)),
	)
}
