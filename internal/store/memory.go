package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/epd-weather/internal/cycle"
)

var (
	// ErrNotFound is returned when no report matches.
	ErrNotFound = errors.New("no report found")
)

// MemoryStore is a concurrency-safe in-memory history of wake cycle reports.
// It is also a cycle.Renderer so the status API sees what the display shows.
type MemoryStore struct {
	mu sync.RWMutex

	reports []cycle.Report
	byID    map[string]int

	// retention configuration
	maxHistory int           // max number of reports kept
	maxAge     time.Duration // optional max age for reports
	now        func() time.Time
}

var _ cycle.Renderer = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]int),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Render stores r.
func (s *MemoryStore) Render(ctx context.Context, r cycle.Report) error {
	s.Save(r)
	return nil
}

// Save appends a report and enforces retention.
func (s *MemoryStore) Save(r cycle.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, r)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.reports) > s.maxHistory {
		over := len(s.reports) - s.maxHistory
		s.reports = append([]cycle.Report(nil), s.reports[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.reports); i++ {
			if !s.reports[i].FinishedAt.Before(cutoff) {
				break
			}
		}
		// The newest report is always kept.
		if i > 0 && i < len(s.reports) {
			s.reports = append([]cycle.Report(nil), s.reports[i:]...)
		} else if i == len(s.reports) && i > 1 {
			s.reports = append([]cycle.Report(nil), s.reports[i-1:]...)
		}
	}

	s.reindex()
}

func (s *MemoryStore) reindex() {
	clear(s.byID)
	for i, r := range s.reports {
		s.byID[r.ID] = i
	}
}

// GetLatest returns the most recent report.
func (s *MemoryStore) GetLatest() (cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.reports) == 0 {
		return cycle.Report{}, ErrNotFound
	}
	return s.reports[len(s.reports)-1], nil
}

// GetLatestWeather returns the most recent report that carries weather data.
func (s *MemoryStore) GetLatestWeather() (cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].Screen == cycle.ScreenWeather {
			return s.reports[i], nil
		}
	}
	return cycle.Report{}, ErrNotFound
}

// Get returns the report with the given id.
func (s *MemoryStore) Get(id string) (cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return cycle.Report{}, ErrNotFound
	}
	return s.reports[i], nil
}

// GetRange returns all reports started between from and to (inclusive),
// oldest first.
func (s *MemoryStore) GetRange(from, to time.Time) ([]cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []cycle.Report
	for _, r := range s.reports {
		if !r.StartedAt.Before(from) && !r.StartedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
