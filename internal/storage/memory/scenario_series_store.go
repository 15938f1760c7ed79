package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
)

// ScenarioSeriesStore is an in-memory implementation of storage.ScenarioSeriesStore.
type ScenarioSeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScenarioSeries
}

// NewScenarioSeriesStore creates a new in-memory scenario series store.
func NewScenarioSeriesStore() *ScenarioSeriesStore {
	return &ScenarioSeriesStore{
		data: make(map[string]*domain.ScenarioSeries),
	}
}

// Compile-time interface check.
var _ storage.ScenarioSeriesStore = (*ScenarioSeriesStore)(nil)

// ReplaceScenario stores a deep copy of series.
func (s *ScenarioSeriesStore) ReplaceScenario(_ context.Context, series *domain.ScenarioSeries) error {
	if series == nil || series.ScenarioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[series.ScenarioID] = copySeries(series)
	return nil
}

// LoadScenario returns a deep copy of the stored series. Returns ErrNotFound if absent.
func (s *ScenarioSeriesStore) LoadScenario(_ context.Context, scenarioID string) (*domain.ScenarioSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[scenarioID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySeries(series), nil
}

// ListScenarios returns stored scenario ids in ascending order.
func (s *ScenarioSeriesStore) ListScenarios(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copySeries(src *domain.ScenarioSeries) *domain.ScenarioSeries {
	dates := make([]time.Time, len(src.Dates))
	copy(dates, src.Dates)

	dst := domain.NewScenarioSeries(src.ScenarioID, dates)
	for name, values := range src.Values {
		v := make([]float64, len(values))
		copy(v, values)
		dst.Values[name] = v
		dst.Units[name] = src.Units[name]
	}
	return dst
}
