package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hydrostat/internal/domain"
	"hydrostat/internal/storage"
)

// StatisticsStore is an in-memory implementation of storage.StatisticsSink
// and storage.StatisticsReader.
type StatisticsStore struct {
	mu        sync.RWMutex
	monthly   map[string]*domain.MonthlyStatistic // keyed by (scenario, entity, water_month)
	summaries map[string]*domain.PeriodSummary    // keyed by (scenario, entity)
}

// NewStatisticsStore creates a new in-memory statistics store.
func NewStatisticsStore() *StatisticsStore {
	return &StatisticsStore{
		monthly:   make(map[string]*domain.MonthlyStatistic),
		summaries: make(map[string]*domain.PeriodSummary),
	}
}

// Compile-time interface checks.
var (
	_ storage.StatisticsSink   = (*StatisticsStore)(nil)
	_ storage.StatisticsReader = (*StatisticsStore)(nil)
)

func monthlyKey(scenarioID, entityID string, waterMonth int) string {
	return fmt.Sprintf("%s|%s|%d", scenarioID, entityID, waterMonth)
}

func summaryKey(scenarioID, entityID string) string {
	return fmt.Sprintf("%s|%s", scenarioID, entityID)
}

// ReplaceScope deletes the scope and upserts the batch under one lock.
func (s *StatisticsStore) ReplaceScope(ctx context.Context, scope storage.Scope, batch storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := batch.Validate(scope); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, m := range s.monthly {
		if scope.Contains(m.ScenarioID, m.EntityKind) {
			delete(s.monthly, k)
		}
	}
	for k, p := range s.summaries {
		if scope.Contains(p.ScenarioID, p.EntityKind) {
			delete(s.summaries, k)
		}
	}

	for _, m := range batch.Monthly {
		mCopy := *m
		s.monthly[monthlyKey(m.ScenarioID, m.EntityID, m.WaterMonth)] = &mCopy
	}
	for _, p := range batch.Summaries {
		pCopy := *p
		s.summaries[summaryKey(p.ScenarioID, p.EntityID)] = &pCopy
	}

	return nil
}

// MonthlyByScope returns monthly rows ordered by (entity_id, water_month).
func (s *StatisticsStore) MonthlyByScope(_ context.Context, scope storage.Scope) ([]*domain.MonthlyStatistic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MonthlyStatistic
	for _, m := range s.monthly {
		if scope.Contains(m.ScenarioID, m.EntityKind) {
			mCopy := *m
			result = append(result, &mCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].WaterMonth < result[j].WaterMonth
	})

	return result, nil
}

// SummariesByScope returns summary rows ordered by entity_id.
func (s *StatisticsStore) SummariesByScope(_ context.Context, scope storage.Scope) ([]*domain.PeriodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PeriodSummary
	for _, p := range s.summaries {
		if scope.Contains(p.ScenarioID, p.EntityKind) {
			pCopy := *p
			result = append(result, &pCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID < result[j].EntityID
	})

	return result, nil
}
