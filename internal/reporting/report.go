package reporting

import (
	"time"

	"hydrostat/internal/domain"
	"hydrostat/internal/verification"
)

// Report represents the output of one scenario scope.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	ScenarioID  string
	Kind        domain.EntityKind // empty = all kinds
	RunID       string            // empty for reports read back from storage
	DryRun      bool
	Digest      string

	// Outcomes are empty for reports read back from storage.
	Outcomes []domain.EntityOutcome

	// Rows sorted by entity id (and water month)
	Monthly   []*domain.MonthlyStatistic
	Summaries []*domain.PeriodSummary

	// Verification is set when a dry run was compared with a reference.
	Verification *verification.Report
}

// Counts returns the number of outcomes per status.
func (r *Report) Counts() (succeeded, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case domain.EntityStatusSucceeded:
			succeeded++
		case domain.EntityStatusSkippedUnavailable:
			skipped++
		case domain.EntityStatusFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// statusOf returns the outcome status of an entity, or "stored" when the
// report has no outcomes.
func (r *Report) statusOf(entityID string) string {
	for _, o := range r.Outcomes {
		if o.EntityID == entityID {
			return string(o.Status)
		}
	}
	return "stored"
}
