package domain

// RunRequest is the invocation contract of a statistics run.
type RunRequest struct {
	ScenarioID string
	Kind       EntityKind // empty = all kinds
	DryRun     bool       // compute and return records without writing
}

// EntityStatus is the per-entity outcome of a run.
type EntityStatus string

const (
	EntityStatusSucceeded          EntityStatus = "succeeded"
	EntityStatusSkippedUnavailable EntityStatus = "skipped_unavailable"
	EntityStatusFailed             EntityStatus = "failed"
)

// EntityOutcome records what happened to one entity in a run.
type EntityOutcome struct {
	EntityID string
	Kind     EntityKind
	Status   EntityStatus
	Reason   string // empty on success
	Variable string // offending variable for data contract violations
}
