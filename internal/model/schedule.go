package model

import "time"

// ScheduleState is the persisted last-run record for one user's polling
// schedule. One instance per user, updated on every tick, never shared.
type ScheduleState struct {
	UserID       string    `json:"user_id"`
	LastRunAt    time.Time `json:"last_run_at"`
	ScannedCount int       `json:"scanned_count"`
	SentCount    int       `json:"sent_count"`
	QueuedCount  int       `json:"queued_count"`
	SkippedCount int       `json:"skipped_count"`
	ErrorCount   int       `json:"error_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Tally folds one pipeline result into the run counters.
func (s *ScheduleState) Tally(result *ProcessResult) {
	switch result.Action {
	case ResultSent:
		s.SentCount++
	case ResultReview:
		s.QueuedCount++
	case ResultSkipped:
		s.SkippedCount++
	default:
		s.ErrorCount++
	}
}

// ResultCount is the total number of messages the last run processed.
func (s *ScheduleState) ResultCount() int {
	return s.SentCount + s.QueuedCount + s.SkippedCount + s.ErrorCount
}
