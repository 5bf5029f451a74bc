// Package audit persists compliance verdicts as a queryable JSON-lines log.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/netaudit/pkg/compliance"
)

// Event is one persisted verdict
type Event struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	Timestamp time.Time           `json:"timestamp"`
	Device    string              `json:"device"`
	Category  compliance.Category `json:"category"`
	Subject   string              `json:"subject"`
	Outcome   compliance.Outcome  `json:"outcome"`
	Message   string              `json:"message"`
}

// Filter defines criteria for querying events. Zero fields match everything.
type Filter struct {
	Device      string
	Category    compliance.Category
	Outcome     compliance.Outcome
	RunID       string
	StartTime   time.Time
	EndTime     time.Time
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent records a verdict produced during run runID
func NewEvent(runID string, v compliance.Verdict) *Event {
	return &Event{
		ID:        uuid.NewString(),
		RunID:     runID,
		Timestamp: time.Now(),
		Device:    v.Device,
		Category:  v.Category,
		Subject:   v.Subject,
		Outcome:   v.Outcome,
		Message:   v.Message,
	}
}

// Verdict converts the event back to the verdict it records
func (e *Event) Verdict() compliance.Verdict {
	return compliance.Verdict{
		Device:   e.Device,
		Category: e.Category,
		Subject:  e.Subject,
		Outcome:  e.Outcome,
		Message:  e.Message,
	}
}

func (e *Event) matches(f Filter) bool {
	if f.Device != "" && e.Device != f.Device {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.FailureOnly && e.Outcome != compliance.OutcomeFail {
		return false
	}
	return true
}
