package fillrun

import (
	"github.com/agentstation/fillmap/pkg/errors"
)

// Status is the lifecycle state of a fill run.
type Status string

// Run statuses in pipeline order.
const (
	StatusQueued          Status = "queued"
	StatusDetectingFields Status = "detecting_fields"
	StatusFieldsDetected  Status = "fields_detected"
	StatusMapping         Status = "mapping"
	StatusMapped          Status = "mapped"
	StatusAwaitingReview  Status = "awaiting_review"
	StatusFilling         Status = "filling"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// pipeline lists the forward path; each status may advance to the next one.
var pipeline = []Status{
	StatusQueued,
	StatusDetectingFields,
	StatusFieldsDetected,
	StatusMapping,
	StatusMapped,
	StatusAwaitingReview,
	StatusFilling,
	StatusCompleted,
}

// String returns the string representation of a Status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	for _, p := range pipeline {
		if p == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the pipeline is finished with the run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Editable reports whether mapping edits are accepted in this status.
// Edits while completed are accepted and force a reset to awaiting_review.
func (s Status) Editable() bool {
	return s == StatusAwaitingReview || s == StatusCompleted
}

// CanTransition reports whether the pipeline may move a run from s to to.
// The edit-triggered completed -> awaiting_review reset is not a pipeline
// transition; see Reset.
func (s Status) CanTransition(to Status) bool {
	if !to.Valid() || s.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	for i, p := range pipeline[:len(pipeline)-1] {
		if p == s {
			return pipeline[i+1] == to
		}
	}
	return false
}

// Transition validates and returns the next status.
func Transition(runID string, from, to Status) (Status, error) {
	if !to.Valid() {
		return from, errors.NewValidationError("status", to, "unknown status")
	}
	if !from.CanTransition(to) {
		return from, &errors.TransitionError{RunID: runID, From: from.String(), To: to.String()}
	}
	return to, nil
}

// Reset returns the status a run takes after a successful edit: completed
// runs fall back to awaiting_review, anything else is unchanged.
func Reset(from Status) (Status, bool) {
	if from == StatusCompleted {
		return StatusAwaitingReview, true
	}
	return from, false
}
