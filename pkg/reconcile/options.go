package reconcile

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/logging"
	"github.com/agentstation/fillmap/pkg/provenance"
)

// options configures a Reconciler.
type options struct {
	logger  *zerolog.Logger
	tracker provenance.Tracker
}

func defaultOptions() *options {
	return &options{
		logger:  logging.OrNop(nil),
		tracker: provenance.NewTracker(true),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options)

// WithLogger sets the logger used for warnings and mutation events.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(logger)
	}
}

// WithTracker replaces the provenance tracker.
func WithTracker(tracker provenance.Tracker) Option {
	return func(o *options) {
		if tracker != nil {
			o.tracker = tracker
		}
	}
}

// WithProvenance enables or disables provenance tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) {
		o.tracker = provenance.NewTracker(enabled)
	}
}

// mutation collects the optional parts of an add or edit.
type mutation struct {
	value      *string
	field      *string
	confidence *float64
	reasoning  *string
	label      *string
	citations  []fillrun.Citation
}

func newMutation(opts ...MutationOption) *mutation {
	m := &mutation{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *mutation) empty() bool {
	return m.value == nil && m.field == nil && m.confidence == nil &&
		m.reasoning == nil && m.label == nil && m.citations == nil
}

// validate rejects option values that may not be stored.
func (m *mutation) validate() error {
	if m.confidence != nil {
		c := *m.confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return errors.NewValidationError("confidence", c, "must be between 0 and 1")
		}
	}
	return nil
}

// MutationOption sets one part of a mapping mutation.
type MutationOption func(*mutation)

// WithValue sets the stored value.
func WithValue(value string) MutationOption {
	return func(m *mutation) {
		m.value = &value
	}
}

// WithField relinks the cell to a field. An empty id turns the cell into
// a manually filled one.
func WithField(fieldID string) MutationOption {
	return func(m *mutation) {
		m.field = &fieldID
	}
}

// WithConfidence sets the confidence recorded for the value and mapping.
func WithConfidence(confidence float64) MutationOption {
	return func(m *mutation) {
		m.confidence = &confidence
	}
}

// WithReasoning sets the mapping's free-text reasoning.
func WithReasoning(reasoning string) MutationOption {
	return func(m *mutation) {
		m.reasoning = &reasoning
	}
}

// WithLabel sets the mapping's display label.
func WithLabel(label string) MutationOption {
	return func(m *mutation) {
		m.label = &label
	}
}

// WithCitations sets the citations stored with the value.
func WithCitations(citations ...fillrun.Citation) MutationOption {
	return func(m *mutation) {
		m.citations = append([]fillrun.Citation{}, citations...)
	}
}
