// Package errors provides custom error types for the fillmap system.
// These errors enable programmatic error checking across the reconciliation
// core, the grid projection, the overlay engine and the window sync protocol.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are the standard library helpers, re-exported so callers need
// only this package.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the fillmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTarget indicates a mutation aimed at a read-only (formula) cell
	ErrInvalidTarget = errors.New("invalid mapping target")

	// ErrUnknownField indicates a mapping referencing a field id the run does not have
	ErrUnknownField = errors.New("unknown field")

	// ErrDuplicateMapping flags more than one mapping for the same cell in loaded data.
	// It is a data-quality warning, never returned from a mutation.
	ErrDuplicateMapping = errors.New("duplicate mapping")

	// ErrStaleArtifact marks an artifact invalidated by a mapping change
	ErrStaleArtifact = errors.New("stale artifact")

	// ErrUnresolvedCitation indicates a citation token that could not be parsed or resolved
	ErrUnresolvedCitation = errors.New("unresolved citation")

	// ErrUndeliveredMessage indicates a cross-window message with no live recipient
	ErrUndeliveredMessage = errors.New("undelivered message")

	// ErrNotEditable indicates that the run's status does not accept edits
	ErrNotEditable = errors.New("run not editable")

	// ErrInvalidTransition indicates a status change the state machine forbids
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStale indicates a late response for a superseded range or page request
	ErrStale = errors.New("stale response")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// InvalidTargetError reports a mutation on a cell that may not carry a mapping.
type InvalidTargetError struct {
	Sheet   string
	Cell    string
	Formula string
}

// Error implements the error interface
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("cell %s!%s is a formula cell and cannot be mapped", e.Sheet, e.Cell)
}

// Is implements errors.Is support
func (e *InvalidTargetError) Is(target error) bool {
	return target == ErrInvalidTarget
}

// NewInvalidTargetError creates a new InvalidTargetError
func NewInvalidTargetError(sheet, cell, formula string) *InvalidTargetError {
	return &InvalidTargetError{Sheet: sheet, Cell: cell, Formula: formula}
}

// UnknownFieldError reports a field id missing from the run's detected fields.
type UnknownFieldError struct {
	FieldID string
	RunID   string
}

// Error implements the error interface
func (e *UnknownFieldError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("field %s does not exist in run %s", e.FieldID, e.RunID)
	}
	return fmt.Sprintf("field %s does not exist", e.FieldID)
}

// Is implements errors.Is support
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// NewUnknownFieldError creates a new UnknownFieldError
func NewUnknownFieldError(fieldID, runID string) *UnknownFieldError {
	return &UnknownFieldError{FieldID: fieldID, RunID: runID}
}

// DuplicateMappingError describes a cell targeted by more than one mapping.
type DuplicateMappingError struct {
	Sheet string
	Cell  string
	Count int
}

// Error implements the error interface
func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("cell %s!%s has %d mappings, using the first", e.Sheet, e.Cell, e.Count)
}

// Is implements errors.Is support
func (e *DuplicateMappingError) Is(target error) bool {
	return target == ErrDuplicateMapping
}

// CitationError describes a citation token that stays inert.
type CitationError struct {
	Token  string
	Reason string
}

// Error implements the error interface
func (e *CitationError) Error() string {
	return fmt.Sprintf("citation %q: %s", e.Token, e.Reason)
}

// Is implements errors.Is support
func (e *CitationError) Is(target error) bool {
	return target == ErrUnresolvedCitation
}

// NewCitationError creates a new CitationError
func NewCitationError(token, reason string) *CitationError {
	return &CitationError{Token: token, Reason: reason}
}

// TransitionError reports a status change rejected by the run state machine.
type TransitionError struct {
	RunID string
	From  string
	To    string
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("run %s cannot move from %s to %s", e.RunID, e.From, e.To)
}

// Is implements errors.Is support
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotEditableError reports an edit attempted while the run is in a locked status.
type NotEditableError struct {
	RunID  string
	Status string
}

// Error implements the error interface
func (e *NotEditableError) Error() string {
	return fmt.Sprintf("run %s does not accept edits while %s", e.RunID, e.Status)
}

// Is implements errors.Is support
func (e *NotEditableError) Is(target error) bool {
	return target == ErrNotEditable
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "a1", "citation", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "load", "save", "open", "delete"
	Resource  string // "run", "workbook", "store"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidTarget checks if an error rejected a formula-cell mutation
func IsInvalidTarget(err error) bool {
	return errors.Is(err, ErrInvalidTarget)
}

// IsUnknownField checks if an error references a missing field
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}

// IsNotEditable checks if an error was caused by the run status
func IsNotEditable(err error) bool {
	return errors.Is(err, ErrNotEditable)
}

// IsInvalidTransition checks if an error is a rejected status change
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsStale checks if an error marks a discarded late response
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
