package errors

import (
	"fmt"
	"time"

	"github.com/quailbyte/ruledup/internal/types"
)

// Error types for the rule duplicate detection system
type ErrorType string

const (
	// Detection errors
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeDetection  ErrorType = "detection"

	// Rule document errors
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeNotFound ErrorType = "not_found"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// ExtractionError represents a feature-extraction failure for a single
// candidate. Extraction errors are recoverable by default: the matcher
// logs them, skips the candidate, and continues the batch.
type ExtractionError struct {
	Type        ErrorType
	Strategy    types.StrategyName
	RuleID      string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewExtractionError creates a new extraction error with context
func NewExtractionError(strategy types.StrategyName, op string, err error) *ExtractionError {
	return &ExtractionError{
		Type:        ErrorTypeExtraction,
		Strategy:    strategy,
		Operation:   op,
		Underlying:  err,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
}

// WithRule adds the offending rule's ID to the error
func (e *ExtractionError) WithRule(ruleID string) *ExtractionError {
	e.RuleID = ruleID
	return e
}

// WithRecoverable overrides the recoverable flag
func (e *ExtractionError) WithRecoverable(recoverable bool) *ExtractionError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("%s %s failed for rule %s: %v", e.Strategy, e.Operation, e.RuleID, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Strategy, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ExtractionError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the batch can continue past this error
func (e *ExtractionError) IsRecoverable() bool {
	return e.Recoverable
}

// DetectionError represents a pipeline failure inside the waterfall. The
// detector converts these into a degraded low-confidence result so the
// public entry point stays total.
type DetectionError struct {
	Type       ErrorType
	RuleID     string
	Stage      string
	Underlying error
	Timestamp  time.Time
}

// NewDetectionError creates a new detection error
func NewDetectionError(stage, ruleID string, err error) *DetectionError {
	return &DetectionError{
		Type:       ErrorTypeDetection,
		RuleID:     ruleID,
		Stage:      stage,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection stage %s failed for rule %s: %v", e.Stage, e.RuleID, e.Underlying)
}

// Unwrap returns the underlying error
func (e *DetectionError) Unwrap() error {
	return e.Underlying
}

// ParseError represents a rule-document parsing error
type ParseError struct {
	Type       ErrorType
	Path       string
	Line       int
	Field      string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path string, line int, field string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		Path:       path,
		Line:       line,
		Field:      field,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error at %s:%d (field %s): %v", e.Path, e.Line, e.Field, e.Underlying)
	}
	return fmt.Sprintf("parse error at %s:%d: %v", e.Path, e.Line, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors collected during a batch
// operation, typically a pool scan where individual documents fail.
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// HasErrors reports whether any error was collected
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}
