// Package validate carries over the teacher's domain-validation idiom
// (sentinel errors wrapped in a ValidationError{Field,Value,Wrapped}) from
// engine/domain, repurposed from vehicle/query validation to validating
// discovery queries and pipeline source configuration.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for validation failures.
var (
	ErrQueryTooShort     = errors.New("query too short")
	ErrQueryInjection    = errors.New("query contains suspicious content")
	ErrMissingField      = errors.New("required field missing")
	ErrInvalidSourceKind = errors.New("unrecognized source kind")
	ErrInvalidTopK       = errors.New("top_k out of range")
)

// ValidationError wraps a sentinel with the field and value that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

const minQueryLength = 3

// injectionPatterns catch fragments that should never appear in a
// discovery query routed into a Cypher MERGE or a vector search filter.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|DETACH)\b.*\b(TABLE|NODE|RELATIONSHIP)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|MATCH)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),
}

// Query validates a discovery query string.
func Query(text string) error {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minQueryLength {
		return NewValidationError("query", trimmed, ErrQueryTooShort)
	}
	for _, pat := range injectionPatterns {
		if pat.MatchString(trimmed) {
			return NewValidationError("query", trimmed, ErrQueryInjection)
		}
	}
	return nil
}

// TopK validates the top_k parameter of a discovery request.
func TopK(topK int) error {
	if topK < 1 || topK > 100 {
		return NewValidationError("top_k", fmt.Sprintf("%d", topK), ErrInvalidTopK)
	}
	return nil
}

var validSourceKinds = map[string]bool{
	"memory":     true,
	"filesystem": true,
}

// SourceKind validates a pipeline SourceConfig.Kind value.
func SourceKind(kind string) error {
	if !validSourceKinds[kind] {
		return NewValidationError("kind", kind, ErrInvalidSourceKind)
	}
	return nil
}

// Required checks that value is non-empty, naming field in the error.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, value, ErrMissingField)
	}
	return nil
}
