package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the addressed article, user or key does not exist or is not visible.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule would be violated.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAggregationFailed matches every AggregationError via errors.Is.
	ErrAggregationFailed = errors.New("aggregation failed")
)

// ValidationError rejects caller input before any mutation happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AggregationError wraps a storage failure met while computing statistics.
type AggregationError struct {
	Op  string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

func (e *AggregationError) Is(target error) bool { return target == ErrAggregationFailed }

func aggregationFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AggregationError{Op: op, Err: err}
}
