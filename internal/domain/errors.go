package domain

import "fmt"

// ConfigurationError means required backend credentials are missing.
// It is raised before any network call and never retried.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return "missing configuration: " + e.Missing
}

// TransportError wraps a network or timeout failure talking to the
// cloud backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError marks a malformed row. Row-scoped, never fatal.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// ReferentialError marks a dangling category reference found on the
// push path. The reference is repaired, not rejected.
type ReferentialError struct {
	ItemID     string
	CategoryID string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("item %s references unknown category %s", e.ItemID, e.CategoryID)
}

// ConcurrencyError means an operation for the same entity class is
// already in flight. The caller may retry later.
type ConcurrencyError struct {
	EntityClass EntityClass
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("sync for %s already in progress", e.EntityClass)
}
