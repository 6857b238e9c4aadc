package domain

import "fmt"

// ValidationError reports a malformed query, option or filter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WithPrefix returns a copy whose field is qualified by prefix.
func (e *ValidationError) WithPrefix(prefix string) *ValidationError {
	return &ValidationError{Field: prefix + "." + e.Field, Reason: e.Reason}
}
