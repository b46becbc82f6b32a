package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidOutcome is returned for outcome values outside the accepted set.
var ErrInvalidOutcome = errors.New("invalid outcome")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
