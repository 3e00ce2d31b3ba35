package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks a lead record that violates its invariants.
var ErrValidation = errors.New("validation failed")

// FieldError describes one violated constraint.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError carries every violated constraint of a lead record.
type ValidationError struct {
	LeadID string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return fmt.Sprintf("lead %q: %s: %s", e.LeadID, ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
