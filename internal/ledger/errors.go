package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger family (spec section 7), wrapped with
// fmt.Errorf("...: %w", ...) at the call site so errors.Is/As work,
// matching the teacher's internal/validation idiom
// (ErrInvalidTransition, ErrNeedTasks, ...).
var (
	ErrDuplicateDecisionID = errors.New("ledger: duplicate decision id")
	ErrCanonicalOverride   = errors.New("ledger: cannot supersede a canonical decision without forceOverrideCanonical")
	ErrDecisionNotFound    = errors.New("ledger: decision not found")
	ErrInvalidSupersede    = errors.New("ledger: invalid supersede")
)

// ValidationError aggregates field-level validation failures from a
// rejected append (spec section 7: "LedgerValidation (list of field
// errors)").
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed: %v", e.Fields)
}
