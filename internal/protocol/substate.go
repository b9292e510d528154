package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubstateKind tags which of the three substate shapes a Substate carries.
type SubstateKind string

const (
	SubstateActive   SubstateKind = "Active"
	SubstateBlocking SubstateKind = "Blocking"
	SubstateFailed   SubstateKind = "Failed"
)

func (k SubstateKind) IsValid() bool {
	switch k {
	case SubstateActive, SubstateBlocking, SubstateFailed:
		return true
	default:
		return false
	}
}

// Substate is a tagged variant over Active, Blocking, and Failed. Only the
// fields relevant to Kind are meaningful; constructors below are the only
// supported way to build one so a caller can never populate an inconsistent
// mix of fields.
type Substate struct {
	Kind SubstateKind

	// Active
	Task      string
	Operation string

	// Blocking
	Query     string
	BlockedAt time.Time
	Options   []string
	TimeoutMs *int64

	// Failed
	Error       string
	FailedAt    time.Time
	Recoverable bool
	Code        string
	Context     map[string]any
}

// NewActive constructs an Active substate. task and operation are both
// optional progress annotations and may be empty.
func NewActive(task, operation string) Substate {
	return Substate{Kind: SubstateActive, Task: task, Operation: operation}
}

// NewBlocking constructs a Blocking substate awaiting an external answer.
func NewBlocking(query string, options []string, timeoutMs *int64, blockedAt time.Time) Substate {
	return Substate{
		Kind:      SubstateBlocking,
		Query:     query,
		Options:   options,
		TimeoutMs: timeoutMs,
		BlockedAt: blockedAt,
	}
}

// NewFailed constructs a Failed substate, terminal for the tick loop
// regardless of phase.
func NewFailed(errMsg string, failedAt time.Time, recoverable bool, code string, ctx map[string]any) Substate {
	return Substate{
		Kind:        SubstateFailed,
		Error:       errMsg,
		FailedAt:    failedAt,
		Recoverable: recoverable,
		Code:        code,
		Context:     ctx,
	}
}

// IsActive reports whether the substate is Active.
func (s Substate) IsActive() bool { return s.Kind == SubstateActive }

// IsBlocking reports whether the substate is Blocking.
func (s Substate) IsBlocking() bool { return s.Kind == SubstateBlocking }

// IsFailed reports whether the substate is Failed.
func (s Substate) IsFailed() bool { return s.Kind == SubstateFailed }

// substateWire is the JSON shape for a Substate: a "kind" discriminator plus
// only the fields relevant to that kind, matching spec section 4.D verbatim.
type substateWire struct {
	Kind SubstateKind `json:"kind"`

	Task      string `json:"task,omitempty"`
	Operation string `json:"operation,omitempty"`

	Query     string     `json:"query,omitempty"`
	BlockedAt *time.Time `json:"blockedAt,omitempty"`
	Options   []string   `json:"options,omitempty"`
	TimeoutMs *int64     `json:"timeoutMs,omitempty"`

	Error       string         `json:"error,omitempty"`
	FailedAt    *time.Time     `json:"failedAt,omitempty"`
	Recoverable *bool          `json:"recoverable,omitempty"`
	Code        string         `json:"code,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// MarshalJSON emits only the fields relevant to the substate's kind.
func (s Substate) MarshalJSON() ([]byte, error) {
	w := substateWire{Kind: s.Kind}
	switch s.Kind {
	case SubstateActive:
		w.Task = s.Task
		w.Operation = s.Operation
	case SubstateBlocking:
		w.Query = s.Query
		blockedAt := s.BlockedAt
		w.BlockedAt = &blockedAt
		w.Options = s.Options
		w.TimeoutMs = s.TimeoutMs
	case SubstateFailed:
		w.Error = s.Error
		failedAt := s.FailedAt
		w.FailedAt = &failedAt
		recoverable := s.Recoverable
		w.Recoverable = &recoverable
		w.Code = s.Code
		w.Context = s.Context
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a kind-tagged substate object, validating that the
// fields required for its kind are present (per spec section 4.D).
func (s *Substate) UnmarshalJSON(data []byte) error {
	var w substateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Kind.IsValid() {
		return fmt.Errorf("protocol: invalid substate kind %q", w.Kind)
	}

	out := Substate{Kind: w.Kind}
	switch w.Kind {
	case SubstateActive:
		out.Task = w.Task
		out.Operation = w.Operation
	case SubstateBlocking:
		if w.Query == "" || w.BlockedAt == nil {
			return fmt.Errorf("protocol: Blocking substate requires query and blockedAt")
		}
		out.Query = w.Query
		out.BlockedAt = *w.BlockedAt
		out.Options = w.Options
		out.TimeoutMs = w.TimeoutMs
	case SubstateFailed:
		if w.Error == "" || w.FailedAt == nil || w.Recoverable == nil {
			return fmt.Errorf("protocol: Failed substate requires error, failedAt and recoverable")
		}
		out.Error = w.Error
		out.FailedAt = *w.FailedAt
		out.Recoverable = *w.Recoverable
		out.Code = w.Code
		out.Context = w.Context
	}
	*s = out
	return nil
}
