package ledger

import (
	"fmt"
	"regexp"
	"time"
)

var idRegexp = regexp.MustCompile(idPattern)

// Meta is the ledger file's envelope metadata (spec section 6).
type Meta struct {
	Version      string
	Created      string
	Project      string
	LastModified string
}

// Ledger is the append-only decision store: category-scoped monotonic ids,
// a status lifecycle, and the one lawful mutation (Supersede) that flips
// status/SupersededBy on an existing entry.
type Ledger struct {
	Meta      Meta
	decisions []Decision
	byID      map[string]int // id -> index into decisions
	counters  map[Category]int
}

// New creates an empty ledger for project, stamped with now.
func New(project string, now time.Time) *Ledger {
	return &Ledger{
		Meta: Meta{
			Version: "1.0.0",
			Created: now.UTC().Format(time.RFC3339Nano),
			Project: project,
		},
		byID:     make(map[string]int),
		counters: make(map[Category]int),
	}
}

// Decisions returns a copy of the ledger's decisions in append order.
func (l *Ledger) Decisions() []Decision {
	out := make([]Decision, len(l.decisions))
	copy(out, l.decisions)
	return out
}

// Len returns the number of decisions in the ledger.
func (l *Ledger) Len() int { return len(l.decisions) }

// Get returns the decision with the given id, if present.
func (l *Ledger) Get(id string) (Decision, bool) {
	idx, ok := l.byID[id]
	if !ok {
		return Decision{}, false
	}
	return l.decisions[idx], true
}

// AppendInput is the caller-supplied content for a new decision; id,
// timestamp, and status are assigned by Append.
type AppendInput struct {
	Category   Category
	Constraint string
	Source     Source
	Confidence Confidence
	Phase      DecisionPhase

	Rationale             string
	Dependencies          []string
	Supersedes            []string
	FailureContext        string
	ContradictionResolved string
	HumanQueryID          string
}

func (in AppendInput) validate() []string {
	var fields []string
	if !in.Category.IsValid() {
		fields = append(fields, "category")
	}
	if in.Constraint == "" {
		fields = append(fields, "constraint")
	}
	if !in.Source.IsValid() {
		fields = append(fields, "source")
	}
	if !in.Confidence.IsValid() {
		fields = append(fields, "confidence")
	}
	if !in.Phase.IsValid() {
		fields = append(fields, "phase")
	}
	return fields
}

// Append validates input, assigns a category-scoped monotonic id, stamps
// timestamp and status="active", and appends the decision.
func (l *Ledger) Append(input AppendInput, now time.Time) (Decision, error) {
	if fields := input.validate(); len(fields) > 0 {
		return Decision{}, &ValidationError{Fields: fields}
	}

	n := l.counters[input.Category] + 1
	id := formatID(input.Category, n)
	if _, exists := l.byID[id]; exists {
		return Decision{}, fmt.Errorf("%w: %s", ErrDuplicateDecisionID, id)
	}

	d := Decision{
		ID:                    id,
		Timestamp:             now.UTC().Format(time.RFC3339Nano),
		Category:              input.Category,
		Constraint:            input.Constraint,
		Source:                input.Source,
		Confidence:            input.Confidence,
		Status:                StatusActive,
		Phase:                 input.Phase,
		Rationale:             input.Rationale,
		Dependencies:          input.Dependencies,
		Supersedes:            input.Supersedes,
		FailureContext:        input.FailureContext,
		ContradictionResolved: input.ContradictionResolved,
		HumanQueryID:          input.HumanQueryID,
	}

	l.counters[input.Category] = n
	l.byID[id] = len(l.decisions)
	l.decisions = append(l.decisions, d)
	l.touch(now)
	return d, nil
}

// AppendWithID appends a fully-formed decision, as used when loading a
// persisted ledger: it validates the id format, refreshes the relevant
// category's counter to max(seen), and rejects duplicates.
func (l *Ledger) AppendWithID(d Decision) error {
	if !idRegexp.MatchString(d.ID) {
		return fmt.Errorf("ledger: invalid decision id format %q", d.ID)
	}
	if _, exists := l.byID[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDecisionID, d.ID)
	}
	if fields := (AppendInput{
		Category: d.Category, Constraint: d.Constraint, Source: d.Source,
		Confidence: d.Confidence, Phase: d.Phase,
	}).validate(); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if !d.Status.IsValid() {
		return &ValidationError{Fields: []string{"status"}}
	}

	n := sequenceNumber(d.ID)
	if n > l.counters[d.Category] {
		l.counters[d.Category] = n
	}
	l.byID[d.ID] = len(l.decisions)
	l.decisions = append(l.decisions, d)
	return nil
}

func sequenceNumber(id string) int {
	var n int
	// id is already validated against idPattern ("^[a-z_]+_\d{3}$"); the
	// last three characters are always the zero-padded sequence number.
	fmt.Sscanf(id[len(id)-3:], "%d", &n)
	return n
}

// Supersede marks oldID superseded by a freshly appended decision built
// from newInput, enforcing the canonical-override safety rule: a
// canonical decision can only be superseded when forceOverrideCanonical
// is true.
func (l *Ledger) Supersede(oldID string, newInput AppendInput, forceOverrideCanonical bool, now time.Time) (Decision, error) {
	idx, ok := l.byID[oldID]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrDecisionNotFound, oldID)
	}
	old := l.decisions[idx]
	if old.Status != StatusActive {
		return Decision{}, fmt.Errorf("%w: %s is already %s", ErrInvalidSupersede, oldID, old.Status)
	}
	if old.Confidence == ConfidenceCanonical && !forceOverrideCanonical {
		return Decision{}, fmt.Errorf("%w: %s", ErrCanonicalOverride, oldID)
	}

	if !containsString(newInput.Supersedes, oldID) {
		newInput.Supersedes = append(append([]string{}, newInput.Supersedes...), oldID)
	}

	newDecision, err := l.Append(newInput, now)
	if err != nil {
		return Decision{}, err
	}

	old.Status = StatusSuperseded
	old.SupersededBy = newDecision.ID
	l.decisions[idx] = old
	l.touch(now)

	return newDecision, nil
}

func (l *Ledger) touch(now time.Time) {
	l.Meta.LastModified = now.UTC().Format(time.RFC3339Nano)
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
