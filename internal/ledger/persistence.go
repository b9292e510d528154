package ledger

import (
	"encoding/json"
	"strings"

	"github.com/jackedney/criticality/internal/persistence"
)

type metaWire struct {
	Version      string `json:"version"`
	Created      string `json:"created"`
	Project      string `json:"project"`
	LastModified string `json:"last_modified,omitempty"`
}

type decisionWire struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Category   string `json:"category"`
	Constraint string `json:"constraint"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
	Status     string `json:"status"`
	Phase      string `json:"phase"`

	Rationale             string   `json:"rationale,omitempty"`
	Dependencies          []string `json:"dependencies,omitempty"`
	Supersedes            []string `json:"supersedes,omitempty"`
	SupersededBy          string   `json:"superseded_by,omitempty"`
	FailureContext        string   `json:"failure_context,omitempty"`
	ContradictionResolved string   `json:"contradiction_resolved,omitempty"`
	HumanQueryID          string   `json:"human_query_id,omitempty"`
}

type ledgerWire struct {
	Meta      metaWire       `json:"meta"`
	Decisions []decisionWire `json:"decisions"`
}

// Save writes the ledger to path via the shared atomic write-temp-rename
// discipline, using its own envelope ({meta, decisions}) and its own
// ".ledger-<random>.tmp" temp prefix as required by spec section 4.D.
func (l *Ledger) Save(path string) error {
	wire := ledgerWire{
		Meta:      metaWire(l.Meta),
		Decisions: make([]decisionWire, 0, len(l.decisions)),
	}
	for _, d := range l.decisions {
		wire.Decisions = append(wire.Decisions, toDecisionWire(d))
	}
	return persistence.AtomicWriteJSON(path, "ledger", wire, true)
}

func toDecisionWire(d Decision) decisionWire {
	return decisionWire{
		ID: d.ID, Timestamp: d.Timestamp, Category: string(d.Category),
		Constraint: d.Constraint, Source: string(d.Source), Confidence: string(d.Confidence),
		Status: string(d.Status), Phase: string(d.Phase),
		Rationale: d.Rationale, Dependencies: d.Dependencies, Supersedes: d.Supersedes,
		SupersededBy: d.SupersededBy, FailureContext: d.FailureContext,
		ContradictionResolved: d.ContradictionResolved, HumanQueryID: d.HumanQueryID,
	}
}

// Load reads a ledger file, validating its envelope and each decision's
// closed enums, rebuilding per-category counters via AppendWithID.
func Load(path string) (*Ledger, error) {
	data, err := persistence.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &persistence.Error{Kind: persistence.CorruptionError, Message: "ledger file is empty or whitespace-only"}
	}

	var wire ledgerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &persistence.Error{Kind: persistence.ParseError, Message: "parsing ledger JSON", Cause: err}
	}

	if wire.Meta.Version == "" || wire.Meta.Created == "" {
		return nil, &persistence.Error{Kind: persistence.SchemaError, Message: "ledger meta missing version or created"}
	}

	l := &Ledger{
		Meta:     Meta(wire.Meta),
		byID:     make(map[string]int),
		counters: make(map[Category]int),
	}

	for _, dw := range wire.Decisions {
		d, err := fromDecisionWire(dw)
		if err != nil {
			return nil, err
		}
		if err := l.AppendWithID(d); err != nil {
			return nil, &persistence.Error{Kind: persistence.ValidationError, Message: "loading decision " + dw.ID, Cause: err}
		}
	}

	return l, nil
}

func fromDecisionWire(w decisionWire) (Decision, error) {
	if w.ID == "" || w.Timestamp == "" || w.Constraint == "" {
		return Decision{}, &persistence.Error{Kind: persistence.SchemaError, Message: "decision missing required fields"}
	}
	d := Decision{
		ID: w.ID, Timestamp: w.Timestamp, Category: Category(w.Category),
		Constraint: w.Constraint, Source: Source(w.Source), Confidence: Confidence(w.Confidence),
		Status: Status(w.Status), Phase: DecisionPhase(w.Phase),
		Rationale: w.Rationale, Dependencies: w.Dependencies, Supersedes: w.Supersedes,
		SupersededBy: w.SupersededBy, FailureContext: w.FailureContext,
		ContradictionResolved: w.ContradictionResolved, HumanQueryID: w.HumanQueryID,
	}
	if !d.Category.IsValid() || !d.Source.IsValid() || !d.Confidence.IsValid() || !d.Status.IsValid() || !d.Phase.IsValid() {
		return Decision{}, &persistence.Error{Kind: persistence.ValidationError, Message: "decision " + w.ID + " has an invalid enum field"}
	}
	return d, nil
}
