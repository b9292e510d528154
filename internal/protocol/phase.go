// Package protocol implements the Criticality Protocol's state model: the
// phase graph, substate variants, artifact kinds, and the snapshot type
// that ties them together. It holds no I/O and no business rules beyond
// the invariants and predicates the rest of the core depends on.
package protocol

import "fmt"

// Phase is a stage in the Criticality Protocol graph, ordered by execution
// sequence.
type Phase string

const (
	Ignition         Phase = "Ignition"
	Lattice          Phase = "Lattice"
	CompositionAudit Phase = "CompositionAudit"
	Injection        Phase = "Injection"
	Mesoscopic       Phase = "Mesoscopic"
	MassDefect       Phase = "MassDefect"
	Complete         Phase = "Complete"
)

// phaseOrder fixes the execution sequence used by Before/sorting helpers.
var phaseOrder = map[Phase]int{
	Ignition:         0,
	Lattice:          1,
	CompositionAudit: 2,
	Injection:        3,
	Mesoscopic:       4,
	MassDefect:       5,
	Complete:         6,
}

// validPhases is the closed enum used at the persistence boundary.
var validPhases = map[Phase]bool{
	Ignition: true, Lattice: true, CompositionAudit: true,
	Injection: true, Mesoscopic: true, MassDefect: true, Complete: true,
}

// IsValid reports whether p is one of the seven known phases.
func (p Phase) IsValid() bool {
	return validPhases[p]
}

// Before reports whether p executes strictly before other in the protocol
// graph's canonical order.
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

// ParsePhase parses a wire string into a Phase, rejecting anything outside
// the closed enum. The persistence layer uses it when loading state; a plain
// Phase(s) conversion, as the CLI and MCP recover paths use, is not checked.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("protocol: invalid phase %q", s)
	}
	return p, nil
}
