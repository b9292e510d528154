package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/mcp"
	"github.com/jackedney/criticality/internal/protocol"
)

var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// TickTool advances the protocol by exactly one tick.
type TickTool struct{ Session *Session }

func (t *TickTool) Name() string        { return "tick" }
func (t *TickTool) Description() string { return "Advance the protocol state machine by one tick." }
func (t *TickTool) InputSchema() json.RawMessage { return emptySchema }

func (t *TickTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	snapshot, result, err := t.Session.Tick()
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(map[string]any{
		"phase":          snapshot.State.Phase,
		"transitioned":   result.Transitioned,
		"shouldContinue": result.ShouldContinue,
		"stopReason":     result.StopReason,
	})
}

// StatusTool reports the current snapshot without advancing it.
type StatusTool struct{ Session *Session }

func (t *StatusTool) Name() string               { return "status" }
func (t *StatusTool) Description() string        { return "Report the current protocol phase, substate, and artifacts." }
func (t *StatusTool) InputSchema() json.RawMessage { return emptySchema }

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	snapshot := t.Session.Status()
	return mcp.JSONResult(map[string]any{
		"phase":     snapshot.State.Phase,
		"substate":  snapshot.State.Substate.Kind,
		"artifacts": snapshot.Artifacts.Slice(),
	})
}

// ResolveBlockingTool answers the current blocking query.
type ResolveBlockingTool struct{ Session *Session }

func (t *ResolveBlockingTool) Name() string { return "resolve_blocking" }
func (t *ResolveBlockingTool) Description() string {
	return "Answer the currently outstanding blocking query."
}
func (t *ResolveBlockingTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"response":{"type":"string"},"allowCustom":{"type":"boolean"}},"required":["response"]}`)
}

type resolveParams struct {
	Response    string `json:"response"`
	AllowCustom bool   `json:"allowCustom"`
}

func (t *ResolveBlockingTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p resolveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid resolve_blocking params: %w", err)
	}
	t.Session.QueueResolution(p.Response, p.AllowCustom)
	return mcp.JSONResult(map[string]any{"queued": true})
}

// RecoverFailureTool routes a recoverable Failed substate back to Active
// along a registered FailureTransitions edge.
type RecoverFailureTool struct{ Session *Session }

func (t *RecoverFailureTool) Name() string { return "recover_failure" }
func (t *RecoverFailureTool) Description() string {
	return "Move a recoverable Failed substate back to Active via a registered failure transition."
}
func (t *RecoverFailureTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"target":{"type":"string"}},"required":["target"]}`)
}

type recoverFailureParams struct {
	Target string `json:"target"`
}

func (t *RecoverFailureTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p recoverFailureParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid recover_failure params: %w", err)
	}
	snapshot, err := t.Session.RecoverFailure(protocol.Phase(p.Target))
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(map[string]any{
		"phase":     snapshot.State.Phase,
		"substate":  snapshot.State.Substate.Kind,
		"artifacts": snapshot.Artifacts.Slice(),
	})
}

// LedgerListTool lists every decision in the ledger.
type LedgerListTool struct{ Session *Session }

func (t *LedgerListTool) Name() string               { return "ledger_list" }
func (t *LedgerListTool) Description() string        { return "List every decision recorded in the ledger." }
func (t *LedgerListTool) InputSchema() json.RawMessage { return emptySchema }

func (t *LedgerListTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return mcp.JSONResult(t.Session.LedgerDecisions())
}

// LedgerSupersedeTool records a new decision superseding an existing one.
type LedgerSupersedeTool struct{ Session *Session }

func (t *LedgerSupersedeTool) Name() string        { return "ledger_supersede" }
func (t *LedgerSupersedeTool) Description() string { return "Supersede an existing ledger decision with a new one." }
func (t *LedgerSupersedeTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{
		"oldId":{"type":"string"},
		"category":{"type":"string"},
		"constraint":{"type":"string"},
		"source":{"type":"string"},
		"confidence":{"type":"string"},
		"phase":{"type":"string"},
		"rationale":{"type":"string"},
		"forceOverrideCanonical":{"type":"boolean"}
	},"required":["oldId","category","constraint","source","confidence","phase"]}`)
}

type supersedeParams struct {
	OldID                  string `json:"oldId"`
	Category               string `json:"category"`
	Constraint             string `json:"constraint"`
	Source                 string `json:"source"`
	Confidence             string `json:"confidence"`
	Phase                  string `json:"phase"`
	Rationale              string `json:"rationale"`
	ForceOverrideCanonical bool   `json:"forceOverrideCanonical"`
}

func (t *LedgerSupersedeTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p supersedeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid ledger_supersede params: %w", err)
	}

	input := ledger.AppendInput{
		Category:   ledger.Category(p.Category),
		Constraint: p.Constraint,
		Source:     ledger.Source(p.Source),
		Confidence: ledger.Confidence(p.Confidence),
		Phase:      ledger.DecisionPhase(p.Phase),
		Rationale:  p.Rationale,
	}

	d, err := t.Session.LedgerSupersede(p.OldID, input, p.ForceOverrideCanonical)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(d)
}

// Register adds every tool in this package to registry, bound to session.
func Register(registry *mcp.Registry, session *Session) {
	registry.Register(&TickTool{Session: session})
	registry.Register(&StatusTool{Session: session})
	registry.Register(&ResolveBlockingTool{Session: session})
	registry.Register(&RecoverFailureTool{Session: session})
	registry.Register(&LedgerListTool{Session: session})
	registry.Register(&LedgerSupersedeTool{Session: session})
}
