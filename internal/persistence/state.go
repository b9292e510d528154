package persistence

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/jackedney/criticality/internal/protocol"
)

// StateVersion is the wire format version this package writes. Readers
// tolerate any X.Y.Z value; writers always emit this one.
const StateVersion = "1.0.0"

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// stateWire is the top-level JSON envelope from spec section 4.D. Field
// order and names are fixed; writers emit only these keys, readers
// tolerate additional ones.
type stateWire struct {
	Version         string               `json:"version"`
	PersistedAt     string               `json:"persistedAt"`
	Phase           string               `json:"phase"`
	Substate        protocol.Substate    `json:"substate"`
	Artifacts       []string             `json:"artifacts"`
	BlockingQueries []blockingRecordWire `json:"blockingQueries"`
}

type blockingRecordWire struct {
	ID         string   `json:"id"`
	Phase      string   `json:"phase"`
	Query      string   `json:"query"`
	BlockedAt  string   `json:"blockedAt"`
	Resolved   bool     `json:"resolved"`
	Options    []string `json:"options,omitempty"`
	TimeoutMs  *int64   `json:"timeoutMs,omitempty"`
	ResolvedAt string   `json:"resolvedAt,omitempty"`
	Response   *string  `json:"response,omitempty"`
}

// SaveState serializes snapshot to path using the write-temp-then-rename
// discipline, stamping persistedAt with now.
func SaveState(snapshot protocol.ProtocolStateSnapshot, path string, now time.Time) error {
	wire := stateWire{
		Version:         StateVersion,
		PersistedAt:     now.UTC().Format(time.RFC3339Nano),
		Phase:           string(snapshot.State.Phase),
		Substate:        snapshot.State.Substate,
		Artifacts:       artifactStrings(snapshot.Artifacts),
		BlockingQueries: []blockingRecordWire{},
	}
	for _, r := range snapshot.BlockingQueries {
		wire.BlockingQueries = append(wire.BlockingQueries, toBlockingWire(r))
	}

	return AtomicWriteJSON(path, "state", wire, true)
}

func artifactStrings(set protocol.ArtifactSet) []string {
	slice := set.Slice()
	out := make([]string, len(slice))
	for i, a := range slice {
		out[i] = string(a)
	}
	return out
}

func toBlockingWire(r protocol.BlockingRecord) blockingRecordWire {
	w := blockingRecordWire{
		ID:        r.ID,
		Phase:     string(r.Phase),
		Query:     r.Query,
		BlockedAt: r.BlockedAt.UTC().Format(time.RFC3339Nano),
		Resolved:  r.Resolved,
		Options:   r.Options,
		TimeoutMs: r.TimeoutMs,
		Response:  r.Response,
	}
	if r.ResolvedAt != nil {
		w.ResolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}
	return w
}

// LoadState reads and validates a state file, returning a structured error
// from the taxonomy in spec section 4.D/7 on any failure.
func LoadState(path string) (protocol.ProtocolStateSnapshot, error) {
	data, err := ReadFile(path)
	if err != nil {
		return protocol.ProtocolStateSnapshot{}, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: CorruptionError, Message: "state file is empty or whitespace-only"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: ParseError, Message: "parsing state JSON", Cause: err}
	}

	for _, key := range []string{"version", "phase", "substate", "artifacts", "blockingQueries"} {
		if _, ok := raw[key]; !ok {
			return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "missing required key " + key}
		}
	}

	var version string
	if err := json.Unmarshal(raw["version"], &version); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "version is not a string", Cause: err}
	}
	if !semverPattern.MatchString(version) {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: ValidationError, Message: "version " + version + " is not valid semver X.Y.Z"}
	}

	var phaseStr string
	if err := json.Unmarshal(raw["phase"], &phaseStr); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "phase is not a string", Cause: err}
	}
	phase, err := protocol.ParsePhase(phaseStr)
	if err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: ValidationError, Message: err.Error()}
	}

	var substate protocol.Substate
	if err := json.Unmarshal(raw["substate"], &substate); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "invalid substate", Cause: err}
	}

	var artifactStrs []string
	if err := json.Unmarshal(raw["artifacts"], &artifactStrs); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "artifacts is not an array of strings", Cause: err}
	}
	artifacts := protocol.NewArtifactSet()
	for _, a := range artifactStrs {
		artifacts = artifacts.Add(protocol.Artifact(a))
	}

	var blockingRaw []blockingRecordWire
	if err := json.Unmarshal(raw["blockingQueries"], &blockingRaw); err != nil {
		return protocol.ProtocolStateSnapshot{}, &Error{Kind: SchemaError, Message: "blockingQueries is not an array", Cause: err}
	}
	records := make([]protocol.BlockingRecord, 0, len(blockingRaw))
	for _, w := range blockingRaw {
		record, err := fromBlockingWire(w)
		if err != nil {
			return protocol.ProtocolStateSnapshot{}, err
		}
		records = append(records, record)
	}

	return protocol.ProtocolStateSnapshot{
		State:           protocol.ProtocolState{Phase: phase, Substate: substate},
		Artifacts:       artifacts,
		BlockingQueries: records,
	}, nil
}

func fromBlockingWire(w blockingRecordWire) (protocol.BlockingRecord, error) {
	if w.ID == "" || w.Phase == "" || w.Query == "" || w.BlockedAt == "" {
		return protocol.BlockingRecord{}, &Error{Kind: SchemaError, Message: "blockingQueries entry missing required fields"}
	}
	phase, err := protocol.ParsePhase(w.Phase)
	if err != nil {
		return protocol.BlockingRecord{}, &Error{Kind: ValidationError, Message: err.Error()}
	}
	blockedAt, err := time.Parse(time.RFC3339Nano, w.BlockedAt)
	if err != nil {
		return protocol.BlockingRecord{}, &Error{Kind: SchemaError, Message: "blockedAt is not a valid timestamp", Cause: err}
	}

	record := protocol.BlockingRecord{
		ID:        w.ID,
		Phase:     phase,
		Query:     w.Query,
		BlockedAt: blockedAt,
		Resolved:  w.Resolved,
		Options:   w.Options,
		TimeoutMs: w.TimeoutMs,
		Response:  w.Response,
	}
	if w.ResolvedAt != "" {
		resolvedAt, err := time.Parse(time.RFC3339Nano, w.ResolvedAt)
		if err != nil {
			return protocol.BlockingRecord{}, &Error{Kind: SchemaError, Message: "resolvedAt is not a valid timestamp", Cause: err}
		}
		record.ResolvedAt = &resolvedAt
	}
	return record, nil
}
