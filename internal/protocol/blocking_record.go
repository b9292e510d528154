package protocol

import "time"

// BlockingRecord is the persisted history of one blocking query, retained
// even after resolution so the snapshot carries a full audit trail.
type BlockingRecord struct {
	ID         string
	Phase      Phase
	Query      string
	BlockedAt  time.Time
	Resolved   bool
	Options    []string
	TimeoutMs  *int64
	ResolvedAt *time.Time
	Response   *string
}
