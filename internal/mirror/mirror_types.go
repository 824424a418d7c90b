package mirror

import "github.com/lakemirror/lakemirror/internal/source"

// Outcome of a sync run. Complete means every planned operation succeeded,
// Partial means at least one per-file operation failed and was recorded.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
)

type FileOp string

const (
	OpTransfer FileOp = "transfer"
	OpDelete   FileOp = "delete"
)

// PerFileError records a single failed transfer or delete. It never aborts
// the run.
type PerFileError struct {
	Name  string `json:"name"`
	Op    FileOp `json:"op"`
	Cause string `json:"error"`
}

// SyncPlan is the listing diff. Ephemeral, recomputed every run, never
// persisted.
type SyncPlan struct {
	// ToAdd holds remote entries absent at the destination or whose recorded
	// identity differs from the remote one.
	ToAdd []*source.RemoteEntry

	// ToRemove holds destination names no longer present at the source.
	ToRemove []string

	// Unchanged holds names present on both sides with matching identity.
	// These are never re-transferred.
	Unchanged []string
}

// Empty reports whether the plan requires no mutation.
func (p *SyncPlan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// SyncResult is the aggregated outcome of one run. Entries that failed to
// transfer are not counted in Added, entries that failed to delete are not
// counted in Removed.
type SyncResult struct {
	RunID     string          `json:"run_id"`
	Added     int             `json:"added"`
	Removed   int             `json:"removed"`
	Unchanged int             `json:"unchanged"`
	Bytes     int64           `json:"bytes_transferred"`
	Errors    []*PerFileError `json:"errors,omitempty"`
	Outcome   Outcome         `json:"outcome"`
}
