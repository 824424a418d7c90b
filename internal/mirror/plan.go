package mirror

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/lakemirror/lakemirror/internal/source"
	"github.com/lakemirror/lakemirror/internal/store"
)

// ComputePlan diffs the remote index against the destination listing. Pure
// function, no I/O: listing happens before, apply after.
//
// Remote names are partitioned into ToAdd and Unchanged; destination-only
// names become ToRemove. A name that would land in both ToAdd and ToRemove
// stays in ToAdd only (add wins over remove, so a racing apply can never
// delete data it just wrote).
func ComputePlan(remote []*source.RemoteEntry, local []*store.Entry) *SyncPlan {
	localByName := make(map[string]*store.Entry, len(local))
	localNames := mapset.NewThreadUnsafeSet[string]()
	for _, e := range local {
		localByName[e.Name] = e
		localNames.Add(e.Name)
	}

	plan := &SyncPlan{}
	remoteNames := mapset.NewThreadUnsafeSet[string]()
	addNames := mapset.NewThreadUnsafeSet[string]()

	for _, re := range remote {
		if remoteNames.Contains(re.Name) {
			continue
		}
		remoteNames.Add(re.Name)

		cur, exists := localByName[re.Name]
		if !exists || entryChanged(re, cur) {
			plan.ToAdd = append(plan.ToAdd, re)
			addNames.Add(re.Name)
		} else {
			plan.Unchanged = append(plan.Unchanged, re.Name)
		}
	}

	stale := localNames.Difference(remoteNames).Difference(addNames)
	plan.ToRemove = stale.ToSlice()

	sort.Slice(plan.ToAdd, func(i, j int) bool { return plan.ToAdd[i].Name < plan.ToAdd[j].Name })
	sort.Strings(plan.ToRemove)
	sort.Strings(plan.Unchanged)

	return plan
}

// entryChanged decides whether a name present on both sides needs a
// re-transfer. Tie-break ladder: modification marker when both sides carry
// one, then size-only, then always-changed. The conservative fallback trades
// redundant transfer for correctness when no identity is available.
func entryChanged(remote *source.RemoteEntry, local *store.Entry) bool {
	if remote.HasMarker() && !local.SourceModified.IsZero() {
		if !remote.LastModified.Equal(local.SourceModified) {
			return true
		}
		if remote.HasSize() && local.Size >= 0 && remote.Size != local.Size {
			return true
		}
		return false
	}

	if remote.HasSize() && local.Size >= 0 {
		return remote.Size != local.Size
	}

	return true
}
