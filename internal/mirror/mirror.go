package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/lakemirror/lakemirror/internal/source"
	"github.com/lakemirror/lakemirror/internal/store"
)

const DefaultWorkers = 4

// Source is the remote side of a mirror: a file index plus per-file fetch.
type Source interface {
	List(ctx context.Context) ([]*source.RemoteEntry, error)
	Fetch(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

// Options tune a mirror run.
type Options struct {
	// Workers bounds concurrent transfers. Defaults to DefaultWorkers.
	Workers int

	// Excludes are doublestar patterns matched against entry names. Matching
	// entries are dropped from both listings, so they are neither fetched nor
	// deleted.
	Excludes []string
}

// Mirror reconciles a destination store against a remote file index,
// transferring only the delta.
type Mirror struct {
	source Source
	store  store.Store
	opts   Options
}

func New(src Source, dst store.Store, opts Options) (*Mirror, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("mirror: invalid exclude pattern %q", pattern)
		}
	}
	return &Mirror{source: src, store: dst, opts: opts}, nil
}

// Plan lists both sides and computes the diff without mutating anything.
// Listing failures abort here, before any mutation.
func (m *Mirror) Plan(ctx context.Context) (*SyncPlan, error) {
	remote, err := m.source.List(ctx)
	if err != nil {
		return nil, err
	}

	local, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	remote = filterEntries(remote, m.opts.Excludes, func(e *source.RemoteEntry) string { return e.Name })
	local = filterEntries(local, m.opts.Excludes, func(e *store.Entry) string { return e.Name })

	return ComputePlan(remote, local), nil
}

// Run performs one full sync: list, plan, apply. Per-file failures are
// recorded in the result and never abort the run. The returned error is
// non-nil only for fail-fast listing errors.
func (m *Mirror) Run(ctx context.Context) (*SyncResult, error) {
	runID := uuid.NewString()
	log := slog.With("run", runID)
	tstart := time.Now()

	plan, err := m.Plan(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		RunID:     runID,
		Unchanged: len(plan.Unchanged),
	}

	m.applyAdds(ctx, log, plan, result)
	m.applyRemoves(ctx, log, plan, result)

	result.Outcome = OutcomeComplete
	if len(result.Errors) > 0 {
		result.Outcome = OutcomePartial
	}

	log.Info("sync done",
		"outcome", result.Outcome,
		"added", result.Added,
		"removed", result.Removed,
		"unchanged", result.Unchanged,
		"transferred", humanize.Bytes(uint64(result.Bytes)),
		"errors", len(result.Errors),
		"took", time.Since(tstart),
	)

	return result, nil
}

type transferResult struct {
	entry *source.RemoteEntry
	bytes int64
	err   error
}

// applyAdds fetches and writes every to-add entry through a bounded worker
// pool, then joins and folds the per-file outcomes into the result.
func (m *Mirror) applyAdds(ctx context.Context, log *slog.Logger, plan *SyncPlan, result *SyncResult) {
	if len(plan.ToAdd) == 0 {
		return
	}

	jobs := make(chan *source.RemoteEntry, len(plan.ToAdd))
	results := make(chan *transferResult, len(plan.ToAdd))

	var wg sync.WaitGroup
	wg.Add(m.opts.Workers)
	for range m.opts.Workers {
		go func() {
			defer wg.Done()
			for entry := range jobs {
				select {
				case <-ctx.Done():
					results <- &transferResult{entry: entry, err: ctx.Err()}
				default:
					n, err := m.transfer(ctx, entry)
					results <- &transferResult{entry: entry, bytes: n, err: err}
				}
			}
		}()
	}

	for _, entry := range plan.ToAdd {
		jobs <- entry
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			log.Warn("sync", "op", OpTransfer, "name", res.entry.Name, "error", res.err)
			result.Errors = append(result.Errors, &PerFileError{
				Name:  res.entry.Name,
				Op:    OpTransfer,
				Cause: res.err.Error(),
			})
			continue
		}
		result.Added++
		result.Bytes += res.bytes
		log.Info("sync", "op", OpTransfer, "name", res.entry.Name, "size", humanize.Bytes(uint64(res.bytes)))
	}
}

func (m *Mirror) transfer(ctx context.Context, entry *source.RemoteEntry) (int64, error) {
	body, size, err := m.source.Fetch(ctx, entry.Name)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	counted := &countingReader{r: body}
	if size < 0 {
		size = entry.Size
	}

	err = m.store.Put(ctx, &store.PutInput{
		Name:           entry.Name,
		Body:           counted,
		Size:           size,
		SourceModified: entry.LastModified,
	})
	if err != nil {
		return 0, err
	}

	return counted.n, nil
}

// applyRemoves deletes stale destination entries after all adds have joined.
// A name also marked to-add is skipped: the freshly written copy stays.
func (m *Mirror) applyRemoves(ctx context.Context, log *slog.Logger, plan *SyncPlan, result *SyncResult) {
	if len(plan.ToRemove) == 0 {
		return
	}

	addNames := mapset.NewThreadUnsafeSet[string]()
	for _, entry := range plan.ToAdd {
		addNames.Add(entry.Name)
	}

	for _, name := range plan.ToRemove {
		if addNames.Contains(name) {
			continue
		}

		if err := m.store.Delete(ctx, name); err != nil {
			log.Warn("sync", "op", OpDelete, "name", name, "error", err)
			result.Errors = append(result.Errors, &PerFileError{
				Name:  name,
				Op:    OpDelete,
				Cause: err.Error(),
			})
			continue
		}
		result.Removed++
		log.Info("sync", "op", OpDelete, "name", name)
	}
}

func filterEntries[T any](entries []T, excludes []string, name func(T) string) []T {
	if len(excludes) == 0 {
		return entries
	}

	kept := entries[:0]
	for _, entry := range entries {
		if !matchesAny(excludes, name(entry)) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		// patterns are validated in New
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
