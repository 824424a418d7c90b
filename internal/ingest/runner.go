package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/lakemirror/lakemirror/internal/mirror"
	"github.com/lakemirror/lakemirror/internal/source"
	"github.com/lakemirror/lakemirror/internal/store"
	"golang.org/x/sync/errgroup"
)

const defaultJobParallelism = 2

// Runner executes every manifest job once. Jobs are independent; one failing
// job never stops the others.
type Runner struct {
	manifest *Manifest
	s3       *store.S3Config
	parallel int
}

// JobResult is the outcome of one job. Sync is set for mirror jobs. A job
// failed when Err is non-nil, and a mirror job is also not clean when its
// SyncResult is Partial.
type JobResult struct {
	Job  *Job
	Sync *mirror.SyncResult
	Err  error
}

// Clean reports whether the job finished without any recorded failure.
func (r *JobResult) Clean() bool {
	if r.Err != nil {
		return false
	}
	return r.Sync == nil || r.Sync.Outcome == mirror.OutcomeComplete
}

func NewRunner(manifest *Manifest, s3 *store.S3Config, parallel int) *Runner {
	if parallel <= 0 {
		parallel = defaultJobParallelism
	}
	return &Runner{manifest: manifest, s3: s3, parallel: parallel}
}

// Run executes all jobs with bounded parallelism and joins before returning.
// Results come back in manifest order.
func (r *Runner) Run(ctx context.Context) []*JobResult {
	results := make([]*JobResult, len(r.manifest.Jobs))

	eg := new(errgroup.Group)
	eg.SetLimit(r.parallel)

	for i, job := range r.manifest.Jobs {
		eg.Go(func() error {
			results[i] = r.runJob(ctx, job)
			return nil
		})
	}

	// closures never return errors, per-job failures live in results
	_ = eg.Wait()

	return results
}

func (r *Runner) runJob(ctx context.Context, job *Job) *JobResult {
	log := slog.With("job", job.Name, "type", job.Type)
	result := &JobResult{Job: job}
	tstart := time.Now()

	dst, err := store.Open(ctx, job.Dest, r.s3)
	if err != nil {
		result.Err = err
		log.Error("job failed", "error", err)
		return result
	}

	switch job.Type {
	case JobMirror:
		result.Sync, result.Err = r.runMirror(ctx, job, dst)
	case JobDataset:
		result.Err = r.runDataset(ctx, job, dst)
	}

	if result.Err != nil {
		log.Error("job failed", "error", result.Err, "took", time.Since(tstart))
	} else {
		log.Info("job done", "took", time.Since(tstart))
	}

	return result
}

func (r *Runner) runMirror(ctx context.Context, job *Job, dst store.Store) (*mirror.SyncResult, error) {
	src, err := source.New(&source.Config{URL: job.Source, Contact: r.manifest.Contact})
	if err != nil {
		return nil, err
	}

	m, err := mirror.New(src, dst, mirror.Options{
		Workers:  job.Workers,
		Excludes: job.Excludes,
	})
	if err != nil {
		return nil, err
	}

	return m.Run(ctx)
}

func (r *Runner) runDataset(ctx context.Context, job *Job, dst store.Store) error {
	fetcher, err := NewDatasetFetcher(&DatasetConfig{
		URL:     job.Source,
		Contact: r.manifest.Contact,
		File:    job.File,
	})
	if err != nil {
		return err
	}
	return fetcher.Fetch(ctx, dst)
}
