package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clustersync/internal/history"
	"clustersync/internal/logging"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// Run dispatches one stage over every cluster its handler discovers. All
// clusters are processed even when some fail; the first failure is returned
// wrapped in a services.ClusterError.
func (s *Synchronizer) Run(ctx context.Context, name stage.Name) (report Report, err error) {
	runID := uuid.NewString()
	report = Report{Stage: name, RunID: runID}
	started := time.Now()
	defer func() { report.Duration = time.Since(started) }()

	handler := s.stages.handler(name)
	if handler == nil {
		return report, services.Wrap(services.ErrConfiguration, string(name), "dispatch", "stage handler unavailable", nil)
	}

	ctx = services.WithRunID(services.WithStage(ctx, string(name)), runID)
	logger := logging.WithContext(ctx, s.logger)
	if aware, ok := handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}

	if s.preflight != nil {
		if err := s.preflight(ctx, name); err != nil {
			logger.Error("preflight failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported issue and re-run the stage"),
			)
			return report, services.Wrap(services.ErrConfiguration, string(name), "preflight", "", err)
		}
	}

	ids, err := handler.Discover(ctx)
	if err != nil {
		return report, fmt.Errorf("%s discover: %w", name, err)
	}
	report.Discovered = len(ids)

	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if name.Gated() && s.gate.IsComplete(id, name) {
			report.Skipped++
			logger.Debug("cluster already complete", logging.String(logging.FieldClusterID, id))
			s.record(ctx, runID, id, name, history.OutcomeSkipped, time.Now(), nil)
			continue
		}
		pending = append(pending, id)
	}
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("discovered", report.Discovered),
		logging.Int("pending", len(pending)),
		logging.Int("skipped", report.Skipped),
		logging.Int("workers", s.pool),
	)

	d := &dispatch{
		sync:    s,
		name:    name,
		runID:   runID,
		handler: handler,
		logger:  logger,
		total:   len(pending),
		sampler: logging.NewProgressSampler(5),
		started: make(map[string]time.Time, len(pending)),
	}
	g := new(errgroup.Group)
	g.SetLimit(s.pool)
	for _, id := range pending {
		g.Go(func() error { return d.process(ctx, id) })
	}
	firstErr := g.Wait()

	commitErr := d.commit(ctx)
	report.Completed, report.Failed, report.Deferred = d.completed, d.failed, d.deferred

	fields := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("completed", report.Completed),
		logging.Int("failed", report.Failed),
		logging.Int("deferred", report.Deferred),
		logging.Int("skipped", report.Skipped),
		logging.Duration("stage_duration", time.Since(started)),
	}
	switch {
	case firstErr != nil:
		logger.Error("stage finished with failures", logging.Args(append(fields, logging.Error(firstErr))...)...)
		if commitErr != nil && !errors.Is(commitErr, services.ErrCatalogWrite) {
			logger.Error("catalog commit failed", logging.Error(commitErr))
		}
		return report, firstErr
	case commitErr != nil:
		logger.Warn("stage finished; catalog not published", logging.Args(append(fields, logging.Error(commitErr))...)...)
		return report, commitErr
	default:
		logger.Info("stage completed", logging.Args(fields...)...)
		return report, nil
	}
}

// dispatch holds the mutable state of one stage run.
type dispatch struct {
	sync    *Synchronizer
	name    stage.Name
	runID   string
	handler stage.Handler
	logger  *slog.Logger
	total   int

	mu        sync.Mutex
	sampler   *logging.ProgressSampler
	done      int
	completed int
	failed    int
	deferred  int
	results   []stage.Result
	started   map[string]time.Time
}

func (d *dispatch) process(ctx context.Context, clusterID string) error {
	ctx = services.WithCluster(ctx, clusterID)
	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()

	result, err := d.handler.Execute(ctx, clusterID)
	if err == nil && result == nil {
		err = d.sync.gate.MarkComplete(clusterID, d.name)
	}
	if err != nil {
		d.finish(ctx, clusterID, started, history.OutcomeFailed, err)
		logging.ErrorWithContext(logger, "cluster failed", "cluster_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.String(logging.FieldImpact, "cluster is not marked complete and is retried on the next run"),
		)
		return &services.ClusterError{ClusterID: clusterID, Stage: string(d.name), Err: err}
	}
	if result != nil {
		result.ClusterID = clusterID
		d.mu.Lock()
		d.results = append(d.results, *result)
		d.started[clusterID] = started
		d.progressLocked()
		d.mu.Unlock()
		return nil
	}
	d.finish(ctx, clusterID, started, history.OutcomeComplete, nil)
	return nil
}

// finish records a final outcome for a cluster and reports progress.
func (d *dispatch) finish(ctx context.Context, clusterID string, started time.Time, outcome history.Outcome, err error) {
	d.sync.record(ctx, d.runID, clusterID, d.name, outcome, started, err)
	d.mu.Lock()
	defer d.mu.Unlock()
	switch outcome {
	case history.OutcomeComplete:
		d.completed++
	case history.OutcomeFailed:
		d.failed++
	}
	d.progressLocked()
}

func (d *dispatch) progressLocked() {
	d.done++
	if d.sampler.ShouldLog(d.done, d.total) {
		d.logger.Info(fmt.Sprintf("%d / %d processed", d.done, d.total),
			logging.String(logging.FieldEventType, "stage_progress"),
			logging.Int("done", d.done),
			logging.Int("total", d.total),
		)
	}
}

// commit publishes collected results through the ledger in one
// read-modify-publish cycle, then marks the affected clusters complete. A
// spooled catalog still counts as committed: the spool is published on the
// next ledger mutation.
func (d *dispatch) commit(ctx context.Context) error {
	if len(d.results) == 0 {
		return nil
	}
	if d.sync.ledger == nil {
		err := services.Wrap(services.ErrConfiguration, string(d.name), "commit", "no catalog ledger configured", nil)
		for _, r := range d.results {
			d.sync.record(ctx, d.runID, r.ClusterID, d.name, history.OutcomeFailed, d.started[r.ClusterID], err)
		}
		d.failed += len(d.results)
		return err
	}

	applyErr := d.sync.ledger.Apply(ctx, d.results)
	deferred := errors.Is(applyErr, services.ErrCatalogWrite)
	var markErrs []error
	for _, r := range d.results {
		cctx := services.WithCluster(ctx, r.ClusterID)
		started := d.started[r.ClusterID]
		if applyErr != nil && !deferred {
			d.sync.record(cctx, d.runID, r.ClusterID, d.name, history.OutcomeFailed, started, applyErr)
			d.failed++
			continue
		}
		if err := d.sync.gate.MarkComplete(r.ClusterID, d.name); err != nil {
			d.sync.record(cctx, d.runID, r.ClusterID, d.name, history.OutcomeFailed, started, err)
			d.failed++
			markErrs = append(markErrs, &services.ClusterError{ClusterID: r.ClusterID, Stage: string(d.name), Err: err})
			continue
		}
		if deferred {
			d.sync.record(cctx, d.runID, r.ClusterID, d.name, history.OutcomeDeferred, started, applyErr)
			d.deferred++
			continue
		}
		d.sync.record(cctx, d.runID, r.ClusterID, d.name, history.OutcomeComplete, started, nil)
		d.completed++
	}
	if applyErr != nil {
		return applyErr
	}
	if len(markErrs) > 0 {
		return markErrs[0]
	}
	return nil
}

func (s *Synchronizer) record(ctx context.Context, runID, clusterID string, name stage.Name, outcome history.Outcome, started time.Time, cause error) {
	if s.history == nil {
		return
	}
	run := history.Run{
		RunID:     runID,
		ClusterID: clusterID,
		Stage:     string(name),
		Outcome:   outcome,
		StartedAt: started,
	}
	if err := s.history.Record(ctx, run, cause); err != nil {
		s.logger.Warn("history record failed",
			logging.String(logging.FieldClusterID, clusterID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldImpact, "status report may be stale"),
		)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrInputNotFound):
		return "check that the analysis pipeline finished for this cluster"
	case errors.Is(err, services.ErrSchema):
		return "inspect the named column in the input file"
	case errors.Is(err, services.ErrPartialDownload):
		return "re-run download; the directory is fetched again from scratch"
	case errors.Is(err, services.ErrRemote):
		return "check remote store credentials and connectivity"
	default:
		return "re-run the stage; completed clusters are skipped"
	}
}
