package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clustersync/internal/services"
)

// Outcome is the result of one cluster in one stage run.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
	// OutcomeDeferred marks work that finished locally but whose catalog
	// update is still spooled.
	OutcomeDeferred Outcome = "deferred"
)

// Run is one recorded stage outcome.
type Run struct {
	ID           int64
	RunID        string
	ClusterID    string
	Stage        string
	Outcome      Outcome
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

const runColumns = "id, run_id, cluster_id, stage, outcome, error_kind, error_message, started_at, finished_at"

// Record stores a stage outcome. A non-nil err fills the error columns.
func (s *Store) Record(ctx context.Context, run Run, err error) error {
	if s == nil {
		return nil
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	if err != nil {
		run.ErrorKind = services.Kind(err)
		run.ErrorMessage = err.Error()
	}
	return s.exec(ctx,
		`INSERT INTO runs (run_id, cluster_id, stage, outcome, error_kind, error_message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.ClusterID,
		run.Stage,
		string(run.Outcome),
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
}

// Latest returns the most recent run per cluster and stage, keyed by cluster
// id then stage name.
func (s *Store) Latest(ctx context.Context) (map[string]map[string]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id IN (
			SELECT MAX(id) FROM runs GROUP BY cluster_id, stage
		) ORDER BY cluster_id, stage`)
	if err != nil {
		return nil, fmt.Errorf("query latest runs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]Run)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if out[run.ClusterID] == nil {
			out[run.ClusterID] = make(map[string]Run)
		}
		out[run.ClusterID][run.Stage] = run
	}
	return out, rows.Err()
}

// ByRun returns every row recorded under runID in insertion order.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Prune removes rows finished before cutoff and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE finished_at < ?", cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return affected, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run                     Run
		outcome                 string
		errorKind, errorMsg     sql.NullString
		startedRaw, finishedRaw string
	)
	if err := scanner.Scan(&run.ID, &run.RunID, &run.ClusterID, &run.Stage, &outcome,
		&errorKind, &errorMsg, &startedRaw, &finishedRaw); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Outcome = Outcome(outcome)
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMsg.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	return run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
