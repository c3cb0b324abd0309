package workflow

import (
	"context"
	"errors"

	"clustersync/internal/logging"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// SyncOptions selects the stages Sync chains.
type SyncOptions struct {
	// Delete appends the delete stage after upload.
	Delete bool
}

// Sync runs Download, Convert and Upload in order, and Delete when
// requested. A stage failure stops the chain. A catalog publish that was
// only deferred does not: later stages still run and the deferral is
// returned at the end.
func (s *Synchronizer) Sync(ctx context.Context, opts SyncOptions) ([]Report, error) {
	names := append([]stage.Name(nil), stage.Pipeline...)
	if opts.Delete {
		names = append(names, stage.Delete)
	}

	var (
		reports  []Report
		deferred error
	)
	for _, name := range names {
		report, err := s.Run(ctx, name)
		reports = append(reports, report)
		if err == nil {
			continue
		}
		if errors.Is(err, services.ErrCatalogWrite) && report.Failed == 0 {
			if deferred == nil {
				deferred = err
			}
			continue
		}
		return reports, err
	}
	if deferred != nil {
		logging.WarnWithContext(s.logger, "sync finished with an unpublished catalog", "catalog_deferred",
			logging.Error(deferred),
			logging.String(logging.FieldErrorHint, "run 'clustersync catalog publish' once the remote store is reachable"),
		)
	}
	return reports, deferred
}
