package workflow

import (
	"context"
	"log/slog"

	"clustersync/internal/catalog"
	"clustersync/internal/gate"
	"clustersync/internal/history"
	"clustersync/internal/logging"
	"clustersync/internal/stage"
)

const defaultPoolSize = 20

// StageSet bundles the concrete stage handlers the synchronizer orchestrates.
type StageSet struct {
	Download stage.Handler
	Convert  stage.Handler
	Upload   stage.Handler
	Delete   stage.Handler
}

func (s StageSet) handler(name stage.Name) stage.Handler {
	switch name {
	case stage.Download:
		return s.Download
	case stage.Convert:
		return s.Convert
	case stage.Upload:
		return s.Upload
	case stage.Delete:
		return s.Delete
	default:
		return nil
	}
}

// PreflightFunc validates readiness before a stage is dispatched.
type PreflightFunc func(ctx context.Context, name stage.Name) error

// Options configures a Synchronizer.
type Options struct {
	Stages StageSet
	Gate   *gate.Gate
	// Ledger commits rows returned by upload and delete. Required when
	// either handler is set.
	Ledger *catalog.Ledger
	// History is optional; a nil store records nothing.
	History   *history.Store
	PoolSize  int
	Preflight PreflightFunc
	Logger    *slog.Logger
}

// Synchronizer coordinates stage dispatch across clusters.
type Synchronizer struct {
	stages    StageSet
	gate      *gate.Gate
	ledger    *catalog.Ledger
	history   *history.Store
	pool      int
	preflight PreflightFunc
	logger    *slog.Logger
}

// New constructs a Synchronizer.
func New(opts Options) *Synchronizer {
	pool := opts.PoolSize
	if pool <= 0 {
		pool = defaultPoolSize
	}
	return &Synchronizer{
		stages:    opts.Stages,
		gate:      opts.Gate,
		ledger:    opts.Ledger,
		history:   opts.History,
		pool:      pool,
		preflight: opts.Preflight,
		logger:    logging.NewComponentLogger(opts.Logger, "synchronizer"),
	}
}

// Gate exposes the completion gate used by the synchronizer.
func (s *Synchronizer) Gate() *gate.Gate {
	return s.gate
}

// Health runs each configured stage handler's health check in stage order.
// Stages without a handler are skipped.
func (s *Synchronizer) Health(ctx context.Context) []stage.Health {
	var out []stage.Health
	for _, name := range stage.All() {
		h := s.stages.handler(name)
		if h == nil {
			continue
		}
		health := h.HealthCheck(ctx)
		if !health.Ready {
			logging.WarnWithContext(s.logger, "stage health check failed", "stage_unhealthy",
				logging.String(logging.FieldStage, string(name)),
				logging.String("detail", health.Detail),
				logging.String(logging.FieldImpact, "runs of this stage will fail until the check passes"),
			)
		}
		out = append(out, health)
	}
	return out
}
