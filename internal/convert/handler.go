package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/logging"
	"clustersync/internal/services"
	"clustersync/internal/stage"
)

// Handler is the convert lifecycle stage. It converts all five artifacts of
// a cluster into the configured output folder.
type Handler struct {
	layout dataset.Layout
	opts   Options
	logger *slog.Logger
}

// NewHandler constructs the convert stage handler.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		layout: dataset.NewLayout(cfg),
		opts: Options{
			Provenance: ProvenanceFromConfig(cfg),
			Threshold:  cfg.Convert.Threshold,
		},
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

func (h *Handler) Name() stage.Name { return stage.Convert }

// SetLogger swaps the dispatch-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "convert")
}

// Discover lists clusters whose analysis produced a predictions file.
func (h *Handler) Discover(context.Context) ([]string, error) {
	return h.layout.ClustersWithPredictions()
}

// Execute converts every artifact of clusterID. Inputs are checked up front
// so a missing file fails the cluster before any output is written.
func (h *Handler) Execute(ctx context.Context, clusterID string) (*stage.Result, error) {
	logger := logging.WithContext(ctx, h.logger)
	for _, a := range dataset.Artifacts() {
		input := h.layout.InputPath(clusterID, a)
		if _, err := os.Stat(input); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrInputNotFound, "convert", "check inputs", fmt.Sprintf("%s input %s", a, input), err)
			}
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
	}

	outputDir := h.layout.OutputDir(clusterID)
	for _, a := range dataset.Artifacts() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := Convert(a, clusterID, h.layout.InputPath(clusterID, a), outputDir, h.opts)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", a, err)
		}
		logger.Debug("artifact converted", logging.String("artifact", a.String()), logging.String("output", out))
	}
	return nil, nil
}

// HealthCheck verifies the results root is readable.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	info, err := os.Stat(h.layout.ResultsDir)
	if err != nil {
		return stage.Unhealthy(stage.Convert, fmt.Sprintf("results dir: %v", err))
	}
	if !info.IsDir() {
		return stage.Unhealthy(stage.Convert, fmt.Sprintf("results dir %s is not a directory", h.layout.ResultsDir))
	}
	return stage.Healthy(stage.Convert)
}
