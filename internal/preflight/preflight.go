package preflight

import (
	"context"
	"fmt"
	"strings"

	"clustersync/internal/config"
	"clustersync/internal/remotestore"
	"clustersync/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ForStage executes the checks a stage needs. store may be nil, in which
// case the remote check is skipped.
func ForStage(ctx context.Context, cfg *config.Config, name stage.Name, store remotestore.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	switch name {
	case stage.Download:
		results = append(results,
			CheckDirectoryAccess("Dataset directory", cfg.Paths.DatasetDir),
			CheckFileReadable("Metadata table", cfg.Paths.MetadataFile),
		)
	case stage.Convert:
		results = append(results, CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir))
	case stage.Upload:
		results = append(results, CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir))
	case stage.Delete:
		results = append(results,
			CheckDirectoryAccess("Dataset directory", cfg.Paths.DatasetDir),
			CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
			CheckFileReadable("Metadata table", cfg.Paths.MetadataFile),
		)
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if name != stage.Convert && store != nil {
		results = append(results, CheckRemote(ctx, cfg.Remote.Backend, store))
	}
	return results
}

// RunAll executes every check regardless of stage, with each check
// reported once.
func RunAll(ctx context.Context, cfg *config.Config, store remotestore.Store) []Result {
	seen := make(map[string]struct{})
	var results []Result
	for _, name := range stage.All() {
		for _, r := range ForStage(ctx, cfg, name, store) {
			if _, ok := seen[r.Name]; ok {
				continue
			}
			seen[r.Name] = struct{}{}
			results = append(results, r)
		}
	}
	return results
}

// Failures summarizes failed checks, or returns nil when every check passed.
func Failures(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
}
