package workflow

import (
	"context"
	"sort"

	"clustersync/internal/dataset"
	"clustersync/internal/gate"
	"clustersync/internal/history"
	"clustersync/internal/stage"
)

// ClusterStatus is the per-stage completion of one cluster plus the most
// recent recorded failure, if any.
type ClusterStatus struct {
	ClusterID string
	Stages    map[stage.Name]gate.Status
	// LastError is the newest failed run across stages, or the zero Run.
	LastError history.Run
}

// Complete reports whether every forward stage is complete.
func (c ClusterStatus) Complete() bool {
	for _, name := range stage.Pipeline {
		if c.Stages[name] != gate.Complete {
			return false
		}
	}
	return true
}

// Statuses reports every cluster present on disk or in history. Markers
// decide completion; history only contributes the last error.
func Statuses(ctx context.Context, layout dataset.Layout, g *gate.Gate, hist *history.Store) ([]ClusterStatus, error) {
	ids := make(map[string]struct{})
	for _, scan := range []func() ([]string, error){
		layout.DownloadedClusters,
		layout.ClustersWithPredictions,
		layout.ClustersWithOutput,
	} {
		found, err := scan()
		if err != nil {
			return nil, err
		}
		for _, id := range found {
			ids[id] = struct{}{}
		}
	}

	var latest map[string]map[string]history.Run
	if hist != nil {
		var err error
		latest, err = hist.Latest(ctx)
		if err != nil {
			return nil, err
		}
		for id := range latest {
			ids[id] = struct{}{}
		}
	}

	out := make([]ClusterStatus, 0, len(ids))
	for id := range ids {
		st := ClusterStatus{ClusterID: id, Stages: make(map[stage.Name]gate.Status, len(stage.Pipeline))}
		for _, name := range stage.Pipeline {
			st.Stages[name] = g.Status(id, name)
		}
		for _, run := range latest[id] {
			if run.Outcome != history.OutcomeFailed {
				continue
			}
			if st.LastError.ID == 0 || run.ID > st.LastError.ID {
				st.LastError = run
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out, nil
}
