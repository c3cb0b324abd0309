package catalog

import (
	"clustersync/internal/config"
	"clustersync/internal/dataset"
)

// Policy decides which clusters are downloaded and which are kept.
type Policy struct {
	Species      string
	MinFragments int64
	RequireIndex bool
}

// PolicyFromConfig builds a Policy from the selection section.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Species:      cfg.Selection.Species,
		MinFragments: cfg.Selection.MinFragments,
		RequireIndex: cfg.Selection.RequireIndex,
	}
}

// Downloadable reports whether a cluster should be fetched: matching species,
// a primary reference and, when required, an index reference.
func (p Policy) Downloadable(c dataset.Cluster) bool {
	if c.Species != p.Species || !c.HasPrimary() {
		return false
	}
	return !p.RequireIndex || c.HasIndex()
}

// Retained reports whether a cluster stays published.
func (p Policy) Retained(c dataset.Cluster) bool {
	return c.Species == p.Species && c.NumFragments >= p.MinFragments
}

// Downloads returns the downloadable clusters in metadata order.
func (p Policy) Downloads(md *Metadata) []dataset.Cluster {
	var out []dataset.Cluster
	for _, c := range md.Clusters {
		if p.Downloadable(c) {
			out = append(out, c)
		}
	}
	return out
}

// DeletionTargets returns every known cluster that is not retained. The
// result may include clusters that were never processed.
func (p Policy) DeletionTargets(md *Metadata) []string {
	var out []string
	for _, c := range md.Clusters {
		if !p.Retained(c) {
			out = append(out, c.ID)
		}
	}
	return out
}
