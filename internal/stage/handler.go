package stage

import (
	"context"
	"log/slog"
)

// Result is what a stage body hands back to the synchronizer when its work
// has a catalog side effect. Handlers never touch the catalog themselves.
type Result struct {
	ClusterID string
	// Row holds catalog cells to upsert, keyed by column name.
	Row map[string]string
	// Remove drops the cluster's catalog row instead of upserting.
	Remove bool
}

// Handler describes the contract the synchronizer needs from each stage.
type Handler interface {
	Name() Name
	// Discover lists the clusters this stage should consider, complete or not.
	Discover(context.Context) ([]string, error)
	// Execute runs the stage body for one cluster. A nil Result means the
	// stage has nothing to commit for that cluster.
	Execute(context.Context, string) (*Result, error)
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the dispatch-scoped logger before work starts.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
