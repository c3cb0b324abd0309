package services

import "context"

type contextKey string

const (
	clusterKey contextKey = "cluster_id"
	stageKey   contextKey = "stage"
	runIDKey   contextKey = "run_id"
)

// WithCluster annotates context with the cell cluster identifier.
func WithCluster(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, clusterKey, id)
}

// ClusterFromContext extracts the cell cluster identifier if present.
func ClusterFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(clusterKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the lifecycle stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of a stage dispatch.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the dispatch identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
