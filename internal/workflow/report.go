package workflow

import (
	"time"

	"clustersync/internal/stage"
)

// Report summarizes one stage dispatch.
type Report struct {
	Stage stage.Name
	RunID string
	// Discovered counts clusters the handler considered.
	Discovered int
	// Skipped counts clusters the gate already reported complete.
	Skipped   int
	Completed int
	Failed    int
	// Deferred counts clusters whose work finished but whose catalog update
	// is spooled locally.
	Deferred int
	Duration time.Duration
}

// Processed is the number of clusters the dispatch ran a body for.
func (r Report) Processed() int {
	return r.Completed + r.Failed + r.Deferred
}
