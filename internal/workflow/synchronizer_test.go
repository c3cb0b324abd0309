package workflow_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustersync/internal/catalog"
	"clustersync/internal/gate"
	"clustersync/internal/history"
	"clustersync/internal/services"
	"clustersync/internal/stage"
	"clustersync/internal/testsupport"
	"clustersync/internal/workflow"
)

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestRunSkipsCompletedClusters(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.gate.MarkComplete("c2", stage.Convert))
	h := &fakeHandler{name: stage.Convert, ids: []string{"c1", "c2", "c3"}}

	report, err := e.synchronizer(workflow.StageSet{Convert: h}).Run(context.Background(), stage.Convert)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c3"}, sorted(h.Executed()))
	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Completed)
	for _, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, gate.Complete, e.gate.Status(id, stage.Convert), id)
	}

	// A second run has nothing left to do.
	report, err = e.synchronizer(workflow.StageSet{Convert: h}).Run(context.Background(), stage.Convert)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Skipped)
	assert.Len(t, h.Executed(), 2)
}

func TestRunDrainsWorkAndSurfacesFirstFailure(t *testing.T) {
	e := newEnv(t)
	boom := services.Wrap(services.ErrSchema, "convert", "parse", "bad column", nil)
	h := &fakeHandler{name: stage.Convert, ids: []string{"c1", "c2", "c3"}, fail: map[string]error{"c2": boom}}

	report, err := e.synchronizer(workflow.StageSet{Convert: h}).Run(context.Background(), stage.Convert)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrSchema)
	id, ok := services.ClusterOf(err)
	assert.True(t, ok)
	assert.Equal(t, "c2", id)

	assert.Equal(t, []string{"c1", "c2", "c3"}, sorted(h.Executed()))
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, gate.NotStarted, e.gate.Status("c2", stage.Convert))
	assert.Equal(t, gate.Complete, e.gate.Status("c3", stage.Convert))
}

func TestRunBoundsConcurrency(t *testing.T) {
	e := newEnv(t, testsupport.WithPoolSize(2))
	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	h := &fakeHandler{name: stage.Convert, ids: ids, delay: 10 * time.Millisecond}

	_, err := e.synchronizer(workflow.StageSet{Convert: h}).Run(context.Background(), stage.Convert)
	require.NoError(t, err)
	assert.LessOrEqual(t, h.peak.Load(), int32(2))
	assert.Len(t, h.Executed(), len(ids))
}

func TestRunCommitsResultsBeforeMarking(t *testing.T) {
	e := newEnv(t)
	h := &fakeHandler{name: stage.Upload, ids: []string{"c1", "c2", "c3"}, rows: true,
		fail: map[string]error{"c3": services.Wrap(services.ErrRemote, "upload", "put", "c3", nil)}}

	report, err := e.synchronizer(workflow.StageSet{Upload: h}).Run(context.Background(), stage.Upload)
	require.Error(t, err)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, report.Failed)

	table, err := e.ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, sorted(table.Keys(catalog.ColumnClusterID)))
	assert.True(t, e.gate.IsComplete("c1", stage.Upload))
	assert.False(t, e.gate.IsComplete("c3", stage.Upload))
}

func TestRunDefersCatalogWhenPublishFails(t *testing.T) {
	e := newEnv(t)
	e.store.fail.Store(true)
	h := &fakeHandler{name: stage.Upload, ids: []string{"c1"}, rows: true}

	report, err := e.synchronizer(workflow.StageSet{Upload: h}).Run(context.Background(), stage.Upload)
	require.ErrorIs(t, err, services.ErrCatalogWrite)
	assert.Equal(t, 1, report.Deferred)
	assert.True(t, e.gate.IsComplete("c1", stage.Upload))
	assert.True(t, e.ledger.Pending())

	e.store.fail.Store(false)
	require.NoError(t, e.ledger.Flush(context.Background()))
	assert.False(t, e.ledger.Pending())
}

func TestRunRecordsHistory(t *testing.T) {
	e := newEnv(t)
	hist := testsupport.MustOpenHistory(t, e.cfg)
	require.NoError(t, e.gate.MarkComplete("c0", stage.Convert))
	h := &fakeHandler{name: stage.Convert, ids: []string{"c0", "c1", "c2"},
		fail: map[string]error{"c2": errors.New("disk full")}}

	report, _ := e.synchronizer(workflow.StageSet{Convert: h}, func(o *workflow.Options) { o.History = hist }).
		Run(context.Background(), stage.Convert)

	runs, err := hist.ByRun(context.Background(), report.RunID)
	require.NoError(t, err)
	outcomes := make(map[string]history.Outcome)
	for _, r := range runs {
		outcomes[r.ClusterID] = r.Outcome
	}
	assert.Equal(t, map[string]history.Outcome{
		"c0": history.OutcomeSkipped,
		"c1": history.OutcomeComplete,
		"c2": history.OutcomeFailed,
	}, outcomes)
}

func TestRunStopsOnPreflightFailure(t *testing.T) {
	e := newEnv(t)
	h := &fakeHandler{name: stage.Download, ids: []string{"c1"}}
	s := e.synchronizer(workflow.StageSet{Download: h}, func(o *workflow.Options) {
		o.Preflight = func(context.Context, stage.Name) error { return errors.New("dataset dir missing") }
	})
	_, err := s.Run(context.Background(), stage.Download)
	assert.ErrorIs(t, err, services.ErrConfiguration)
	assert.Empty(t, h.Executed())
}

func TestSyncRunsStagesInOrderAndStopsOnFailure(t *testing.T) {
	e := newEnv(t)
	var (
		order []stage.Name
		mu    sync.Mutex
	)
	download := &fakeHandler{name: stage.Download, ids: []string{"c1"}, order: &order, orderMu: &mu}
	convertH := &fakeHandler{name: stage.Convert, ids: []string{"c1"}, order: &order, orderMu: &mu}
	uploadH := &fakeHandler{name: stage.Upload, ids: []string{"c1"}, rows: true, order: &order, orderMu: &mu}
	deleteH := &fakeHandler{name: stage.Delete, ids: []string{"c9"}, order: &order, orderMu: &mu}
	stages := workflow.StageSet{Download: download, Convert: convertH, Upload: uploadH, Delete: deleteH}

	reports, err := e.synchronizer(stages).Sync(context.Background(), workflow.SyncOptions{Delete: true})
	require.NoError(t, err)
	assert.Equal(t, []stage.Name{stage.Download, stage.Convert, stage.Upload, stage.Delete}, order)
	assert.Len(t, reports, 4)

	order = nil
	failing := newEnv(t)
	download.fail = map[string]error{"c2": errors.New("network")}
	download.ids = []string{"c2"}
	reports, err = failing.synchronizer(stages).Sync(context.Background(), workflow.SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, []stage.Name{stage.Download}, order)
	assert.Len(t, reports, 1)
}

func TestSyncContinuesPastDeferredCatalog(t *testing.T) {
	e := newEnv(t)
	e.store.fail.Store(true)
	uploadH := &fakeHandler{name: stage.Upload, ids: []string{"c1"}, rows: true}
	deleteH := &fakeHandler{name: stage.Delete, ids: []string{"c0"}}
	stages := workflow.StageSet{
		Download: &fakeHandler{name: stage.Download},
		Convert:  &fakeHandler{name: stage.Convert},
		Upload:   uploadH,
		Delete:   deleteH,
	}
	reports, err := e.synchronizer(stages).Sync(context.Background(), workflow.SyncOptions{Delete: true})
	require.ErrorIs(t, err, services.ErrCatalogWrite)
	assert.Len(t, reports, 4)
	assert.Equal(t, []string{"c0"}, deleteH.Executed())
}

func TestRunMissingHandler(t *testing.T) {
	e := newEnv(t)
	_, err := e.synchronizer(workflow.StageSet{}).Run(context.Background(), stage.Upload)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestHealthReportsConfiguredStagesInOrder(t *testing.T) {
	e := newEnv(t)
	stages := workflow.StageSet{
		Upload:   &fakeHandler{name: stage.Upload, unhealthy: "remote login failed"},
		Download: &fakeHandler{name: stage.Download},
	}
	health := e.synchronizer(stages).Health(context.Background())
	require.Len(t, health, 2)
	assert.Equal(t, stage.Healthy(stage.Download), health[0])
	assert.Equal(t, stage.Unhealthy(stage.Upload, "remote login failed"), health[1])
}
