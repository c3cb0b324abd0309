package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clustersync/internal/catalog"
	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/gate"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/stage"
	"clustersync/internal/testsupport"
	"clustersync/internal/workflow"
)

type fakeHandler struct {
	name    stage.Name
	ids     []string
	fail    map[string]error
	rows    bool
	delay   time.Duration
	order   *[]stage.Name
	orderMu *sync.Mutex

	// unhealthy, when set, is reported as the health check failure detail.
	unhealthy string

	mu       sync.Mutex
	executed []string
	active   atomic.Int32
	peak     atomic.Int32
}

func (f *fakeHandler) Name() stage.Name { return f.name }

func (f *fakeHandler) Discover(context.Context) ([]string, error) {
	if f.order != nil {
		f.orderMu.Lock()
		*f.order = append(*f.order, f.name)
		f.orderMu.Unlock()
	}
	return f.ids, nil
}

func (f *fakeHandler) Execute(ctx context.Context, id string) (*stage.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.executed = append(f.executed, id)
	f.mu.Unlock()

	if cluster, ok := services.ClusterFromContext(ctx); !ok || cluster != id {
		return nil, errors.New("cluster id missing from context")
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	if f.name == stage.Delete {
		return &stage.Result{ClusterID: id, Remove: true}, nil
	}
	if f.rows {
		return &stage.Result{ClusterID: id, Row: map[string]string{catalog.ColumnFolderID: "predictions/" + id}}, nil
	}
	return nil, nil
}

func (f *fakeHandler) HealthCheck(context.Context) stage.Health {
	if f.unhealthy != "" {
		return stage.Unhealthy(f.name, f.unhealthy)
	}
	return stage.Healthy(f.name)
}

func (f *fakeHandler) Executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

type putFailingStore struct {
	remotestore.Store
	fail atomic.Bool
}

func (p *putFailingStore) Put(ctx context.Context, localPath, parent, name string) (string, error) {
	if p.fail.Load() {
		return "", services.Wrap(services.ErrRemote, "remote", "put", name, errors.New("service unavailable"))
	}
	return p.Store.Put(ctx, localPath, parent, name)
}

type env struct {
	cfg    *config.Config
	layout dataset.Layout
	gate   *gate.Gate
	store  *putFailingStore
	ledger *catalog.Ledger
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	layout := dataset.NewLayout(cfg)
	store := &putFailingStore{Store: remotestore.NewLocal(cfg.Remote.LocalRoot)}
	return &env{
		cfg:    cfg,
		layout: layout,
		gate:   gate.New(layout),
		store:  store,
		ledger: workflow.NewLedger(cfg, store, logging.NewNop()),
	}
}

func (e *env) synchronizer(stages workflow.StageSet, opts ...func(*workflow.Options)) *workflow.Synchronizer {
	o := workflow.Options{
		Stages:   stages,
		Gate:     e.gate,
		Ledger:   e.ledger,
		PoolSize: e.cfg.Workers.PoolSize,
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return workflow.New(o)
}
