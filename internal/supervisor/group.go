package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gosuper/gosuperd/internal/config"
)

// Group owns one program's configuration snapshot and its numprocs
// Instances. The config snapshot is cloned at creation time so it can never
// alias the Document it was parsed from or another Group's snapshot taken
// during the same reload.
type Group struct {
	name string

	mu     sync.RWMutex
	cfg    config.ProgramConfig
	instances []*Instance
}

func newGroup(cfg config.ProgramConfig, logger *slog.Logger) *Group {
	cfg = cfg.Clone()
	g := &Group{name: cfg.Name, cfg: cfg}
	g.instances = make([]*Instance, cfg.NumProcs)
	for i := range g.instances {
		g.instances[i] = newInstance(cfg.Name, i, cfg, logger)
	}
	return g
}

func (g *Group) config() config.ProgramConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

func (g *Group) snapshotInstances() []*Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Instance, len(g.instances))
	copy(out, g.instances)
	return out
}

// start attempts one spawn per not-already-running instance in the group.
// A failed attempt is not retried here: the Monitor's classify() owns the
// StartRetries budget for an instance that exits early, spacing its own
// retries a tick apart. This keeps the "startretries + 1 total attempts"
// contract satisfied exactly once, split across the initial start() call
// and whatever further attempts the Monitor makes.
func (g *Group) start(ctx context.Context) bool {
	instances := g.snapshotInstances()

	anyStarted := false
	for _, inst := range instances {
		if inst.IsRunning() {
			continue
		}
		if inst.spawn(ctx) {
			anyStarted = true
		}
	}
	return anyStarted
}

// stop stops every instance in the group.
func (g *Group) stop(ctx context.Context) bool {
	anyStopped := false
	for _, inst := range g.snapshotInstances() {
		if inst.stop(ctx) {
			anyStopped = true
		}
	}
	return anyStopped
}

func (g *Group) statuses() []Status {
	instances := g.snapshotInstances()
	out := make([]Status, len(instances))
	for i, inst := range instances {
		out[i] = inst.Status()
	}
	return out
}
