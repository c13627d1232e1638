package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gosuper/gosuperd/internal/config"
)

// deleteSettleDelay is the pause between stopping successive programs
// during a full shutdown, matching LifecycleMixin.delete's asyncio.sleep(0.2).
const deleteSettleDelay = 200 * time.Millisecond

// Registry is the top-level collection of program groups: the single piece
// of shared state that the monitor loop, the operator shell, and the signal
// bridge all read and mutate. Every exported method takes the registry lock,
// the same coarse single-lock model the upstream handler used (one
// asyncio.Lock guarding the entire services map). Reload reads and parses
// the file before taking it and holds it for the whole diff; the other
// exported methods hold it for their whole duration.
type Registry struct {
	mu         sync.Mutex
	groups     map[string]*Group
	configPath string
	email      map[string]any
	logger     *slog.Logger
}

// NewRegistry builds a Registry from a parsed Document. Every program gets
// its own Group with a cloned config snapshot.
func NewRegistry(doc *config.Document, configPath string, logger *slog.Logger) *Registry {
	r := &Registry{
		groups:     make(map[string]*Group, len(doc.Programs)),
		configPath: configPath,
		email:      doc.Email,
		logger:     logger,
	}
	for _, pc := range doc.Programs {
		r.groups[pc.Name] = newGroup(pc, logger)
	}
	return r
}

// namesLocked returns the program names in sorted order. Caller must hold
// r.mu.
func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the program names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

// ConfigPath returns the path of the configuration file the registry was
// last built or reloaded from, per the external-facing API's read-only
// access to config_path.
func (r *Registry) ConfigPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configPath
}

// Autostart starts every program whose config has autostart=true, in name
// order, matching LifecycleMixin.autostart.
func (r *Registry) Autostart(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.namesLocked() {
		g := r.groups[name]
		if !g.config().Autostart {
			r.logger.Debug("skipping autostart, autostart=false", "program", name)
			continue
		}
		r.logger.Info("autostarting program", "program", name)
		g.start(ctx)
	}
}

// Start starts every instance of a program by name.
func (r *Registry) Start(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return false, fmt.Errorf("program %q not found", name)
	}
	return g.start(ctx), nil
}

// Stop stops every instance of a program by name.
func (r *Registry) Stop(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return false, fmt.Errorf("program %q not found", name)
	}
	return g.stop(ctx), nil
}

// Restart stops then, after a short settle delay, restarts a program —
// matching LifecycleMixin.restart's stop / sleep(1) / start sequence.
func (r *Registry) Restart(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return fmt.Errorf("program %q not found", name)
	}
	r.logger.Info("restarting program", "program", name)
	g.stop(ctx)
	sleepCtx(ctx, time.Second)
	if ctx.Err() == nil {
		g.start(ctx)
	}
	r.logger.Info("program restarted", "program", name)
	return nil
}

// StartAll starts every program, in name order.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.namesLocked() {
		r.groups[name].start(ctx)
	}
}

// StopAll stops every program, in name order.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.namesLocked() {
		r.groups[name].stop(ctx)
	}
}

// Status returns a snapshot of every program's instance statuses, keyed by
// program name.
func (r *Registry) Status() map[string][]Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]Status, len(r.groups))
	for name, g := range r.groups {
		out[name] = g.statuses()
	}
	return out
}

// Shutdown stops every program and clears the registry, pausing briefly
// between programs exactly as LifecycleMixin.delete does. ctx bounds the
// whole sequence: once it's done, Shutdown stops issuing further stops and
// returns immediately, leaving any still-running instance to be reaped
// when the process exits, matching the "proceeds to exit anyway" fallback.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("shutting down all programs")
	for _, name := range r.namesLocked() {
		if ctx.Err() != nil {
			r.logger.Warn("shutdown deadline exceeded, abandoning remaining programs")
			break
		}
		r.groups[name].stop(ctx)
		sleepCtx(ctx, deleteSettleDelay)
	}
	r.groups = make(map[string]*Group)
	r.logger.Info("shutdown complete")
}
