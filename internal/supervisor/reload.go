package supervisor

import (
	"context"
	"sort"
	"time"

	"github.com/gosuper/gosuperd/internal/config"
)

// reloadSettleDelay is the pause after stopping a program whose config
// changed, before the replacement group is started — matching
// ReloadMixin.reload's asyncio.sleep(0.1).
const reloadSettleDelay = 100 * time.Millisecond

// Reload re-reads the configuration file (path, or the registry's current
// path if empty), diffs it against the running set of programs, and
// applies the difference: obsolete programs are stopped and removed, new
// programs are added (and autostarted), and programs whose canonical
// config changed are stopped and replaced with a freshly built group.
// Programs whose config is unchanged keep their existing instances
// untouched, so a config-file touch with no real edits never interrupts a
// running process. Returns whether anything was added or removed.
func (r *Registry) Reload(ctx context.Context, path string) (bool, error) {
	if path == "" {
		path = r.configPath
	}

	doc, err := config.Load(path, r.logger)
	if err != nil {
		r.logger.Error("failed to reload configuration", "error", err)
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("reloading configuration")

	next := make(map[string]config.ProgramConfig, len(doc.Programs))
	for _, pc := range doc.Programs {
		next[pc.Name] = pc
	}

	var removed, added []string
	for name := range r.groups {
		if _, ok := next[name]; !ok {
			removed = append(removed, name)
		}
	}
	for name := range next {
		if _, ok := r.groups[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(removed)
	sort.Strings(added)

	for _, name := range removed {
		r.logger.Info("removing obsolete program", "program", name)
		r.groups[name].stop(ctx)
		delete(r.groups, name)
	}

	addedSet := make(map[string]bool, len(added))
	for _, name := range added {
		addedSet[name] = true
		cfg := next[name]
		r.logger.Info("adding new program", "program", name)
		g := newGroup(cfg, r.logger)
		r.groups[name] = g
		if cfg.Autostart {
			g.start(ctx)
		} else {
			r.logger.Info("new program has autostart=false, not starting", "program", name)
		}
	}

	for _, name := range r.namesLocked() {
		if addedSet[name] {
			continue
		}
		newCfg, ok := next[name]
		if !ok {
			continue
		}
		g := r.groups[name]
		oldCfg := g.config()
		if !config.Changed(oldCfg, newCfg) {
			r.logger.Debug("program unchanged, keeping existing instances", "program", name)
			continue
		}

		r.logger.Info("updating modified program", "program", name)
		g.stop(ctx)
		sleepCtx(ctx, reloadSettleDelay)
		replacement := newGroup(newCfg, r.logger)
		r.groups[name] = replacement
		if newCfg.Autostart {
			replacement.start(ctx)
		}
	}

	r.configPath = path
	if doc.Email != nil {
		r.email = doc.Email
	}

	r.logger.Info("reload complete")
	return len(added) > 0 || len(removed) > 0, nil
}
