package supervisor

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/gosuper/gosuperd/internal/config"
)

// tickInterval is how often the Monitor reconciles instance state against
// autorestart policy, matching the upstream monitor loop's 1-second cadence.
const tickInterval = time.Second

// Monitor is the background reconciliation loop: once a second it walks
// every instance, detects the ones that have exited, and decides whether to
// restart them based on autorestart mode, exit code, and whether the
// instance ever reached the running state.
type Monitor struct {
	registry *Registry
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor builds a Monitor bound to registry. Call Start to begin
// ticking.
func NewMonitor(registry *Registry, logger *slog.Logger) *Monitor {
	return &Monitor{registry: registry, logger: logger}
}

// Start begins the tick loop in a background goroutine. Calling Start twice
// without an intervening Stop leaks the first loop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)
}

// Stop cancels the tick loop and waits for the current tick to finish, up
// to ctx's deadline. On timeout it returns anyway, leaving the tick
// goroutine to finish on its own; callers that need a hard exit should not
// wait on it further.
func (m *Monitor) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		select {
		case <-m.done:
		case <-ctx.Done():
		}
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	m.logger.Info("monitor loop started")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop cancelled")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick reconciles every instance of every program. It holds the registry
// lock for the whole pass, exactly as the original held its single asyncio
// lock across the entire monitor body — an autorestart's StartTime wait
// will block Start/Stop/Reload calls until it completes, which is the
// documented, inherited behavior rather than an oversight.
func (m *Monitor) tick(ctx context.Context) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	for _, name := range m.registry.namesLocked() {
		g := m.registry.groups[name]
		cfg := g.config()
		for _, inst := range g.snapshotInstances() {
			m.classify(ctx, inst, cfg)
		}
	}
}

func (m *Monitor) classify(ctx context.Context, inst *Instance, cfg config.ProgramConfig) {
	inst.mu.Lock()
	if inst.cmd == nil {
		// Never attempted, or the attempt failed before a child existed
		// (bad user, exec error) — nothing to reconcile.
		inst.mu.Unlock()
		return
	}
	if inst.runningLocked() {
		inst.mu.Unlock()
		return
	}
	switch inst.state {
	case StateStopped, StateBackoff:
		inst.mu.Unlock()
		return
	}
	code := inst.exitCode
	everRunning := inst.everRunning
	inst.mu.Unlock()

	expected := slices.Contains(cfg.ExitCodes, code)
	shouldRestart := cfg.Autorestart == config.AutorestartAlways ||
		(cfg.Autorestart == config.AutorestartUnexpected && !expected)

	switch {
	case !everRunning:
		m.handleEarlyExit(ctx, inst, cfg, code, expected, shouldRestart)
	case expected:
		m.handleExpectedExit(ctx, inst, cfg, code, shouldRestart)
	default:
		m.handleUnexpectedCrash(ctx, inst, cfg, code, shouldRestart)
	}
}

// handleEarlyExit covers an instance that exited before its StartTime wait
// elapsed: an expected code during startup is just a clean stop, otherwise
// it counts against StartRetries before the instance is parked in backoff.
func (m *Monitor) handleEarlyExit(ctx context.Context, inst *Instance, cfg config.ProgramConfig, code int, expected, shouldRestart bool) {
	if expected {
		m.logger.Info("instance exited early with expected code, no restart needed",
			"instance", inst.id, "exit_code", code)
		inst.mu.Lock()
		inst.state = StateStopped
		inst.mu.Unlock()
		return
	}

	inst.mu.Lock()
	inst.restartAttempts++
	attempts := inst.restartAttempts
	inst.mu.Unlock()

	if attempts > cfg.StartRetries {
		m.logger.Error("instance failed to start properly, giving up",
			"instance", inst.id, "attempts", attempts)
		inst.mu.Lock()
		inst.state = StateBackoff
		inst.mu.Unlock()
		return
	}

	if shouldRestart {
		m.logger.Warn("instance crashed early, restarting",
			"instance", inst.id, "exit_code", code, "attempt", attempts, "max", cfg.StartRetries)
		sleepCtx(ctx, time.Second)
		if ctx.Err() != nil {
			return
		}
		inst.spawn(ctx)
	}
}

// handleExpectedExit covers an instance that had reached running and exited
// with a code in ExitCodes: restarted only under autorestart=always.
func (m *Monitor) handleExpectedExit(ctx context.Context, inst *Instance, cfg config.ProgramConfig, code int, shouldRestart bool) {
	if !shouldRestart {
		m.logger.Info("instance exited normally", "instance", inst.id, "exit_code", code)
		inst.mu.Lock()
		inst.state = StateStopped
		inst.mu.Unlock()
		return
	}

	inst.mu.Lock()
	attempts := inst.restartAttempts
	inst.mu.Unlock()

	if attempts >= cfg.StartRetries {
		m.logger.Error("instance exceeded restart limit", "instance", inst.id, "attempts", attempts)
		inst.mu.Lock()
		inst.state = StateBackoff
		inst.mu.Unlock()
		return
	}

	inst.mu.Lock()
	inst.restartAttempts++
	attempts = inst.restartAttempts
	inst.mu.Unlock()

	m.logger.Info("instance exited normally, restarting (autorestart=always)",
		"instance", inst.id, "exit_code", code, "attempt", attempts, "max", cfg.StartRetries)
	sleepCtx(ctx, 300*time.Millisecond)
	if ctx.Err() != nil {
		return
	}
	inst.spawn(ctx)
}

// handleUnexpectedCrash covers an instance that exited with a code not in
// ExitCodes after having reached running.
func (m *Monitor) handleUnexpectedCrash(ctx context.Context, inst *Instance, cfg config.ProgramConfig, code int, shouldRestart bool) {
	if !shouldRestart {
		m.logger.Info("instance stopped, no restart", "instance", inst.id, "exit_code", code, "mode", cfg.Autorestart)
		inst.mu.Lock()
		inst.state = StateStopped
		inst.mu.Unlock()
		return
	}

	inst.mu.Lock()
	attempts := inst.restartAttempts
	inst.mu.Unlock()

	if attempts >= cfg.StartRetries {
		m.logger.Error("instance exceeded restart limit", "instance", inst.id, "attempts", attempts)
		inst.mu.Lock()
		inst.state = StateBackoff
		inst.mu.Unlock()
		return
	}

	inst.mu.Lock()
	inst.restartAttempts++
	attempts = inst.restartAttempts
	inst.mu.Unlock()

	m.logger.Warn("instance died unexpectedly, restarting",
		"instance", inst.id, "exit_code", code, "attempt", attempts, "max", cfg.StartRetries)
	sleepCtx(ctx, 300*time.Millisecond)
	if ctx.Err() != nil {
		return
	}
	inst.spawn(ctx)
}
