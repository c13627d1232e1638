package supervisor

import (
	"context"
	"testing"
)

func TestGroupStartCreatesNumprocsInstances(t *testing.T) {
	cfg := baseConfig(t, "/bin/sleep 30")
	cfg.NumProcs = 3
	g := newGroup(cfg, testLogger())
	defer g.stop(context.Background())

	if !g.start(context.Background()) {
		t.Fatal("group start reported no instance started")
	}
	statuses := g.statuses()
	if len(statuses) != 3 {
		t.Fatalf("got %d instances, want 3", len(statuses))
	}
	for _, st := range statuses {
		if st.State != StateRunning {
			t.Errorf("instance %s state = %v, want running", st.ID, st.State)
		}
	}
}

func TestGroupStopStopsAllInstances(t *testing.T) {
	cfg := baseConfig(t, "/bin/sleep 30")
	cfg.NumProcs = 2
	g := newGroup(cfg, testLogger())

	g.start(context.Background())
	if !g.stop(context.Background()) {
		t.Fatal("group stop reported nothing stopped")
	}
	for _, st := range g.statuses() {
		if st.State != StateStopped {
			t.Errorf("instance %s state = %v, want stopped", st.ID, st.State)
		}
	}
}

func TestGroupStartReportsFalseOnImmediateExit(t *testing.T) {
	cfg := baseConfig(t, "/bin/true")
	cfg.StartTime = 1
	cfg.StartRetries = 1
	g := newGroup(cfg, testLogger())

	// Group.start makes exactly one attempt per instance; retrying an
	// early exit up to StartRetries is the Monitor's job, not the Group's.
	if g.start(context.Background()) {
		t.Fatal("start should report false: the command exits before starttime")
	}
	st := g.statuses()[0]
	if st.State != StateStarting {
		t.Fatalf("state = %v, want starting (left for the Monitor to classify)", st.State)
	}
}
