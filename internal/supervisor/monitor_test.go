package supervisor

import (
	"context"
	"testing"
	"time"
)

func TestMonitorRestartsUnexpectedCrash(t *testing.T) {
	doc := testDocument(t, `
programs:
  flaky:
    cmd: "/bin/false"
    autostart: true
    autorestart: unexpected
    startretries: 2
    starttime: 0
`)
	r := NewRegistry(doc, "", testLogger())
	r.Autostart(context.Background())
	defer r.Shutdown(context.Background())

	m := NewMonitor(r, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop(context.Background())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("instance never reached backoff after exhausting restart retries")
		default:
		}
		st := r.Status()["flaky"][0]
		if st.State == StateBackoff {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestMonitorLeavesNeverAutorestartStopped(t *testing.T) {
	doc := testDocument(t, `
programs:
  once:
    cmd: "/bin/true"
    autostart: true
    autorestart: never
    starttime: 0
`)
	r := NewRegistry(doc, "", testLogger())
	r.Autostart(context.Background())
	defer r.Shutdown(context.Background())

	m := NewMonitor(r, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop(context.Background())

	time.Sleep(1200 * time.Millisecond)

	st := r.Status()["once"][0]
	if st.State != StateStopped {
		t.Errorf("state = %v, want stopped (autorestart=never, expected exit code)", st.State)
	}
	if st.RestartAttempts != 0 {
		t.Errorf("restart attempts = %d, want 0", st.RestartAttempts)
	}
}
