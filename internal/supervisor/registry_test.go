package supervisor

import (
	"context"
	"testing"

	"github.com/gosuper/gosuperd/internal/config"
)

func testDocument(t *testing.T, yml string) *config.Document {
	t.Helper()
	doc, err := config.Parse([]byte(yml), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestRegistryAutostartOnlyStartsConfiguredPrograms(t *testing.T) {
	doc := testDocument(t, `
programs:
  up:
    cmd: "/bin/sleep 30"
    autostart: true
    starttime: 0
  down:
    cmd: "/bin/sleep 30"
    autostart: false
    starttime: 0
`)
	r := NewRegistry(doc, "", testLogger())
	defer r.Shutdown(context.Background())

	r.Autostart(context.Background())

	statuses := r.Status()
	if statuses["up"][0].State != StateRunning {
		t.Errorf("up state = %v, want running", statuses["up"][0].State)
	}
	if statuses["down"][0].State != StateStopped {
		t.Errorf("down state = %v, want stopped", statuses["down"][0].State)
	}
}

func TestRegistryStartStopUnknownProgram(t *testing.T) {
	doc := testDocument(t, `
programs:
  web:
    cmd: "/bin/true"
`)
	r := NewRegistry(doc, "", testLogger())

	if _, err := r.Start(context.Background(), "missing"); err == nil {
		t.Error("expected error starting unknown program")
	}
	if _, err := r.Stop(context.Background(), "missing"); err == nil {
		t.Error("expected error stopping unknown program")
	}
}

func TestRegistryShutdownClearsGroups(t *testing.T) {
	doc := testDocument(t, `
programs:
  web:
    cmd: "/bin/sleep 30"
    autostart: true
    starttime: 0
`)
	r := NewRegistry(doc, "", testLogger())
	r.Autostart(context.Background())
	r.Shutdown(context.Background())

	if names := r.Names(); len(names) != 0 {
		t.Errorf("expected no programs after shutdown, got %v", names)
	}
}
