package config

import (
	"path/filepath"
	"strconv"
	"testing"
)

func TestParseProgramsForm(t *testing.T) {
	yml := `
programs:
  web:
    cmd: "/bin/sleep 30"
    numprocs: 2
    autostart: true
    autorestart: never
    exitcodes: [0]
    starttime: 1
`
	doc, err := Parse([]byte(yml), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Programs) != 1 {
		t.Fatalf("expected 1 program, got %d", len(doc.Programs))
	}
	p := doc.Programs[0]
	if p.Name != "web" {
		t.Errorf("name = %q, want web", p.Name)
	}
	if got := p.Cmd; len(got) != 2 || got[0] != "/bin/sleep" || got[1] != "30" {
		t.Errorf("cmd = %v, want [/bin/sleep 30]", got)
	}
	if p.NumProcs != 2 {
		t.Errorf("numprocs = %d, want 2", p.NumProcs)
	}
	if p.Umask != 0o22 {
		t.Errorf("umask default = %o, want 022", p.Umask)
	}
}

func TestParseServicesForm(t *testing.T) {
	yml := `
services:
  - name: web
    cmd: "/bin/true"
    numprocs: 1
    autostart: false
`
	doc, err := Parse([]byte(yml), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Programs) != 1 || doc.Programs[0].Name != "web" {
		t.Fatalf("unexpected programs: %+v", doc.Programs)
	}
}

func TestParseRejectsBothForms(t *testing.T) {
	yml := `
programs:
  web:
    cmd: "/bin/true"
services:
  - name: api
    cmd: "/bin/true"
`
	if _, err := Parse([]byte(yml), nil); err == nil {
		t.Fatal("expected error when both programs and services are present")
	}
}

func TestParseRejectsNeitherForm(t *testing.T) {
	if _, err := Parse([]byte("email:\n  to: a@b.com\n"), nil); err == nil {
		t.Fatal("expected error when neither programs nor services is present")
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte(""), nil); err == nil {
		t.Fatal("expected error on empty document")
	}
}

func TestParseNumprocsBounds(t *testing.T) {
	for _, n := range []int{-1, 33} {
		yml := "programs:\n  web:\n    cmd: \"/bin/true\"\n    numprocs: " + strconv.Itoa(n) + "\n"
		if _, err := Parse([]byte(yml), nil); err == nil {
			t.Errorf("numprocs=%d: expected validation error", n)
		}
	}
}

func TestParseUmaskStringAndInt(t *testing.T) {
	ymlInt := "programs:\n  web:\n    cmd: \"/bin/true\"\n    umask: 18\n"
	ymlStr := "programs:\n  web:\n    cmd: \"/bin/true\"\n    umask: \"022\"\n"
	d1, err := Parse([]byte(ymlInt), nil)
	if err != nil {
		t.Fatalf("int umask: %v", err)
	}
	d2, err := Parse([]byte(ymlStr), nil)
	if err != nil {
		t.Fatalf("string umask: %v", err)
	}
	if d1.Programs[0].Umask != d2.Programs[0].Umask {
		t.Errorf("umask 18 (int) = %o, umask \"022\" (octal string) = %o, want equal",
			d1.Programs[0].Umask, d2.Programs[0].Umask)
	}
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("GOSUPERD_TEST_PORT", "9000")
	yml := "programs:\n  web:\n    cmd: \"/bin/sleep ${GOSUPERD_TEST_PORT}\"\n"
	doc, err := Parse([]byte(yml), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Programs[0].Cmd[1] != "9000" {
		t.Errorf("cmd = %v, want env-expanded arg 9000", doc.Programs[0].Cmd)
	}
}

func TestParseEnvExpansionDefault(t *testing.T) {
	yml := "programs:\n  web:\n    cmd: \"/bin/sleep ${GOSUPERD_UNSET_VAR:-5}\"\n"
	doc, err := Parse([]byte(yml), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Programs[0].Cmd[1] != "5" {
		t.Errorf("cmd = %v, want default arg 5", doc.Programs[0].Cmd)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
