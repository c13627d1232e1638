package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// rawDocument is the on-disk shape: either "programs" (map keyed by name) or
// "services" (list with an embedded "name" field). Both normalize to the
// same []ProgramConfig.
type rawDocument struct {
	Programs map[string]rawProgram `yaml:"programs"`
	Services []rawProgram          `yaml:"services"`
	Email    map[string]any        `yaml:"email"`
}

type rawProgram struct {
	Name         string            `yaml:"name"`
	Cmd          string            `yaml:"cmd"`
	NumProcs     int               `yaml:"numprocs"`
	WorkingDir   string            `yaml:"workingdir"`
	Umask        any               `yaml:"umask"`
	Env          map[string]string `yaml:"env"`
	Stdout       string            `yaml:"stdout"`
	Stderr       string            `yaml:"stderr"`
	User         string            `yaml:"user"`
	Autostart    bool              `yaml:"autostart"`
	Autorestart  string            `yaml:"autorestart"`
	ExitCodes    []int             `yaml:"exitcodes"`
	StartRetries int               `yaml:"startretries"`
	StartTime    *int              `yaml:"starttime"`
	StopSignal   string            `yaml:"stopsignal"`
	StopTime     *int              `yaml:"stoptime"`
}

// Load reads path, expands ${VAR} references against the process
// environment, parses either config surface form, and returns a fully
// validated, defaulted Document. logger may be nil; it is only used to warn
// about non-fatal issues (e.g. a missing working directory).
func Load(path string, logger *slog.Logger) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw, logger)
}

// Parse parses raw YAML bytes (already read from disk or supplied by a
// test) into a validated Document.
func Parse(raw []byte, logger *slog.Logger) (*Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty configuration")
	}

	expanded := expandEnv(string(raw))

	var doc rawDocument
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if len(doc.Programs) == 0 && len(doc.Services) == 0 {
		return nil, fmt.Errorf("configuration must declare 'programs' (map) or 'services' (list)")
	}
	if len(doc.Programs) > 0 && len(doc.Services) > 0 {
		return nil, fmt.Errorf("configuration must declare only one of 'programs' or 'services', not both")
	}

	var rawPrograms []rawProgram
	if len(doc.Programs) > 0 {
		names := make([]string, 0, len(doc.Programs))
		for name := range doc.Programs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := doc.Programs[name]
			p.Name = name
			rawPrograms = append(rawPrograms, p)
		}
	} else {
		rawPrograms = doc.Services
	}

	seen := make(map[string]bool, len(rawPrograms))
	programs := make([]ProgramConfig, 0, len(rawPrograms))
	for _, rp := range rawPrograms {
		pc, err := normalize(rp, logger)
		if err != nil {
			return nil, err
		}
		if seen[pc.Name] {
			return nil, fmt.Errorf("duplicate program name %q", pc.Name)
		}
		seen[pc.Name] = true
		programs = append(programs, pc)
	}

	return &Document{Programs: programs, Email: doc.Email}, nil
}

func normalize(rp rawProgram, logger *slog.Logger) (ProgramConfig, error) {
	if rp.Name == "" {
		return ProgramConfig{}, fmt.Errorf("program name must not be empty")
	}
	if rp.Cmd == "" {
		return ProgramConfig{}, fmt.Errorf("program %q: cmd must not be empty", rp.Name)
	}
	argv, err := tokenizeCommand(rp.Cmd)
	if err != nil {
		return ProgramConfig{}, fmt.Errorf("program %q: %w", rp.Name, err)
	}

	numProcs := rp.NumProcs
	if numProcs == 0 {
		numProcs = 1
	}
	if numProcs < 1 || numProcs > 32 {
		return ProgramConfig{}, fmt.Errorf("program %q: numprocs must be in [1,32], got %d", rp.Name, numProcs)
	}

	umask, err := parseUmask(rp.Umask)
	if err != nil {
		return ProgramConfig{}, fmt.Errorf("program %q: %w", rp.Name, err)
	}

	workingDir := rp.WorkingDir
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	} else if info, statErr := os.Stat(workingDir); statErr != nil || !info.IsDir() {
		if logger != nil {
			logger.Warn("working directory does not exist, falling back to supervisor cwd",
				"program", rp.Name, "workingdir", workingDir)
		}
		workingDir, _ = os.Getwd()
	}

	autorestart := AutorestartMode(rp.Autorestart)
	switch autorestart {
	case "":
		autorestart = AutorestartNever
	case AutorestartNever, AutorestartUnexpected, AutorestartAlways:
	default:
		return ProgramConfig{}, fmt.Errorf("program %q: autorestart must be one of never|unexpected|always, got %q", rp.Name, rp.Autorestart)
	}

	exitCodes := rp.ExitCodes
	if len(exitCodes) == 0 {
		exitCodes = []int{0}
	}

	if rp.StartRetries < 0 {
		return ProgramConfig{}, fmt.Errorf("program %q: startretries must be >= 0", rp.Name)
	}

	startTime := 1
	if rp.StartTime != nil {
		startTime = *rp.StartTime
	}
	if startTime < 0 {
		return ProgramConfig{}, fmt.Errorf("program %q: starttime must be >= 0", rp.Name)
	}

	stopTime := 5
	if rp.StopTime != nil {
		stopTime = *rp.StopTime
	}
	if stopTime < 0 {
		return ProgramConfig{}, fmt.Errorf("program %q: stoptime must be >= 0", rp.Name)
	}

	stopSignal := rp.StopSignal
	if stopSignal == "" {
		stopSignal = "TERM"
	}

	return ProgramConfig{
		Name:         rp.Name,
		Cmd:          argv,
		CmdRaw:       rp.Cmd,
		NumProcs:     numProcs,
		WorkingDir:   workingDir,
		Umask:        umask,
		Env:          rp.Env,
		Stdout:       rp.Stdout,
		Stderr:       rp.Stderr,
		User:         rp.User,
		Autostart:    rp.Autostart,
		Autorestart:  autorestart,
		ExitCodes:    exitCodes,
		StartRetries: rp.StartRetries,
		StartTime:    startTime,
		StopSignal:   stopSignal,
		StopTime:     stopTime,
	}, nil
}

// parseUmask accepts either an integer or a string parsed as base-8, per §6.
func parseUmask(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0o22, nil
	case int:
		return validateUmaskRange(val)
	case string:
		if val == "" {
			return 0o22, nil
		}
		n, err := strconv.ParseInt(val, 8, 32)
		if err != nil {
			return 0, fmt.Errorf("umask %q is not a valid octal value", val)
		}
		return validateUmaskRange(int(n))
	default:
		return 0, fmt.Errorf("umask must be an integer or a string, got %T", v)
	}
}

func validateUmaskRange(n int) (int, error) {
	if n < 0 || n > 0o777 {
		return 0, fmt.Errorf("umask must be between 0 and 0o777, got %o", n)
	}
	return n, nil
}
