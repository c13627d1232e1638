package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/gosuper/gosuperd/internal/supervisor"
)

// runShell drives the interactive operator console: one command per line,
// whitespace-separated, read until EOF or an exit/quit command. onExit is
// called exactly once, after the loop ends, to tear the daemon down.
func runShell(registry *supervisor.Registry, log *slog.Logger, onExit func()) {
	ctx := context.Background()
	fmt.Println("gosuperd shell. Type 'help' for a list of commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("gosuperd> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		cmdArgs := fields[1:]

		switch cmd {
		case "exit", "quit":
			fmt.Println("bye")
			onExit()
			return
		case "help":
			printHelp()
		case "status":
			printStatus(registry)
		case "start":
			runTargetedCommand(ctx, registry, cmdArgs, "start", registry.Start, registry.StartAll)
		case "stop":
			runTargetedCommand(ctx, registry, cmdArgs, "stop", registry.Stop, registry.StopAll)
		case "restart":
			runRestart(ctx, registry, cmdArgs)
		case "reload":
			go func() {
				changed, err := registry.Reload(ctx, "")
				if err != nil {
					log.Error("reload failed", "error", err)
					return
				}
				if changed {
					log.Info("configuration reloaded")
				} else {
					log.Info("no configuration changes detected")
				}
			}()
			fmt.Println("reload started in the background")
		default:
			fmt.Printf("unknown command: %s (type 'help' for a list of commands)\n", cmd)
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Error("shell input error", "error", err)
	}
	onExit()
}

func printHelp() {
	fmt.Println(`available commands:
  status              show the state of every program instance
  start   <name|all>  start a program (or every program)
  stop    <name|all>  stop a program (or every program)
  restart <name|all>  stop then start a program (or every program)
  reload               reload the configuration file in the background
  help                 show this message
  exit, quit           stop every program and leave`)
}

func printStatus(registry *supervisor.Registry) {
	status := registry.Status()
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Println("no programs configured")
		return
	}
	for _, name := range names {
		for _, st := range status[name] {
			fmt.Printf("%-20s %-10s pid=%-8d retries=%-3d exit=%d\n",
				st.ID, st.State, st.PID, st.RestartAttempts, st.ExitCode)
		}
	}
}

// runTargetedCommand dispatches a start/stop command against a single
// program name or, when the target is "all", every configured program.
func runTargetedCommand(ctx context.Context, registry *supervisor.Registry, args []string, verb string,
	single func(context.Context, string) (bool, error), all func(context.Context)) {

	if len(args) != 1 {
		fmt.Printf("usage: %s <name|all>\n", verb)
		return
	}
	target := args[0]
	if target == "all" {
		all(ctx)
		fmt.Printf("%sed all programs\n", verb)
		return
	}
	ok, err := single(ctx, target)
	if err != nil {
		fmt.Printf("%s %s: %v\n", verb, target, err)
		return
	}
	if ok {
		fmt.Printf("%s %s: ok\n", verb, target)
	} else {
		fmt.Printf("%s %s: no action taken\n", verb, target)
	}
}

func runRestart(ctx context.Context, registry *supervisor.Registry, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: restart <name|all>")
		return
	}
	target := args[0]
	if target == "all" {
		for _, name := range registry.Names() {
			if err := registry.Restart(ctx, name); err != nil {
				fmt.Printf("restart %s: %v\n", name, err)
			}
		}
		fmt.Println("restarted all programs")
		return
	}
	if err := registry.Restart(ctx, target); err != nil {
		fmt.Printf("restart %s: %v\n", target, err)
		return
	}
	fmt.Printf("restart %s: ok\n", target)
}
