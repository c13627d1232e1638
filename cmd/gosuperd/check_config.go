package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gosuper/gosuperd/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Parse and validate the configuration file without starting anything",
	Run:   runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) {
	path := configPath()
	doc, err := config.Load(path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("configuration valid: %s\n", path)
	fmt.Printf("programs: %d\n", len(doc.Programs))
	for _, p := range doc.Programs {
		fmt.Printf("  - %s: numprocs=%d autostart=%v autorestart=%s\n",
			p.Name, p.NumProcs, p.Autostart, p.Autorestart)
	}
}
