package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "gosuperd",
	Short:   "Job-control supervisor for long-running processes",
	Version: version,
	Long: `gosuperd supervises a set of long-running programs: it starts them,
restarts them according to policy when they exit, and reloads its
configuration without disturbing programs that did not change.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "file", "f", "", "alias for --config")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "loglevel", "l", "INFO", "log level: DEBUG|INFO|WARNING|ERROR|CRITICAL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

// configPath resolves the configured path, falling back to the default the
// original job-control daemon shipped with.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "./config_examples/valid.yml"
}
