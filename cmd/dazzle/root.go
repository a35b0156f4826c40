package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dazzle",
	Short: "Dazzle - declarative rule and policy evaluation service",
	Long: `Dazzle evaluates declarative rules against entity records: Cedar-style
access policies (forbid overrides permit, default deny), cross-field
invariants, and guarded state machine transitions.

Entity behavior is declared in YAML definition files with conditions
written in a small typed expression language. The service compiles the
definitions, hot-reloads them on change, serves decisions over HTTP,
and records every decision in an audit log.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
