package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manwithacat/dazzle-sub014/pkg/ruleset"
)

var lintFlags struct {
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate entity definition files",
	Long: `Validate entity definition files for syntax and semantic errors.

The lint command compiles a definition directory exactly the way the
server does:
  - YAML syntax validation
  - Field and relation declarations (cross-file targets included)
  - Condition parsing and type checking
  - Access rule, invariant, and state machine structure

Examples:
  # Lint a definition directory
  dazzle lint --dir definitions/

  # JSON output for CI/CD
  dazzle lint --dir definitions/ --format json`,
	RunE: lintDefinitions,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "definitions", "directory of definition files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

type lintResult struct {
	Valid    bool     `json:"valid"`
	Entities []string `json:"entities,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func lintDefinitions(cmd *cobra.Command, args []string) error {
	loader, err := ruleset.NewLoader(nil, nil)
	if err != nil {
		return err
	}

	result := lintResult{Valid: true}
	entities, loadErr := loader.LoadDir(lintFlags.dir)
	if loadErr != nil {
		result.Valid = false
		result.Error = loadErr.Error()
	} else {
		for _, e := range entities {
			result.Entities = append(result.Entities, e.Name)
		}
	}

	if lintFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Printf("%d entity definition(s) valid:\n", len(result.Entities))
		for _, name := range result.Entities {
			fmt.Printf("  %s\n", name)
		}
	} else {
		fmt.Fprintf(os.Stderr, "validation failed: %s\n", result.Error)
	}

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}
