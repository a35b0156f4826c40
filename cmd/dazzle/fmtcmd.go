package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <expression>",
	Short: "Parse and pretty-print an expression",
	Long: `Parse an expression and print its canonical form, or report the
parse error with its position.

Examples:
  dazzle fmt 'amount>0 and status in ["draft","open"]'
  dazzle fmt 'if total > 100 then total * 0.9 else total'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := strings.Join(args, " ")
		node, err := expr.Parse(src)
		if err != nil {
			return err
		}
		fmt.Println(expr.Format(node))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
}
