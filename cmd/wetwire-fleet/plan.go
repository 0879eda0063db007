package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-fleet-go/internal/differ"
)

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "plan <previous>",
		Short: "Show what a rebuild would change in a previous template",
		Long: `Plan builds the fleet stack and diffs it against a previously generated
template. Rebuilding from an unchanged configuration prints "No changes".

Examples:
    wetwire-fleet plan template.json
    wetwire-fleet plan template.json --exit-code   # exit 1 when changed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.OutOrStdout(), opts, args[0], outputFormat, ignoreOrder, exitCode)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when the templates differ")

	return cmd
}

func runPlan(w io.Writer, opts *globalOptions, previous, format string, ignoreOrder, exitCode bool) error {
	before, err := differ.LoadTemplate(previous)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", previous, err)
	}
	_, after, err := opts.buildTemplate()
	if err != nil {
		return err
	}

	result, err := differ.Compare(before, after, differ.Options{IgnoreOrder: ignoreOrder})
	if err != nil {
		return err
	}
	if err := outputDiffResult(w, result, format); err != nil {
		return err
	}
	if exitCode && !result.Empty() {
		return fmt.Errorf("%d changes", result.Summary.Total)
	}
	return nil
}
