package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

// newValidateCmd creates the "validate" subcommand for checking the built stack.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		skipLint     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the fleet stack",
		Long: `Validate builds the fleet stack and checks it.

Checks performed:
  - One image repository with the configured name
  - One job execution rule forwarding every event to the handler
  - Handler grants: invocation by IoT, job document reads, device updates
    limited to the thing prefix
  - cfn-lint rules (unless --skip-lint)

Examples:
    wetwire-fleet validate
    wetwire-fleet validate --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts, outputFormat, skipLint)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Only run the fleet checks")

	return cmd
}

func runValidate(w io.Writer, opts *globalOptions, format string, skipLint bool) error {
	cfg, tmpl, err := opts.buildTemplate()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var result *wetwire.ValidateResult
	if skipLint {
		check := validation.CheckFleet(tmpl, cfg)
		result = &wetwire.ValidateResult{
			Success:   check.Passed(),
			Resources: len(tmpl.Resources),
			Errors:    check.Errors,
			Warnings:  check.Warnings,
		}
	} else {
		result, err = validation.Validate(tmpl, cfg)
		if err != nil {
			return err
		}
	}

	return outputValidateResult(w, *result, format)
}

func outputValidateResult(w io.Writer, result wetwire.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
		} else {
			fmt.Fprintln(w, "Validation FAILED:")
			for _, errMsg := range result.Errors {
				fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
			}
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}
