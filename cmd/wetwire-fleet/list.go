package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources",
		Long: `List displays the resources the fleet stack declares for the configuration.

Examples:
    wetwire-fleet list
    wetwire-fleet list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), opts, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(w io.Writer, opts *globalOptions, format string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	s, err := fleet.NewStack(cfg)
	if err != nil {
		return err
	}
	resources, err := s.Resources()
	if err != nil {
		return err
	}

	listResult := wetwire.ListResult{
		Resources: make([]wetwire.ListResource, 0, len(resources)),
	}
	for name, res := range resources {
		listResult.Resources = append(listResult.Resources, wetwire.ListResource{
			Name:   name,
			Type:   res.Type,
			CFType: res.CFType,
			File:   res.File,
			Line:   res.Line,
		})
	}

	// Sort by name for consistent output
	sort.Slice(listResult.Resources, func(i, j int) bool {
		return listResult.Resources[i].Name < listResult.Resources[j].Name
	})

	return outputListResult(w, listResult, format)
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Declared resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.CFType)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
