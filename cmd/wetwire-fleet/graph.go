package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/differ"
	"github.com/lex00/wetwire-fleet-go/internal/graph"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph [template]",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies of the
fleet stack, or of an existing template file when one is given.

The output can be rendered with Graphviz:
    wetwire-fleet graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    wetwire-fleet graph -f mermaid

Examples:
    wetwire-fleet graph
    wetwire-fleet graph -p                  # include parameters
    wetwire-fleet graph -c                  # cluster by service
    wetwire-fleet graph deployed.json       # graph a template file`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.OutOrStdout(), opts, args, outputFormat, includeParameters, clusterByType)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "C", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(w io.Writer, opts *globalOptions, args []string, format string, includeParams, cluster bool) error {
	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	var (
		tmpl *wetwire.Template
		err  error
	)
	if len(args) == 1 {
		tmpl, err = differ.LoadTemplate(args[0])
	} else {
		_, tmpl, err = opts.buildTemplate()
	}
	if err != nil {
		return err
	}
	if len(tmpl.Resources) == 0 {
		return fmt.Errorf("no resources found")
	}

	gen := &graph.Generator{
		Format:            graphFormat,
		IncludeParameters: includeParams,
		ClusterByType:     cluster,
	}

	return gen.Generate(tmpl, w)
}
