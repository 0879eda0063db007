package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/template"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate CloudFormation template for the fleet stack",
		Long: `Build declares the fleet stack from the configuration and generates a template.

Examples:
    wetwire-fleet build
    wetwire-fleet build -o template.json
    wetwire-fleet build --format yaml -c fleet.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.OutOrStdout(), opts, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(w io.Writer, opts *globalOptions, format, outputFile string) error {
	_, tmpl, err := opts.buildTemplate()
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return writeTemplate(w, tmpl, format, outputFile)
}

// encodeTemplate renders a template as json or yaml.
func encodeTemplate(tmpl *wetwire.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func writeTemplate(w io.Writer, tmpl *wetwire.Template, format, outputFile string) error {
	data, err := encodeTemplate(tmpl, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprintln(w, string(data))
		return nil
	}

	return os.WriteFile(outputFile, data, 0644)
}
