// Command wetwire-fleet generates and checks the firmware deployment stack:
// the image repository, the job execution rule and the job-update handler.
//
// Usage:
//
//	wetwire-fleet build                  Generate CloudFormation template
//	wetwire-fleet validate               Check the fleet guarantees and lint
//	wetwire-fleet route <topic> [json]   Simulate publishing an event
//	wetwire-fleet deploy-job <version>   Create a firmware deployment job
//	wetwire-fleet version                Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "wetwire-fleet",
		Short: "Generate the firmware deployment stack",
		Long: `wetwire-fleet generates the CloudFormation stack that records firmware
deployments on IoT devices: an ECR repository for firmware images, an IoT
rule forwarding job execution events and the Lambda handler that writes the
deployed version to each device's shadow and attributes.

Settings come from wetwire-fleet.yaml in the working directory (or --config)
and WETWIRE_FLEET_* environment variables:

    wetwire-fleet build -o template.json
    WETWIRE_FLEET_THING_PREFIX=robot- wetwire-fleet validate`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./wetwire-fleet.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newListCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
		newDiffCmd(),
		newPlanCmd(opts),
		newRouteCmd(opts),
		newCheckCmd(opts),
		newDeployJobCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-fleet %s\n", getVersion())
		},
	}
}
