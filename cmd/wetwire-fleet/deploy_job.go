package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-fleet-go/internal/jobs"
)

func newDeployJobCmd(opts *globalOptions) *cobra.Command {
	var req jobs.Request

	cmd := &cobra.Command{
		Use:   "deploy-job <version>",
		Short: "Create an IoT job deploying a firmware version",
		Long: `Deploy-job creates a snapshot IoT job that tells one device to install a
firmware version. When the job completes, the job-update handler records the
version on the device.

Examples:
    wetwire-fleet deploy-job 1.4.0
    wetwire-fleet deploy-job 1.4.0 --thing-name device-thing-7 --region eu-west-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Version = args[0]
			return runDeployJob(cmd.Context(), cmd.OutOrStdout(), opts, req)
		},
	}

	cmd.Flags().StringVar(&req.ThingName, "thing-name", jobs.DefaultThingName, "Thing to deploy to")
	cmd.Flags().StringVar(&req.JobID, "job-id", "", "Job ID (default: random UUID)")
	cmd.Flags().StringVar(&req.AccountID, "account-id", "", "AWS account ID (default: caller's account)")
	cmd.Flags().StringVar(&req.Region, "region", jobs.DefaultRegion, "AWS region")

	return cmd
}

func runDeployJob(ctx context.Context, w io.Writer, opts *globalOptions, req jobs.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	req.Operation = cfg.Handler.Operation

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(req.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	deployer := jobs.NewDeployer(iot.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), opts.logger())
	job, err := deployer.Deploy(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Created job %s\n", job.JobID)
	fmt.Fprintf(w, "  arn:      %s\n", job.JobArn)
	fmt.Fprintf(w, "  target:   %s\n", job.Target)
	fmt.Fprintf(w, "  document: %s\n", job.Document)
	return nil
}
