package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/policy"
	"github.com/lex00/wetwire-fleet-go/internal/simulate"
)

type checkOptions struct {
	function  string
	remote    bool
	partition string
	region    string
	accountID string
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	env := policy.DefaultEnv()
	checkOpts := checkOptions{
		function:  fleet.HandlerFunction,
		partition: env.Partition,
		region:    env.Region,
		accountID: env.AccountID,
	}

	cmd := &cobra.Command{
		Use:   "check <action> <resource>",
		Short: "Check whether the handler may perform an action",
		Long: `Check evaluates the handler role's grants for one request. Pseudo-parameters
in the grants resolve against --partition, --region and --account.

By default the grants are evaluated offline. With --remote the role's policy
is sent to the IAM policy simulator using the default AWS credentials.

Examples:
    wetwire-fleet check iot:UpdateThingShadow arn:aws:iot:us-east-1:123456789012:thing/device-thing-7
    wetwire-fleet check iot:UpdateThing arn:aws:iot:us-east-1:123456789012:thing/other --remote`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts, checkOpts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&checkOpts.function, "function", checkOpts.function, "Logical name of the function to check")
	cmd.Flags().BoolVar(&checkOpts.remote, "remote", false, "Use the IAM policy simulator")
	cmd.Flags().StringVar(&checkOpts.partition, "partition", checkOpts.partition, "AWS partition")
	cmd.Flags().StringVar(&checkOpts.region, "region", checkOpts.region, "AWS region")
	cmd.Flags().StringVar(&checkOpts.accountID, "account", checkOpts.accountID, "AWS account ID")

	return cmd
}

func runCheck(ctx context.Context, w io.Writer, opts *globalOptions, checkOpts checkOptions, action, resource string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, tmpl, err := opts.buildTemplate()
	if err != nil {
		return err
	}
	grants, err := policy.GrantsFor(tmpl, checkOpts.function)
	if err != nil {
		return err
	}

	env := policy.DefaultEnv()
	env.Partition = checkOpts.partition
	env.Region = checkOpts.region
	env.AccountID = checkOpts.accountID

	if checkOpts.remote {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(checkOpts.region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		decision, err := simulate.New(iam.NewFromConfig(awsCfg), env).Check(ctx, grants, action, resource)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s on %s: %s (IAM policy simulator)\n", action, resource, decision)
		return nil
	}

	result := policy.Evaluate(grants.Identity, env, action, resource)
	fmt.Fprintf(w, "%s on %s: %s\n", action, resource, result.Decision)
	if result.Matched != nil {
		fmt.Fprintf(w, "    matched %s (%s)\n", result.Matched.Sid, result.Matched.Source)
	}
	return nil
}
