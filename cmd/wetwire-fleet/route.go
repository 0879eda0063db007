package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/jobupdate"
	"github.com/lex00/wetwire-fleet-go/internal/router"
)

func newRouteCmd(opts *globalOptions) *cobra.Command {
	var (
		payloadFile string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "route <topic> [payload]",
		Short: "Simulate publishing a message through the stack's rules",
		Long: `Route publishes a message to the topic rules of the fleet stack locally and
prints every delivery. Deliveries to the job-update handler are decoded as job
execution events.

Examples:
    wetwire-fleet route '$aws/events/jobExecution/job-1/succeeded' '{"jobId":"job-1"}'
    wetwire-fleet route '$aws/events/jobExecution/job-1/succeeded' --payload-file event.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte("{}")
			switch {
			case len(args) == 2:
				payload = []byte(args[1])
			case payloadFile != "":
				data, err := os.ReadFile(payloadFile)
				if err != nil {
					return err
				}
				payload = data
			}
			return runRoute(cmd.Context(), cmd.OutOrStdout(), opts, args[0], payload, concurrency)
		},
	}

	cmd.Flags().StringVar(&payloadFile, "payload-file", "", "Read the message payload from a file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent deliveries (0 for no limit)")

	return cmd
}

func runRoute(ctx context.Context, w io.Writer, opts *globalOptions, topicName string, payload []byte, concurrency int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, tmpl, err := opts.buildTemplate()
	if err != nil {
		return err
	}

	r, err := router.FromTemplate(tmpl)
	if err != nil {
		return err
	}
	r.SetLogger(opts.logger())
	r.SetConcurrency(concurrency)

	var mu sync.Mutex
	for _, target := range r.Targets() {
		r.Bind(target, func(_ context.Context, topicName string, payload []byte) error {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "invoke %s (%d bytes)\n", target, len(payload))
			if target != fleet.HandlerFunction {
				return nil
			}
			event, err := jobupdate.ParseEvent(payload)
			if err != nil {
				fmt.Fprintf(w, "    not a job execution event: %v\n", err)
				return nil
			}
			fmt.Fprintf(w, "    job %s on %s: %s\n", event.JobID, event.ThingName(), event.Status)
			return nil
		})
	}

	deliveries, err := r.Publish(ctx, topicName, payload)
	if err != nil {
		return err
	}
	if len(deliveries) == 0 {
		fmt.Fprintf(w, "No rule matches %s\n", topicName)
		return nil
	}
	for _, d := range deliveries {
		status := "delivered"
		if !d.Invoked {
			status = fmt.Sprintf("not delivered: %v", d.Err)
		}
		fmt.Fprintf(w, "%s -> %s: %s\n", d.Rule, d.Target, status)
	}
	return nil
}
