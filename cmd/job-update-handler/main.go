// Command job-update-handler is the Lambda function invoked by the job
// execution rule. It records the deployed firmware version on the device.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	fleetconfig "github.com/lex00/wetwire-fleet-go/internal/config"
	"github.com/lex00/wetwire-fleet-go/internal/jobupdate"
	"github.com/lex00/wetwire-fleet-go/internal/logging"
)

func main() {
	settings := fleetconfig.LoadHandler()

	logger, err := logging.New(settings.LogLevel, logging.FormatJSON, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.WithError(err).Fatal("loading AWS config")
	}

	h := &jobupdate.Handler{
		IoT:        iot.NewFromConfig(cfg),
		Data:       iotdataplane.NewFromConfig(cfg),
		ShadowName: settings.ShadowName,
		Operation:  settings.Operation,
		Log:        logger,
	}

	lambda.Start(h.Invoke)
}
