// Package jobs creates the IoT jobs that deploy a firmware version to a device.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/jobupdate"
	"github.com/lex00/wetwire-fleet-go/internal/logging"
)

// Defaults for a deployment request.
const (
	DefaultThingName = "device-thing-1-agent"
	DefaultRegion    = "us-east-1"
	DefaultPartition = "aws"
)

// ErrNoVersion is returned when a deployment names no firmware version.
var ErrNoVersion = errors.New("firmware version is required")

// IoTClient is the subset of the IoT API used to create jobs.
type IoTClient interface {
	CreateJob(ctx context.Context, params *iot.CreateJobInput, optFns ...func(*iot.Options)) (*iot.CreateJobOutput, error)
}

// STSClient resolves the caller's account when a request names none.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var (
	_ IoTClient = (*iot.Client)(nil)
	_ STSClient = (*sts.Client)(nil)
)

// Request describes one firmware deployment.
type Request struct {
	Version   string
	ThingName string
	// JobID defaults to a random UUID.
	JobID string
	// AccountID defaults to the caller's account.
	AccountID string
	Region    string
	Partition string
	// Operation defaults to fleet.DefaultOperation.
	Operation string
}

// Job is a created deployment job.
type Job struct {
	JobID    string
	JobArn   string
	Target   string
	Document string
}

// Deployer creates deployment jobs.
type Deployer struct {
	iot IoTClient
	sts STSClient
	log log.FieldLogger
}

// NewDeployer creates a deployer. A nil logger discards output.
func NewDeployer(iotClient IoTClient, stsClient STSClient, logger log.FieldLogger) *Deployer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Deployer{iot: iotClient, sts: stsClient, log: logger}
}

// TargetArn is the ARN of the thing a job targets.
func TargetArn(partition, region, accountID, thingName string) string {
	return fmt.Sprintf("arn:%s:iot:%s:%s:thing/%s", partition, region, accountID, thingName)
}

// Document renders the job document deploying version.
func Document(operation, version string) (string, error) {
	data, err := json.Marshal(jobupdate.NewJobDocument(operation, version))
	if err != nil {
		return "", fmt.Errorf("encoding job document: %w", err)
	}
	return string(data), nil
}

// Deploy creates a job deploying req.Version to one thing, snapshot-targeted.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Job, error) {
	if req.Version == "" {
		return nil, ErrNoVersion
	}
	req = withDefaults(req)

	logger := d.log.WithField("version", req.Version)
	logger.Info("creating deployment job")

	if req.AccountID == "" {
		out, err := d.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, fmt.Errorf("resolving account: %w", err)
		}
		req.AccountID = aws.ToString(out.Account)
	}

	doc, err := Document(req.Operation, req.Version)
	if err != nil {
		return nil, err
	}
	target := TargetArn(req.Partition, req.Region, req.AccountID, req.ThingName)

	logger.WithFields(log.Fields{
		"job_id":     req.JobID,
		"account_id": req.AccountID,
		"thing_name": req.ThingName,
		"region":     req.Region,
	}).Debug("job request")

	out, err := d.iot.CreateJob(ctx, &iot.CreateJobInput{
		JobId:           aws.String(req.JobID),
		Targets:         []string{target},
		Description:     aws.String(fmt.Sprintf("Deployment to version %s", req.Version)),
		TargetSelection: types.TargetSelectionSnapshot,
		Document:        aws.String(doc),
	})
	if err != nil {
		return nil, fmt.Errorf("creating job %s: %w", req.JobID, err)
	}

	job := &Job{
		JobID:    aws.ToString(out.JobId),
		JobArn:   aws.ToString(out.JobArn),
		Target:   target,
		Document: doc,
	}
	if job.JobID == "" {
		job.JobID = req.JobID
	}
	logger.WithField("job_arn", job.JobArn).Info("created deployment job")
	return job, nil
}

func withDefaults(req Request) Request {
	if req.ThingName == "" {
		req.ThingName = DefaultThingName
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	if req.Region == "" {
		req.Region = DefaultRegion
	}
	if req.Partition == "" {
		req.Partition = DefaultPartition
	}
	if req.Operation == "" {
		req.Operation = fleet.DefaultOperation
	}
	return req
}
