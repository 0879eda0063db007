// Package fleet declares the firmware deployment stack: the image repository
// firmware builds are pushed to, the IoT rule watching job execution events
// and the handler that records deployed firmware versions on each device.
package fleet

import (
	"fmt"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/topic"
	"github.com/lex00/wetwire-fleet-go/intrinsics"
	"github.com/lex00/wetwire-fleet-go/resources/ecr"
	"github.com/lex00/wetwire-fleet-go/resources/iam"
	"github.com/lex00/wetwire-fleet-go/resources/iot"
	"github.com/lex00/wetwire-fleet-go/resources/lambda"
	"github.com/lex00/wetwire-fleet-go/resources/sqs"
	"github.com/lex00/wetwire-fleet-go/stack"
)

// Logical names of the declared resources and parameters.
const (
	Repository       = "FirmwareRepository"
	HandlerRole      = "JobUpdateRole"
	HandlerFunction  = "JobUpdateFunction"
	ExecutionRule    = "JobExecutionRule"
	InvokePermission = "JobUpdateInvokePermission"
	InvokeConfig     = "JobUpdateInvokeConfig"
	DeadLetterQueue  = "JobEventDeadLetterQueue"
	ErrorActionRole  = "JobEventErrorActionRole"

	CodeBucketParam = "HandlerCodeBucket"
	CodeKeyParam    = "HandlerCodeKey"

	HandlerPolicy = "JobUpdatePolicy"
)

// Sids of the handler's identity grants.
const (
	SidReadJobDocument    = "ReadJobDocument"
	SidUpdateDeviceRecord = "UpdateDeviceRecord"
	SidSendFailedEvents   = "SendFailedEvents"
)

// Actions granted to the handler.
var (
	ReadJobDocumentActions    = []string{"iot:GetJobDocument"}
	UpdateDeviceRecordActions = []string{"iot:UpdateThingShadow", "iot:UpdateThing"}
	// SendFailedEventsAction delivers failed events to the dead letter queue.
	SendFailedEventsAction = "sqs:SendMessage"
)

// Handler environment variable names.
const (
	EnvShadowName = "SHADOW_NAME"
	EnvOperation  = "FIRMWARE_OPERATION"
	EnvLogLevel   = "LOG_LEVEL"
)

// NewStack declares the fleet stack for a configuration.
func NewStack(cfg Config) (*stack.Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := stack.New(cfg.Description)

	codeBucket := s.AddParameter(CodeBucketParam, intrinsics.Parameter{
		Type:        "String",
		Description: "S3 bucket holding the job-update handler package",
	})
	codeKey := s.AddParameter(CodeKeyParam, intrinsics.Parameter{
		Type:        "String",
		Description: "S3 key of the job-update handler package",
		Default:     cfg.Handler.CodeKey,
	})

	repo := s.AddResource(Repository, &ecr.Repository{
		RepositoryName: cfg.RepositoryName,
	})

	var queue stack.Handle
	if cfg.DeadLetter.Enabled {
		q := &sqs.Queue{
			MessageRetentionPeriod: cfg.DeadLetter.RetentionSeconds,
			SqsManagedSseEnabled:   true,
		}
		if cfg.DeadLetter.QueueName != "" {
			q.QueueName = cfg.DeadLetter.QueueName
		}
		queue = s.AddResource(DeadLetterQueue, q)
	}

	role := s.AddResource(HandlerRole, &iam.Role{
		Description:              "Execution role of the job-update handler",
		AssumeRolePolicyDocument: assumeRolePolicy("lambda.amazonaws.com"),
		ManagedPolicyArns: []any{
			intrinsics.ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole"),
		},
		Policies: []any{
			iam.Role_Policy{
				PolicyName:     HandlerPolicy,
				PolicyDocument: handlerPolicy(cfg, queue),
			},
		},
	})

	fn := s.AddResource(HandlerFunction, &lambda.Function{
		Description:   "Records the firmware version of completed deployment jobs on each device",
		Runtime:       cfg.Handler.Runtime,
		Handler:       cfg.Handler.Handler,
		Architectures: []string{cfg.Handler.Architecture},
		Code: lambda.Function_Code{
			S3Bucket: codeBucket,
			S3Key:    codeKey,
		},
		Role:       role.GetAtt(iam.AttrArn),
		Timeout:    cfg.Handler.Timeout,
		MemorySize: cfg.Handler.MemorySize,
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{
				EnvShadowName: cfg.Handler.ShadowName,
				EnvOperation:  cfg.Handler.Operation,
				EnvLogLevel:   cfg.Handler.LogLevel,
			},
		},
	})

	payload := iot.TopicRule_TopicRulePayload{
		Sql:              topic.SelectAllFrom(cfg.TopicFilter),
		AwsIotSqlVersion: cfg.SqlVersion,
		Actions: []iot.TopicRule_Action{
			{Lambda: &iot.TopicRule_LambdaAction{FunctionArn: fn.GetAtt(lambda.AttrArn)}},
		},
	}
	if cfg.DeadLetter.Enabled {
		errorRole := s.AddResource(ErrorActionRole, &iam.Role{
			Description:              "Lets the job execution rule deliver failed events to the dead letter queue",
			AssumeRolePolicyDocument: assumeRolePolicy("iot.amazonaws.com"),
			Policies: []any{
				iam.Role_Policy{
					PolicyName: "SendToDeadLetterQueue",
					PolicyDocument: intrinsics.NewPolicyDocument(
						intrinsics.Allow(SidSendFailedEvents, queue.GetAtt(sqs.AttrArn), SendFailedEventsAction),
					),
				},
			},
		})
		payload.ErrorAction = &iot.TopicRule_Action{
			Sqs: &iot.TopicRule_SqsAction{
				QueueUrl: queue.Ref(),
				RoleArn:  errorRole.GetAtt(iam.AttrArn),
			},
		}
	}
	rule := s.AddResource(ExecutionRule, &iot.TopicRule{
		RuleName:         cfg.RuleName,
		TopicRulePayload: payload,
	})

	permission := &lambda.Permission{
		FunctionName: fn.GetAtt(lambda.AttrArn),
		Action:       "lambda:InvokeFunction",
		Principal:    "iot.amazonaws.com",
	}
	if cfg.RestrictInvokeToRule {
		permission.SourceArn = rule.GetAtt(iot.AttrArn)
		permission.SourceAccount = intrinsics.AWS_ACCOUNT_ID
	}
	s.AddResource(InvokePermission, permission)

	if cfg.Retry.Enabled || cfg.DeadLetter.Enabled {
		invokeConfig := &lambda.EventInvokeConfig{
			FunctionName: fn.Ref(),
			Qualifier:    "$LATEST",
		}
		if cfg.Retry.Enabled {
			invokeConfig.MaximumRetryAttempts = intrinsics.IntPtr(cfg.Retry.MaxAttempts)
			invokeConfig.MaximumEventAgeInSeconds = intrinsics.IntPtr(cfg.Retry.MaxEventAgeSeconds)
		}
		if cfg.DeadLetter.Enabled {
			invokeConfig.DestinationConfig = &lambda.EventInvokeConfig_DestinationConfig{
				OnFailure: &lambda.EventInvokeConfig_OnFailure{Destination: queue.GetAtt(sqs.AttrArn)},
			}
		}
		s.AddResource(InvokeConfig, invokeConfig)
	}

	s.AddOutput("RepositoryUri", wetwire.Output{
		Description: "URI to push firmware images to",
		Value:       repo.GetAtt(ecr.AttrRepositoryUri),
	})
	s.AddOutput("HandlerFunctionArn", wetwire.Output{
		Description: "ARN of the job-update handler",
		Value:       fn.GetAtt(lambda.AttrArn),
	})
	s.AddOutput("JobExecutionRuleArn", wetwire.Output{
		Description: "ARN of the job execution topic rule",
		Value:       rule.GetAtt(iot.AttrArn),
	})
	if cfg.DeadLetter.Enabled {
		s.AddOutput("DeadLetterQueueUrl", wetwire.Output{
			Description: "Queue receiving events the handler could not process",
			Value:       queue.Ref(),
		})
	}

	return s, nil
}

// Build declares and builds the fleet template.
func Build(cfg Config) (*wetwire.Template, error) {
	s, err := NewStack(cfg)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("building fleet stack: %w", err)
	}
	return tmpl, nil
}

// ThingArnPattern is the resource pattern of the things the handler may update.
func ThingArnPattern(cfg Config) string {
	return intrinsics.ArnString(intrinsics.ArnComponents{
		Service:      "iot",
		Resource:     "thing",
		ResourceName: cfg.ThingPrefix + "*",
	})
}

// JobDocumentResource is the resource pattern of the job documents the
// handler may read: "*" or the ARN of the jobs with the configured prefix.
func JobDocumentResource(cfg Config) string {
	if cfg.JobDocumentScope == "*" {
		return "*"
	}
	return intrinsics.ArnString(intrinsics.ArnComponents{
		Service:      "iot",
		Resource:     "job",
		ResourceName: cfg.JobDocumentScope + "*",
	})
}

func handlerPolicy(cfg Config, queue stack.Handle) intrinsics.PolicyDocument {
	var jobDocuments any = "*"
	if cfg.JobDocumentScope != "*" {
		jobDocuments = intrinsics.Sub{String: JobDocumentResource(cfg)}
	}

	statements := []any{
		intrinsics.Allow(SidReadJobDocument, jobDocuments, ReadJobDocumentActions...),
		intrinsics.Allow(SidUpdateDeviceRecord, intrinsics.Sub{String: ThingArnPattern(cfg)}, UpdateDeviceRecordActions...),
	}
	if cfg.DeadLetter.Enabled {
		statements = append(statements,
			intrinsics.Allow(SidSendFailedEvents, queue.GetAtt(sqs.AttrArn), SendFailedEventsAction))
	}
	return intrinsics.NewPolicyDocument(statements...)
}

func assumeRolePolicy(service string) intrinsics.PolicyDocument {
	return intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
		Effect:    "Allow",
		Principal: intrinsics.ServicePrincipal{service},
		Action:    "sts:AssumeRole",
	})
}
