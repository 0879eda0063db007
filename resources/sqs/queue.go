// Package sqs contains CloudFormation resource types for Amazon SQS.
package sqs

// Queue is an AWS::SQS::Queue. Ref returns the queue URL.
type Queue struct {
	QueueName              any   `json:"QueueName,omitempty"`
	MessageRetentionPeriod int   `json:"MessageRetentionPeriod,omitempty"`
	SqsManagedSseEnabled   bool  `json:"SqsManagedSseEnabled,omitempty"`
	Tags                   []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Queue) ResourceType() string {
	return "AWS::SQS::Queue"
}

// Attributes available through Fn::GetAtt.
const (
	AttrArn       = "Arn"
	AttrQueueName = "QueueName"
)
