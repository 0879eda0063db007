// Package iot contains CloudFormation resource types for AWS IoT Core.
package iot

// TopicRule is an AWS::IoT::TopicRule.
type TopicRule struct {
	RuleName         string                     `json:"RuleName,omitempty"`
	TopicRulePayload TopicRule_TopicRulePayload `json:"TopicRulePayload"`
	Tags             []any                      `json:"Tags,omitempty"`
}

// TopicRule_TopicRulePayload is the SQL statement and the actions it triggers.
type TopicRule_TopicRulePayload struct {
	Sql              string             `json:"Sql"`
	AwsIotSqlVersion string             `json:"AwsIotSqlVersion,omitempty"`
	Description      string             `json:"Description,omitempty"`
	RuleDisabled     bool               `json:"RuleDisabled,omitempty"`
	Actions          []TopicRule_Action `json:"Actions"`
	ErrorAction      *TopicRule_Action  `json:"ErrorAction,omitempty"`
}

// TopicRule_Action is one rule action. Exactly one field is set.
type TopicRule_Action struct {
	Lambda    *TopicRule_LambdaAction    `json:"Lambda,omitempty"`
	Sqs       *TopicRule_SqsAction       `json:"Sqs,omitempty"`
	Republish *TopicRule_RepublishAction `json:"Republish,omitempty"`
}

// TopicRule_LambdaAction invokes a Lambda function with the matched message.
type TopicRule_LambdaAction struct {
	FunctionArn any `json:"FunctionArn"`
}

// TopicRule_SqsAction sends the message to an SQS queue.
type TopicRule_SqsAction struct {
	QueueUrl  any  `json:"QueueUrl"`
	RoleArn   any  `json:"RoleArn"`
	UseBase64 bool `json:"UseBase64,omitempty"`
}

// TopicRule_RepublishAction republishes the message to another topic.
type TopicRule_RepublishAction struct {
	Topic   string `json:"Topic"`
	RoleArn any    `json:"RoleArn"`
	Qos     int    `json:"Qos,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (TopicRule) ResourceType() string {
	return "AWS::IoT::TopicRule"
}

// AttrArn is the rule ARN attribute.
const AttrArn = "Arn"
