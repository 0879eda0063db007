package lambda

// Permission is an AWS::Lambda::Permission granting a principal invoke rights.
type Permission struct {
	FunctionName  any    `json:"FunctionName"`
	Action        string `json:"Action"`
	Principal     string `json:"Principal"`
	SourceArn     any    `json:"SourceArn,omitempty"`
	SourceAccount any    `json:"SourceAccount,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Permission) ResourceType() string {
	return "AWS::Lambda::Permission"
}

// EventInvokeConfig is an AWS::Lambda::EventInvokeConfig controlling
// asynchronous invocation retries and failure destinations.
type EventInvokeConfig struct {
	FunctionName             any                                  `json:"FunctionName"`
	Qualifier                string                               `json:"Qualifier"`
	MaximumRetryAttempts     *int                                 `json:"MaximumRetryAttempts,omitempty"`
	MaximumEventAgeInSeconds *int                                 `json:"MaximumEventAgeInSeconds,omitempty"`
	DestinationConfig        *EventInvokeConfig_DestinationConfig `json:"DestinationConfig,omitempty"`
}

// EventInvokeConfig_DestinationConfig routes invocation results.
type EventInvokeConfig_DestinationConfig struct {
	OnFailure *EventInvokeConfig_OnFailure `json:"OnFailure,omitempty"`
}

// EventInvokeConfig_OnFailure is the destination for failed events.
type EventInvokeConfig_OnFailure struct {
	Destination any `json:"Destination"`
}

// ResourceType returns the CloudFormation type.
func (EventInvokeConfig) ResourceType() string {
	return "AWS::Lambda::EventInvokeConfig"
}
