// Package lambda contains CloudFormation resource types for AWS Lambda.
package lambda

// Function is an AWS::Lambda::Function.
type Function struct {
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Description   string                `json:"Description,omitempty"`
	Runtime       string                `json:"Runtime,omitempty"`
	Handler       string                `json:"Handler,omitempty"`
	Architectures []string              `json:"Architectures,omitempty"`
	Code          Function_Code         `json:"Code"`
	Role          any                   `json:"Role"`
	Timeout       int                   `json:"Timeout,omitempty"`
	MemorySize    int                   `json:"MemorySize,omitempty"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
	Tags          []any                 `json:"Tags,omitempty"`
}

// Function_Code locates the deployment package.
type Function_Code struct {
	S3Bucket any    `json:"S3Bucket,omitempty"`
	S3Key    any    `json:"S3Key,omitempty"`
	ImageUri any    `json:"ImageUri,omitempty"`
	ZipFile  string `json:"ZipFile,omitempty"`
}

// Function_Environment holds environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Attributes available through Fn::GetAtt.
const (
	AttrArn = "Arn"
)
