// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds IAM policy and ARN helpers used by the fleet stack.
//
// Core intrinsic functions:
//
//	Ref{"JobUpdateFunction"} → {"Ref": "JobUpdateFunction"}
//	Sub{"${AWS::StackName}-job-update"} → {"Fn::Sub": "${AWS::StackName}-job-update"}
//	Join{"", []any{"arn:", AWS_PARTITION}} → {"Fn::Join": ["", ["arn:", {"Ref": "AWS::Partition"}]]}
package intrinsics

import (
	"encoding/json"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Parameter defines a CloudFormation template parameter.
// When used as a value in resource properties, it serializes to {"Ref": "ParameterName"}.
//
// Example:
//
//	var CodeBucket = Parameter{
//	    Type:        "String",
//	    Description: "S3 bucket holding the handler bundle",
//	}
type Parameter struct {
	// Type is the CloudFormation parameter type (String, Number, ...)
	Type string
	// Description is optional documentation for the parameter
	Description string
	// Default is the default value if none is provided
	Default any
	// AllowedValues restricts the parameter to specific values
	AllowedValues []any
	// AllowedPattern is a regex pattern for String type validation
	AllowedPattern string
	// ConstraintDescription explains validation failures
	ConstraintDescription string

	// name is set on registration to enable Ref serialization
	name string
}

// SetName sets the parameter name for Ref serialization.
func (p *Parameter) SetName(name string) {
	p.name = name
}

// Name returns the parameter name.
func (p Parameter) Name() string {
	return p.name
}

// MarshalJSON serializes Parameter as a CloudFormation Ref when used as a value.
func (p Parameter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": p.name})
}

// IntPtr returns a pointer to the given int value.
func IntPtr(i int) *int {
	return &i
}
