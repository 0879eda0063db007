// Package iam contains CloudFormation resource types for AWS IAM.
package iam

// Role is an AWS::IAM::Role.
type Role struct {
	RoleName                 any    `json:"RoleName,omitempty"`
	Description              string `json:"Description,omitempty"`
	Path                     string `json:"Path,omitempty"`
	AssumeRolePolicyDocument any    `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any  `json:"ManagedPolicyArns,omitempty"`
	Policies                 []any  `json:"Policies,omitempty"`
	Tags                     []any  `json:"Tags,omitempty"`
}

// Role_Policy is an inline policy embedded in a role.
type Role_Policy struct {
	PolicyName     string `json:"PolicyName"`
	PolicyDocument any    `json:"PolicyDocument"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Attributes available through Fn::GetAtt.
const (
	AttrArn    = "Arn"
	AttrRoleId = "RoleId"
)
