// Package ecr contains CloudFormation resource types for Amazon ECR.
package ecr

// Repository is an AWS::ECR::Repository.
type Repository struct {
	RepositoryName             any                                    `json:"RepositoryName,omitempty"`
	ImageTagMutability         string                                 `json:"ImageTagMutability,omitempty"`
	ImageScanningConfiguration *Repository_ImageScanningConfiguration `json:"ImageScanningConfiguration,omitempty"`
	EmptyOnDelete              bool                                   `json:"EmptyOnDelete,omitempty"`
	Tags                       []any                                  `json:"Tags,omitempty"`
}

// Repository_ImageScanningConfiguration controls scan-on-push.
type Repository_ImageScanningConfiguration struct {
	ScanOnPush bool `json:"ScanOnPush"`
}

// ResourceType returns the CloudFormation type.
func (Repository) ResourceType() string {
	return "AWS::ECR::Repository"
}

// Attributes available through Fn::GetAtt.
const (
	AttrArn           = "Arn"
	AttrRepositoryUri = "RepositoryUri"
)
