package intrinsics

import "strings"

// ArnComponents describes an ARN relative to the deploying stack.
// Empty Partition, Region and Account default to the stack's pseudo-parameters.
type ArnComponents struct {
	Partition    string
	Service      string
	Region       string
	Account      string
	Resource     string
	ResourceName string
	// Sep separates Resource and ResourceName; defaults to "/"
	Sep string
}

// Arn formats the components as an Fn::Sub expression.
//
//	Arn(ArnComponents{Service: "iot", Resource: "thing", ResourceName: "device-thing-*"})
//	→ {"Fn::Sub": "arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/device-thing-*"}
func Arn(c ArnComponents) Sub {
	return Sub{String: ArnString(c)}
}

// ArnString returns the Sub template string for the components.
func ArnString(c ArnComponents) string {
	partition := c.Partition
	if partition == "" {
		partition = PartitionVar
	}
	region := c.Region
	if region == "" {
		region = RegionVar
	}
	account := c.Account
	if account == "" {
		account = AccountVar
	}
	sep := c.Sep
	if sep == "" {
		sep = "/"
	}

	resource := c.Resource
	if c.ResourceName != "" {
		resource += sep + c.ResourceName
	}

	return strings.Join([]string{"arn", partition, c.Service, region, account, resource}, ":")
}

// ManagedPolicyArn returns the ARN of an AWS managed policy in the stack's partition.
func ManagedPolicyArn(path string) Sub {
	return Sub{String: "arn:" + PartitionVar + ":iam::aws:policy/" + path}
}
