package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	ref := Ref{LogicalName: "JobUpdateFunction"}
	data, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "JobUpdateFunction"}`, string(data))
}

func TestSub_MarshalJSON(t *testing.T) {
	sub := Sub{String: "${AWS::StackName}-job-update"}
	data, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Sub": "${AWS::StackName}-job-update"}`, string(data))
}

func TestPseudoParameters(t *testing.T) {
	tests := []struct {
		name     string
		param    Ref
		expected string
	}{
		{"AWS_REGION", AWS_REGION, `{"Ref": "AWS::Region"}`},
		{"AWS_ACCOUNT_ID", AWS_ACCOUNT_ID, `{"Ref": "AWS::AccountId"}`},
		{"AWS_PARTITION", AWS_PARTITION, `{"Ref": "AWS::Partition"}`},
		{"AWS_STACK_NAME", AWS_STACK_NAME, `{"Ref": "AWS::StackName"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.param)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestParameter_MarshalJSON(t *testing.T) {
	p := Parameter{Type: "String", Description: "handler bundle bucket"}
	p.SetName("HandlerCodeBucket")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "HandlerCodeBucket"}`, string(data))
	assert.Equal(t, "HandlerCodeBucket", p.Name())
}

func TestArnString(t *testing.T) {
	tests := []struct {
		name     string
		in       ArnComponents
		expected string
	}{
		{
			name:     "thing prefix",
			in:       ArnComponents{Service: "iot", Resource: "thing", ResourceName: "device-thing-*"},
			expected: "arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/device-thing-*",
		},
		{
			name:     "explicit region and account",
			in:       ArnComponents{Partition: "aws", Service: "iot", Region: "us-east-1", Account: "123456789012", Resource: "job", ResourceName: "fw-*"},
			expected: "arn:aws:iot:us-east-1:123456789012:job/fw-*",
		},
		{
			name:     "colon separator",
			in:       ArnComponents{Service: "logs", Resource: "log-group", ResourceName: "/aws/lambda/x", Sep: ":"},
			expected: "arn:${AWS::Partition}:logs:${AWS::Region}:${AWS::AccountId}:log-group:/aws/lambda/x",
		},
		{
			name:     "no resource name",
			in:       ArnComponents{Service: "sqs", Resource: "dlq"},
			expected: "arn:${AWS::Partition}:sqs:${AWS::Region}:${AWS::AccountId}:dlq",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ArnString(tt.in))
		})
	}
}

func TestArn_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Arn(ArnComponents{Service: "iot", Resource: "thing", ResourceName: "device-thing-*"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Sub": "arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/device-thing-*"}`, string(data))
}

func TestManagedPolicyArn(t *testing.T) {
	sub := ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole")
	assert.Equal(t, "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole", sub.String)
}

func TestPolicyStatement_MarshalJSON(t *testing.T) {
	stmt := Allow("MutateFleetThings", "arn:aws:iot:us-east-1:123456789012:thing/device-thing-*",
		"iot:UpdateThingShadow", "iot:UpdateThing")

	data, err := json.Marshal(NewPolicyDocument(stmt))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Sid": "MutateFleetThings",
			"Effect": "Allow",
			"Action": ["iot:UpdateThingShadow", "iot:UpdateThing"],
			"Resource": "arn:aws:iot:us-east-1:123456789012:thing/device-thing-*"
		}]
	}`, string(data))
}

func TestServicePrincipal_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(ServicePrincipal{"lambda.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": "lambda.amazonaws.com"}`, string(data))

	data, err = json.Marshal(ServicePrincipal{"iot.amazonaws.com", "lambda.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": ["iot.amazonaws.com", "lambda.amazonaws.com"]}`, string(data))
}
