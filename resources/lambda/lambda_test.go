package lambda

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-fleet-go"
)

func TestResourceTypes(t *testing.T) {
	tests := []struct {
		name     string
		resource wetwire.Resource
		expected string
	}{
		{"Function", Function{}, "AWS::Lambda::Function"},
		{"Permission", Permission{}, "AWS::Lambda::Permission"},
		{"EventInvokeConfig", EventInvokeConfig{}, "AWS::Lambda::EventInvokeConfig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resource.ResourceType())
		})
	}
}

func TestEventInvokeConfig_ZeroRetriesSerialized(t *testing.T) {
	zero := 0
	cfg := EventInvokeConfig{
		FunctionName:         "fn",
		Qualifier:            "$LATEST",
		MaximumRetryAttempts: &zero,
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"FunctionName": "fn", "Qualifier": "$LATEST", "MaximumRetryAttempts": 0}`, string(data))
}

func TestFunction_OmitsEmpty(t *testing.T) {
	fn := Function{
		Runtime: "provided.al2023",
		Handler: "bootstrap",
		Code:    Function_Code{S3Bucket: "bucket", S3Key: "key.zip"},
		Role:    "arn:aws:iam::123456789012:role/r",
	}

	data, err := json.Marshal(fn)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.NotContains(t, parsed, "Timeout")
	assert.NotContains(t, parsed, "Environment")
	assert.Equal(t, map[string]any{"S3Bucket": "bucket", "S3Key": "key.zip"}, parsed["Code"])
}
