package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiffCmd(t *testing.T) {
	cmd := newDiffCmd()
	assert.Equal(t, "diff <template1> <template2>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("format"))
	assert.NotNil(t, cmd.Flags().Lookup("ignore-order"))
}

func TestDiffAndPlan(t *testing.T) {
	opts := testOptions(t, "")
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "template.json")
	yamlPath := filepath.Join(dir, "template.yaml")
	require.NoError(t, runBuild(&bytes.Buffer{}, opts, "json", jsonPath))
	require.NoError(t, runBuild(&bytes.Buffer{}, opts, "yaml", yamlPath))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"diff", jsonPath, yamlPath})
	require.NoError(t, root.Execute())
	assert.Equal(t, "No changes\n", out.String())

	out.Reset()
	require.NoError(t, runPlan(&out, opts, jsonPath, "text", false, true))
	assert.Equal(t, "No changes\n", out.String())

	changed := testOptions(t, "thing_prefix: robot-\n")
	out.Reset()
	err := runPlan(&out, changed, jsonPath, "text", false, true)
	assert.ErrorContains(t, err, "1 changes")
	assert.Contains(t, out.String(), "~ JobUpdateRole (AWS::IAM::Role)")

	out.Reset()
	require.NoError(t, runPlan(&out, changed, jsonPath, "json", false, false))
	assert.Contains(t, out.String(), `"modified": 1`)
}

func TestRunValidate_SkipLint(t *testing.T) {
	opts := testOptions(t, "")

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, opts, "text", true))
	assert.Contains(t, out.String(), "Validation passed: 5 resources OK")
	assert.Contains(t, out.String(), "WARNING:")

	out.Reset()
	require.NoError(t, runValidate(&out, opts, "json", true))
	assert.Contains(t, out.String(), `"success": true`)
}

func TestRunRoute(t *testing.T) {
	opts := testOptions(t, "")
	event := []byte(`{
		"eventType": "JOB_EXECUTION",
		"eventId": "e-1",
		"timestamp": 1700000000,
		"operation": "succeeded",
		"jobId": "job-1",
		"thingArn": "arn:aws:iot:us-east-1:123456789012:thing/device-thing-42",
		"status": "SUCCEEDED"
	}`)

	var out bytes.Buffer
	require.NoError(t, runRoute(context.Background(), &out, opts, "$aws/events/jobExecution/job-1/succeeded", event, 1))
	assert.Contains(t, out.String(), "invoke JobUpdateFunction")
	assert.Contains(t, out.String(), "job job-1 on device-thing-42: SUCCEEDED")
	assert.Contains(t, out.String(), "JobExecutionRule -> JobUpdateFunction: delivered")

	out.Reset()
	require.NoError(t, runRoute(context.Background(), &out, opts, "devices/dev-42/telemetry", event, 0))
	assert.Equal(t, "No rule matches devices/dev-42/telemetry\n", out.String())

	assert.Error(t, runRoute(context.Background(), &out, opts, "devices/+/telemetry", event, 0))
}

func TestRunCheck_Offline(t *testing.T) {
	opts := testOptions(t, "")
	cmd := newCheckCmd(opts)
	require.NotNil(t, cmd.Flags().Lookup("remote"))

	checkOpts := checkOptions{function: "JobUpdateFunction", partition: "aws", region: "us-east-1", accountID: "123456789012"}

	var out bytes.Buffer
	require.NoError(t, runCheck(context.Background(), &out, opts, checkOpts,
		"iot:UpdateThingShadow", "arn:aws:iot:us-east-1:123456789012:thing/device-thing-7"))
	assert.Contains(t, out.String(), ": allowed")
	assert.Contains(t, out.String(), "matched UpdateDeviceRecord")

	out.Reset()
	require.NoError(t, runCheck(context.Background(), &out, opts, checkOpts,
		"iot:UpdateThing", "arn:aws:iot:us-east-1:123456789012:thing/gateway-1"))
	assert.Contains(t, out.String(), ": implicitDeny")

	checkOpts.function = "Missing"
	assert.Error(t, runCheck(context.Background(), &out, opts, checkOpts, "iot:UpdateThing", "*"))
}

func TestNewDeployJobCmd(t *testing.T) {
	cmd := newDeployJobCmd(&globalOptions{})
	assert.Equal(t, "deploy-job <version>", cmd.Use)
	assert.Equal(t, "device-thing-1-agent", cmd.Flags().Lookup("thing-name").DefValue)
	assert.Equal(t, "us-east-1", cmd.Flags().Lookup("region").DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("job-id"))
	assert.NotNil(t, cmd.Flags().Lookup("account-id"))
	assert.Error(t, cmd.Args(cmd, nil))
}

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globalOptions{})
	assert.Equal(t, "watch", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("check-only"))
	assert.Equal(t, "500ms", cmd.Flags().Lookup("debounce").DefValue)
}

func TestIsConfigEvent(t *testing.T) {
	tests := []struct {
		name       string
		event      fsnotify.Event
		configPath string
		want       bool
	}{
		{"default yaml written", fsnotify.Event{Name: "/w/wetwire-fleet.yaml", Op: fsnotify.Write}, "", true},
		{"default toml created", fsnotify.Event{Name: "/w/wetwire-fleet.toml", Op: fsnotify.Create}, "", true},
		{"other file", fsnotify.Event{Name: "/w/main.go", Op: fsnotify.Write}, "", false},
		{"chmod only", fsnotify.Event{Name: "/w/wetwire-fleet.yaml", Op: fsnotify.Chmod}, "", false},
		{"explicit config", fsnotify.Event{Name: "/etc/fleet/prod.yaml", Op: fsnotify.Write}, "/etc/fleet/prod.yaml", true},
		{"sibling of explicit config", fsnotify.Event{Name: "/etc/fleet/dev.yaml", Op: fsnotify.Write}, "/etc/fleet/prod.yaml", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConfigEvent(tt.event, tt.configPath))
		})
	}
}

func TestRebuild_WritesTemplate(t *testing.T) {
	opts := testOptions(t, "job_document_scope: firmware-\n")
	path := filepath.Join(t.TempDir(), "out.json")

	var out bytes.Buffer
	rebuild(&out, opts, watchOptions{outputFormat: "json", outputFile: path})
	assert.Contains(t, out.String(), "Check passed")
	assert.Contains(t, out.String(), "Wrote "+path)
	assert.NotContains(t, out.String(), "WARNING")
	assert.FileExists(t, path)
}
