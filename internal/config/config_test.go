package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-fleet-go/fleet"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, fleet.Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
thing_prefix: robot-
job_document_scope: firmware-
handler:
  memory_size: 256
retry:
  enabled: true
  max_attempts: 1
dead_letter:
  enabled: true
  queue_name: job-events-dlq
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "robot-", cfg.ThingPrefix)
	assert.Equal(t, "firmware-", cfg.JobDocumentScope)
	assert.Equal(t, 256, cfg.Handler.MemorySize)
	assert.Equal(t, "bootstrap", cfg.Handler.Handler)
	assert.True(t, cfg.Retry.Enabled)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Equal(t, 21600, cfg.Retry.MaxEventAgeSeconds)
	assert.True(t, cfg.DeadLetter.Enabled)
	assert.Equal(t, "job-events-dlq", cfg.DeadLetter.QueueName)
	assert.Equal(t, fleet.DefaultRepositoryName, cfg.RepositoryName)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wetwire-fleet.yaml"), []byte("rule_name: CustomRule\n"), 0644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "CustomRule", cfg.RuleName)
	assert.Equal(t, "wetwire-fleet.yaml", filepath.Base(Used("")))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rule_name: FromFile\n"), 0644))

	t.Setenv("WETWIRE_FLEET_RULE_NAME", "FromEnv")
	t.Setenv("WETWIRE_FLEET_HANDLER_TIMEOUT", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", cfg.RuleName)
	assert.Equal(t, 60, cfg.Handler.Timeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUsed_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Empty(t, Used(""))
	assert.Equal(t, "x.yaml", Used("x.yaml"))
}

func TestLoadHandler(t *testing.T) {
	h := LoadHandler()
	assert.Equal(t, "firmware", h.ShadowName)
	assert.Equal(t, "Deploy-ROS-Firmware", h.Operation)

	t.Setenv("SHADOW_NAME", "fw")
	t.Setenv("LOG_LEVEL", "debug")
	h = LoadHandler()
	assert.Equal(t, "fw", h.ShadowName)
	assert.Equal(t, "debug", h.LogLevel)
}
