// Package config loads the fleet stack configuration and the handler's
// runtime settings with viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lex00/wetwire-fleet-go/fleet"
)

// EnvPrefix prefixes environment overrides: WETWIRE_FLEET_RULE_NAME,
// WETWIRE_FLEET_HANDLER_MEMORY_SIZE, ...
const EnvPrefix = "WETWIRE_FLEET"

// DefaultName is the config file looked up in the working directory when no
// path is given (wetwire-fleet.yaml, .json or .toml).
const DefaultName = "wetwire-fleet"

// Load reads the stack configuration from defaults, the config file at path
// (or DefaultName in the working directory when path is empty) and the
// environment, in increasing order of precedence.
func Load(path string) (fleet.Config, error) {
	options := viper.New()
	setDefaults(options, fleet.Default())

	options.SetEnvPrefix(EnvPrefix)
	options.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	options.AutomaticEnv()

	if path != "" {
		options.SetConfigFile(path)
	} else {
		options.SetConfigName(DefaultName)
		options.AddConfigPath(".")
	}

	if err := options.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fleet.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg fleet.Config
	if err := options.Unmarshal(&cfg); err != nil {
		return fleet.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Used returns the config file Load would read, or "" when none exists.
func Used(path string) string {
	if path != "" {
		return path
	}
	options := viper.New()
	options.SetConfigName(DefaultName)
	options.AddConfigPath(".")
	if err := options.ReadInConfig(); err != nil {
		return ""
	}
	return options.ConfigFileUsed()
}

func setDefaults(options *viper.Viper, d fleet.Config) {
	options.SetDefault("description", d.Description)
	options.SetDefault("repository_name", d.RepositoryName)
	options.SetDefault("rule_name", d.RuleName)
	options.SetDefault("topic_filter", d.TopicFilter)
	options.SetDefault("sql_version", d.SqlVersion)
	options.SetDefault("thing_prefix", d.ThingPrefix)
	options.SetDefault("job_document_scope", d.JobDocumentScope)
	options.SetDefault("restrict_invoke_to_rule", d.RestrictInvokeToRule)

	options.SetDefault("handler.runtime", d.Handler.Runtime)
	options.SetDefault("handler.handler", d.Handler.Handler)
	options.SetDefault("handler.architecture", d.Handler.Architecture)
	options.SetDefault("handler.memory_size", d.Handler.MemorySize)
	options.SetDefault("handler.timeout", d.Handler.Timeout)
	options.SetDefault("handler.code_key", d.Handler.CodeKey)
	options.SetDefault("handler.shadow_name", d.Handler.ShadowName)
	options.SetDefault("handler.operation", d.Handler.Operation)
	options.SetDefault("handler.log_level", d.Handler.LogLevel)

	options.SetDefault("retry.enabled", d.Retry.Enabled)
	options.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	options.SetDefault("retry.max_event_age_seconds", d.Retry.MaxEventAgeSeconds)

	options.SetDefault("dead_letter.enabled", d.DeadLetter.Enabled)
	options.SetDefault("dead_letter.queue_name", d.DeadLetter.QueueName)
	options.SetDefault("dead_letter.retention_seconds", d.DeadLetter.RetentionSeconds)
}

// Handler holds the job-update handler's runtime settings.
type Handler struct {
	ShadowName string
	Operation  string
	LogLevel   string
}

// LoadHandler reads the handler settings from the Lambda environment, set by
// the stack from the handler section of the config.
func LoadHandler() Handler {
	options := viper.New()
	options.SetDefault(fleet.EnvShadowName, fleet.DefaultShadowName)
	options.SetDefault(fleet.EnvOperation, fleet.DefaultOperation)
	options.SetDefault(fleet.EnvLogLevel, "info")
	options.AutomaticEnv()

	return Handler{
		ShadowName: options.GetString(fleet.EnvShadowName),
		Operation:  options.GetString(fleet.EnvOperation),
		LogLevel:   options.GetString(fleet.EnvLogLevel),
	}
}
