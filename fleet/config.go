package fleet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/lex00/wetwire-fleet-go/internal/topic"
)

// Config parameterizes the fleet stack. The zero value is not usable; start
// from Default.
type Config struct {
	Description      string `mapstructure:"description"`
	RepositoryName   string `mapstructure:"repository_name"`
	RuleName         string `mapstructure:"rule_name"`
	TopicFilter      string `mapstructure:"topic_filter"`
	SqlVersion       string `mapstructure:"sql_version"`
	ThingPrefix      string `mapstructure:"thing_prefix"`
	JobDocumentScope string `mapstructure:"job_document_scope"`
	// RestrictInvokeToRule conditions the invoke grant on the rule's ARN and
	// the stack's account.
	RestrictInvokeToRule bool `mapstructure:"restrict_invoke_to_rule"`

	Handler    HandlerConfig    `mapstructure:"handler"`
	Retry      RetryConfig      `mapstructure:"retry"`
	DeadLetter DeadLetterConfig `mapstructure:"dead_letter"`
}

// HandlerConfig describes the job-update function.
type HandlerConfig struct {
	Runtime      string `mapstructure:"runtime"`
	Handler      string `mapstructure:"handler"`
	Architecture string `mapstructure:"architecture"`
	MemorySize   int    `mapstructure:"memory_size"`
	Timeout      int    `mapstructure:"timeout"`
	CodeKey      string `mapstructure:"code_key"`

	ShadowName string `mapstructure:"shadow_name"`
	Operation  string `mapstructure:"operation"`
	LogLevel   string `mapstructure:"log_level"`
}

// RetryConfig bounds asynchronous invocation retries.
type RetryConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	MaxAttempts        int  `mapstructure:"max_attempts"`
	MaxEventAgeSeconds int  `mapstructure:"max_event_age_seconds"`
}

// DeadLetterConfig captures events that could not be delivered or processed.
type DeadLetterConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	QueueName        string `mapstructure:"queue_name"`
	RetentionSeconds int    `mapstructure:"retention_seconds"`
}

// Defaults reproducing the original deployment.
const (
	DefaultRepositoryName = "firmware-image-repository"
	DefaultRuleName       = "RosJobExecutionRule"
	DefaultTopicFilter    = "$aws/events/jobExecution/#"
	DefaultSqlVersion     = "2015-10-08"
	DefaultThingPrefix    = "device-thing-"
	DefaultShadowName     = "firmware"
	DefaultOperation      = "Deploy-ROS-Firmware"
)

// Default returns the configuration of the original deployment.
func Default() Config {
	return Config{
		Description:      "Firmware deployment pipeline: image repository, job execution rule and job-update handler",
		RepositoryName:   DefaultRepositoryName,
		RuleName:         DefaultRuleName,
		TopicFilter:      DefaultTopicFilter,
		SqlVersion:       DefaultSqlVersion,
		ThingPrefix:      DefaultThingPrefix,
		JobDocumentScope: "*",
		Handler: HandlerConfig{
			Runtime:      "provided.al2023",
			Handler:      "bootstrap",
			Architecture: "arm64",
			MemorySize:   128,
			Timeout:      30,
			CodeKey:      "job-update-handler.zip",
			ShadowName:   DefaultShadowName,
			Operation:    DefaultOperation,
			LogLevel:     "info",
		},
		Retry: RetryConfig{
			MaxAttempts:        2,
			MaxEventAgeSeconds: 21600,
		},
		DeadLetter: DeadLetterConfig{
			RetentionSeconds: 1209600,
		},
	}
}

var (
	ruleNamePattern       = regexp.MustCompile(`^[a-zA-Z0-9_]{1,128}$`)
	repositoryNamePattern = regexp.MustCompile(`^(?:[a-z0-9]+(?:[._-][a-z0-9]+)*/)*[a-z0-9]+(?:[._-][a-z0-9]+)*$`)
	thingPrefixPattern    = regexp.MustCompile(`^[a-zA-Z0-9:_-]+$`)
)

var sqlVersions = []string{"2015-10-08", "2016-03-23", "beta"}

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid fleet config")

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if n := len(c.RepositoryName); n < 2 || n > 256 || !repositoryNamePattern.MatchString(c.RepositoryName) {
		add("repository_name %q must be 2-256 lowercase characters", c.RepositoryName)
	}
	if !ruleNamePattern.MatchString(c.RuleName) {
		add("rule_name %q must be alphanumeric or underscore", c.RuleName)
	}
	if err := topic.ValidateFilter(c.TopicFilter); err != nil {
		add("topic_filter: %v", err)
	}
	if !lo.Contains(sqlVersions, c.SqlVersion) {
		add("sql_version %q must be one of %s", c.SqlVersion, strings.Join(sqlVersions, ", "))
	}
	if !thingPrefixPattern.MatchString(c.ThingPrefix) {
		add("thing_prefix %q must be a non-empty literal thing name prefix", c.ThingPrefix)
	}
	if c.JobDocumentScope != "*" && !thingPrefixPattern.MatchString(c.JobDocumentScope) {
		add("job_document_scope %q must be * or a job ID prefix", c.JobDocumentScope)
	}
	if c.Handler.Runtime == "" || c.Handler.Handler == "" {
		add("handler runtime and handler are required")
	}
	if c.Handler.Architecture != "arm64" && c.Handler.Architecture != "x86_64" {
		add("handler architecture %q must be arm64 or x86_64", c.Handler.Architecture)
	}
	if c.Handler.MemorySize < 128 || c.Handler.MemorySize > 10240 {
		add("handler memory_size %d must be between 128 and 10240", c.Handler.MemorySize)
	}
	if c.Handler.Timeout < 1 || c.Handler.Timeout > 900 {
		add("handler timeout %d must be between 1 and 900", c.Handler.Timeout)
	}
	if c.Handler.CodeKey == "" {
		add("handler code_key is required")
	}
	if c.Retry.Enabled {
		if c.Retry.MaxAttempts < 0 || c.Retry.MaxAttempts > 2 {
			add("retry max_attempts %d must be between 0 and 2", c.Retry.MaxAttempts)
		}
		if c.Retry.MaxEventAgeSeconds < 60 || c.Retry.MaxEventAgeSeconds > 21600 {
			add("retry max_event_age_seconds %d must be between 60 and 21600", c.Retry.MaxEventAgeSeconds)
		}
	}
	if c.DeadLetter.Enabled {
		if c.DeadLetter.RetentionSeconds < 60 || c.DeadLetter.RetentionSeconds > 1209600 {
			add("dead_letter retention_seconds %d must be between 60 and 1209600", c.DeadLetter.RetentionSeconds)
		}
	}

	return errors.Join(errs...)
}
