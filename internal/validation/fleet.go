package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/policy"
	"github.com/lex00/wetwire-fleet-go/internal/router"
	"github.com/lex00/wetwire-fleet-go/internal/topic"
)

const (
	repositoryType = "AWS::ECR::Repository"
	topicRuleType  = "AWS::IoT::TopicRule"

	iotPrincipal = "iot.amazonaws.com"
)

// FleetResult lists the structural problems found in a fleet template.
type FleetResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Passed reports whether no errors were found.
func (r *FleetResult) Passed() bool {
	return len(r.Errors) == 0
}

func (r *FleetResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *FleetResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CheckFleet verifies that tmpl holds the fleet stack cfg describes:
// one image repository with the configured name, one rule selecting every
// message on the configured filter and targeting only the handler, and the
// handler's grants (invocation by IoT, reading job documents, updating
// devices under the thing prefix and nothing outside it).
func CheckFleet(tmpl *wetwire.Template, cfg fleet.Config) *FleetResult {
	result := &FleetResult{Errors: []string{}, Warnings: []string{}}

	checkRepository(result, tmpl, cfg)
	checkRule(result, tmpl, cfg)
	checkGrants(result, tmpl, cfg)

	if cfg.JobDocumentScope == "*" {
		result.warnf("%s: iot:GetJobDocument is granted on every job; set job_document_scope to a job ID prefix to narrow it", fleet.SidReadJobDocument)
	}
	return result
}

func checkRepository(result *FleetResult, tmpl *wetwire.Template, cfg fleet.Config) {
	repos := tmpl.ResourcesOfType(repositoryType)
	if len(repos) != 1 {
		result.errorf("expected exactly one %s, found %d", repositoryType, len(repos))
		return
	}
	name := tmpl.Resources[repos[0]].Properties["RepositoryName"]
	if name != cfg.RepositoryName {
		result.errorf("%s: RepositoryName is %v, want %s", repos[0], name, cfg.RepositoryName)
	}
}

func checkRule(result *FleetResult, tmpl *wetwire.Template, cfg fleet.Config) {
	if n := len(tmpl.ResourcesOfType(topicRuleType)); n != 1 {
		result.errorf("expected exactly one %s, found %d", topicRuleType, n)
		return
	}

	r, err := router.FromTemplate(tmpl)
	if err != nil {
		result.errorf("%v", err)
		return
	}
	rule := r.Rules()[0]

	if rule.RuleName != cfg.RuleName {
		result.errorf("%s: RuleName is %q, want %q", rule.Name, rule.RuleName, cfg.RuleName)
	}
	if err := topic.ValidateFilter(rule.Statement.From); err != nil {
		result.errorf("%s: %v", rule.Name, err)
	}
	if rule.Statement.From != cfg.TopicFilter {
		result.errorf("%s: rule listens on %q, want %q", rule.Name, rule.Statement.From, cfg.TopicFilter)
	}
	if !rule.Statement.SelectsAll() || !rule.Statement.Unconditional() {
		result.errorf("%s: rule must forward every message unchanged, got %q", rule.Name, rule.SQL)
	}
	if rule.Disabled {
		result.errorf("%s: rule is disabled", rule.Name)
	}

	payload, _ := tmpl.Resources[rule.Name].Properties["TopicRulePayload"].(map[string]any)
	if version := payload["AwsIotSqlVersion"]; version != cfg.SqlVersion {
		result.errorf("%s: AwsIotSqlVersion is %v, want %s", rule.Name, version, cfg.SqlVersion)
	}

	if len(rule.Targets) != 1 || rule.Targets[0] != fleet.HandlerFunction {
		result.errorf("%s: rule must have the single target %s, got %v", rule.Name, fleet.HandlerFunction, rule.Targets)
	}
}

func checkGrants(result *FleetResult, tmpl *wetwire.Template, cfg fleet.Config) {
	grants, err := policy.GrantsFor(tmpl, fleet.HandlerFunction)
	if err != nil {
		result.errorf("%v", err)
		return
	}

	if len(grants.Invoke) != 1 || !grants.InvokableBy(iotPrincipal) {
		result.errorf("%s: expected a single invoke grant to %s, found %d", fleet.HandlerFunction, iotPrincipal, len(grants.Invoke))
	}

	want := map[string]identityGrant{
		fleet.SidReadJobDocument: {
			actions:   fleet.ReadJobDocumentActions,
			resources: []string{fleet.JobDocumentResource(cfg)},
		},
		fleet.SidUpdateDeviceRecord: {
			actions:   fleet.UpdateDeviceRecordActions,
			resources: []string{fleet.ThingArnPattern(cfg)},
		},
	}
	if cfg.DeadLetter.Enabled {
		want[fleet.SidSendFailedEvents] = identityGrant{actions: []string{fleet.SendFailedEventsAction}}
	}

	wantSids := lo.Keys(want)
	sort.Strings(wantSids)
	gotSids := lo.Map(grants.Identity, func(s policy.Statement, _ int) string { return s.Sid })
	sort.Strings(gotSids)
	if fmt.Sprint(gotSids) != fmt.Sprint(wantSids) {
		result.errorf("%s: identity grants are %v, want %v", grants.Role, gotSids, wantSids)
	}

	for _, stmt := range grants.Identity {
		expected, ok := want[stmt.Sid]
		if !ok {
			continue
		}
		if stmt.Effect != policy.EffectAllow {
			result.errorf("%s: Effect is %q, want %s", stmt.Sid, stmt.Effect, policy.EffectAllow)
		}
		if !sameSet(stmt.Actions, expected.actions) {
			result.errorf("%s: actions are %v, want %v", stmt.Sid, sorted(stmt.Actions), sorted(expected.actions))
		}
		if expected.resources != nil && !sameSet(stmt.Resources, expected.resources) {
			result.errorf("%s: resources are %v, want %v", stmt.Sid, stmt.Resources, expected.resources)
		}
	}

	env := policy.DefaultEnv()
	jobArn := env.Resolve(fmt.Sprintf("arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:job/%sexample", jobPrefix(cfg)))
	inside := env.Resolve(fmt.Sprintf("arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/%sexample", cfg.ThingPrefix))
	outside := env.Resolve("arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/" + outsideThing(cfg))

	for _, action := range fleet.ReadJobDocumentActions {
		if d := policy.Evaluate(grants.Identity, env, action, jobArn).Decision; d != policy.Allowed {
			result.errorf("%s on %s: %s, want %s", action, jobArn, d, policy.Allowed)
		}
	}
	for _, action := range fleet.UpdateDeviceRecordActions {
		if d := policy.Evaluate(grants.Identity, env, action, inside).Decision; d != policy.Allowed {
			result.errorf("%s on %s: %s, want %s", action, inside, d, policy.Allowed)
		}
		if d := policy.Evaluate(grants.Identity, env, action, outside).Decision; d == policy.Allowed {
			result.errorf("%s on %s: allowed outside the %s* prefix", action, outside, cfg.ThingPrefix)
		}
	}
}

type identityGrant struct {
	actions []string
	// resources is nil when the resource is an attribute of another resource.
	resources []string
}

func sameSet(got, want []string) bool {
	return fmt.Sprint(sorted(got)) == fmt.Sprint(sorted(want))
}

func sorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func jobPrefix(cfg fleet.Config) string {
	if cfg.JobDocumentScope == "*" {
		return ""
	}
	return cfg.JobDocumentScope
}

// outsideThing names a thing that does not carry the configured prefix.
func outsideThing(cfg fleet.Config) string {
	if strings.HasPrefix("unmanaged-device", cfg.ThingPrefix) {
		return "other-device"
	}
	return "unmanaged-device"
}
