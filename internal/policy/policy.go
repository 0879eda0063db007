// Package policy collects the permission grants a template gives a Lambda
// function and evaluates actions against them offline.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/template"
)

const (
	functionType   = "AWS::Lambda::Function"
	roleType       = "AWS::IAM::Role"
	permissionType = "AWS::Lambda::Permission"
)

// ErrNotFound is returned when the function or its role is not in the template.
var ErrNotFound = errors.New("resource not found")

// Statement is one grant: an effect over a set of actions and resources.
// Resources keep their ${...} substitution variables until resolved by Env.
type Statement struct {
	// Source names where the grant comes from, e.g. "JobUpdateRole/JobUpdatePolicy".
	Source    string
	Sid       string
	Effect    string
	Principal string
	Actions   []string
	Resources []string
	// Conditional is set when the statement carries a Condition block.
	Conditional bool
}

// Grants is the permission set of one function.
type Grants struct {
	Function string
	Role     string
	// Invoke holds the resource-based grants allowing principals to invoke the function.
	Invoke []Statement
	// Identity holds the statements of the execution role's inline policies.
	Identity []Statement
	// ManagedPolicyArns lists attached managed policies, which are not evaluated.
	ManagedPolicyArns []string
}

// All returns the invoke grants followed by the identity grants.
func (g *Grants) All() []Statement {
	return append(append([]Statement{}, g.Invoke...), g.Identity...)
}

// InvokableBy reports whether a service principal may invoke the function.
func (g *Grants) InvokableBy(principal string) bool {
	return lo.ContainsBy(g.Invoke, func(s Statement) bool {
		return s.Effect == EffectAllow && s.Principal == principal
	})
}

// GrantsFor collects the grants of a function from a built template.
func GrantsFor(tmpl *wetwire.Template, function string) (*Grants, error) {
	fn, ok := tmpl.Resources[function]
	if !ok || fn.Type != functionType {
		return nil, fmt.Errorf("%w: function %s", ErrNotFound, function)
	}

	grants := &Grants{Function: function}

	for _, name := range tmpl.ResourcesOfType(permissionType) {
		props := tmpl.Resources[name].Properties
		if !refersTo(props["FunctionName"], function) {
			continue
		}
		action, _ := props["Action"].(string)
		principal, _ := props["Principal"].(string)
		grants.Invoke = append(grants.Invoke, Statement{
			Source:    name,
			Effect:    EffectAllow,
			Principal: principal,
			Actions:   []string{action},
			Resources: []string{"${" + function + ".Arn}"},
		})
	}

	roleRef, ok := fn.Properties["Role"].(map[string]any)
	if !ok {
		return grants, nil
	}
	roleName, ok := template.RefTarget(roleRef)
	if !ok {
		return grants, nil
	}
	role, ok := tmpl.Resources[roleName]
	if !ok || role.Type != roleType {
		return nil, fmt.Errorf("%w: role %s of %s", ErrNotFound, roleName, function)
	}
	grants.Role = roleName

	for _, arn := range asList(role.Properties["ManagedPolicyArns"]) {
		grants.ManagedPolicyArns = append(grants.ManagedPolicyArns, Stringify(arn))
	}

	for _, p := range asList(role.Properties["Policies"]) {
		policy, ok := p.(map[string]any)
		if !ok {
			continue
		}
		policyName, _ := policy["PolicyName"].(string)
		doc, _ := policy["PolicyDocument"].(map[string]any)
		for _, s := range asList(doc["Statement"]) {
			raw, ok := s.(map[string]any)
			if !ok {
				continue
			}
			stmt := parseStatement(raw)
			stmt.Source = roleName + "/" + policyName
			grants.Identity = append(grants.Identity, stmt)
		}
	}

	return grants, nil
}

func parseStatement(raw map[string]any) Statement {
	stmt := Statement{}
	stmt.Sid, _ = raw["Sid"].(string)
	stmt.Effect, _ = raw["Effect"].(string)
	stmt.Actions = lo.Map(asList(raw["Action"]), func(a any, _ int) string { return Stringify(a) })
	stmt.Resources = lo.Map(asList(raw["Resource"]), func(r any, _ int) string { return Stringify(r) })
	_, stmt.Conditional = raw["Condition"]
	return stmt
}

// refersTo reports whether a FunctionName value points at a logical name.
func refersTo(value any, name string) bool {
	switch v := value.(type) {
	case string:
		return v == name
	case map[string]any:
		target, ok := template.RefTarget(v)
		return ok && target == name
	}
	return false
}

// asList wraps a scalar in a slice; IAM accepts both forms for Action and Resource.
func asList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

// Stringify renders a normalized template value as an ARN pattern, turning
// intrinsics into ${...} substitution variables.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if ref, ok := v["Ref"].(string); ok && len(v) == 1 {
			return "${" + ref + "}"
		}
		switch getAtt := v["Fn::GetAtt"].(type) {
		case []any:
			if len(getAtt) == 2 {
				return fmt.Sprintf("${%v.%v}", getAtt[0], getAtt[1])
			}
		case string:
			return "${" + getAtt + "}"
		}
		switch sub := v["Fn::Sub"].(type) {
		case string:
			return sub
		case []any:
			return stringifySub(sub)
		}
		if join, ok := v["Fn::Join"].([]any); ok && len(join) == 2 {
			delim, _ := join[0].(string)
			parts := lo.Map(asList(join[1]), func(p any, _ int) string { return Stringify(p) })
			return strings.Join(parts, delim)
		}
	}
	return fmt.Sprint(value)
}

func stringifySub(sub []any) string {
	if len(sub) == 0 {
		return ""
	}
	str, _ := sub[0].(string)
	if len(sub) < 2 {
		return str
	}
	vars, _ := sub[1].(map[string]any)
	names := lo.Keys(vars)
	sort.Strings(names)
	for _, name := range names {
		str = strings.ReplaceAll(str, "${"+name+"}", Stringify(vars[name]))
	}
	return str
}
