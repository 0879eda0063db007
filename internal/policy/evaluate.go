package policy

import (
	"strings"
)

// Statement effects.
const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// Decision is the outcome of evaluating one request.
type Decision string

// Decisions, named as the IAM policy simulator names them.
const (
	Allowed      Decision = "allowed"
	ImplicitDeny Decision = "implicitDeny"
	ExplicitDeny Decision = "explicitDeny"
)

// Env supplies the values of the pseudo-parameters used in grant resources.
type Env struct {
	Partition string
	Region    string
	AccountID string
	StackName string
}

// DefaultEnv is used when no account context is given.
func DefaultEnv() Env {
	return Env{
		Partition: "aws",
		Region:    "us-east-1",
		AccountID: "123456789012",
		StackName: "wetwire-fleet",
	}
}

// Resolve substitutes the pseudo-parameter variables in a resource pattern.
// Other ${...} variables are left in place.
func (e Env) Resolve(pattern string) string {
	return strings.NewReplacer(
		"${AWS::Partition}", e.Partition,
		"${AWS::Region}", e.Region,
		"${AWS::AccountId}", e.AccountID,
		"${AWS::StackName}", e.StackName,
	).Replace(pattern)
}

// Result explains a decision.
type Result struct {
	Decision Decision
	// Matched is the statement that decided the request, nil on implicit deny.
	Matched *Statement
}

// Evaluate decides whether action on resource is permitted by the statements.
// An explicit Deny wins over any Allow; with no matching Allow the request is
// implicitly denied. Statements with a Condition are not applied since their
// context keys are unknown offline.
func Evaluate(statements []Statement, env Env, action, resource string) Result {
	var allow *Statement
	for i := range statements {
		s := &statements[i]
		if s.Conditional || !s.matches(env, action, resource) {
			continue
		}
		switch s.Effect {
		case EffectDeny:
			return Result{Decision: ExplicitDeny, Matched: s}
		case EffectAllow:
			if allow == nil {
				allow = s
			}
		}
	}
	if allow != nil {
		return Result{Decision: Allowed, Matched: allow}
	}
	return Result{Decision: ImplicitDeny}
}

func (s *Statement) matches(env Env, action, resource string) bool {
	actionMatched := false
	for _, a := range s.Actions {
		if wildcardMatch(strings.ToLower(a), strings.ToLower(action)) {
			actionMatched = true
			break
		}
	}
	if !actionMatched {
		return false
	}
	for _, r := range s.Resources {
		if wildcardMatch(env.Resolve(r), resource) {
			return true
		}
	}
	return false
}

// wildcardMatch matches IAM-style patterns: '*' spans any run of characters
// including '/' and ':', '?' matches exactly one.
func wildcardMatch(pattern, value string) bool {
	p, v := 0, 0
	star, mark := -1, 0
	for v < len(value) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = v
			p++
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == value[v]):
			p++
			v++
		case star >= 0:
			p = star + 1
			mark++
			v = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
