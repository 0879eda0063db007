// Package simulate cross-checks a function's identity grants against the IAM
// policy simulator.
package simulate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	json "github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/lex00/wetwire-fleet-go/internal/policy"
)

// IAMClient is the subset of the IAM API used for simulation.
type IAMClient interface {
	SimulateCustomPolicy(ctx context.Context, params *iam.SimulateCustomPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulateCustomPolicyOutput, error)
}

var _ IAMClient = (*iam.Client)(nil)

// ErrNoResult is returned when the simulator evaluates nothing for the request.
var ErrNoResult = errors.New("simulator returned no evaluation result")

// Simulator evaluates requests remotely.
type Simulator struct {
	client IAMClient
	env    policy.Env
}

// New creates a simulator resolving pseudo-parameters with env.
func New(client IAMClient, env policy.Env) *Simulator {
	return &Simulator{client: client, env: env}
}

type document struct {
	Version   string      `json:"Version"`
	Statement []statement `json:"Statement"`
}

type statement struct {
	Sid      string   `json:"Sid,omitempty"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// Document renders statements as one resolved IAM policy document.
func (s *Simulator) Document(statements []policy.Statement) (string, error) {
	doc := document{
		Version: "2012-10-17",
		Statement: lo.Map(statements, func(st policy.Statement, _ int) statement {
			return statement{
				Sid:      st.Sid,
				Effect:   st.Effect,
				Action:   st.Actions,
				Resource: lo.Map(st.Resources, func(r string, _ int) string { return s.env.Resolve(r) }),
			}
		}),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding policy document: %w", err)
	}
	return string(data), nil
}

// Check asks the simulator whether the function's identity grants allow
// action on resource.
func (s *Simulator) Check(ctx context.Context, grants *policy.Grants, action, resource string) (policy.Decision, error) {
	doc, err := s.Document(grants.Identity)
	if err != nil {
		return "", err
	}

	input := &iam.SimulateCustomPolicyInput{
		ActionNames:     []string{action},
		PolicyInputList: []string{doc},
		ResourceArns:    []string{resource},
	}

	paginator := iam.NewSimulateCustomPolicyPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("simulating %s on %s: %w", action, resource, err)
		}
		for _, result := range page.EvaluationResults {
			if aws.ToString(result.EvalActionName) != action {
				continue
			}
			return policy.Decision(result.EvalDecision), nil
		}
	}
	return "", fmt.Errorf("%w: %s on %s", ErrNoResult, action, resource)
}
