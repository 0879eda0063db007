package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
)

func TestLintTemplate_Fleet(t *testing.T) {
	result, err := LintTemplate(buildFleet(t, fleet.Default()))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotNil(t, result.Errors)
	assert.NotNil(t, result.Warnings)
}

func TestLintTemplate_BrokenFleet(t *testing.T) {
	tests := []struct {
		name     string
		tamper   func(tmpl *wetwire.Template)
		resource string
	}{
		{
			name: "handler without code",
			tamper: func(tmpl *wetwire.Template) {
				delete(tmpl.Resources[fleet.HandlerFunction].Properties, "Code")
			},
			resource: fleet.HandlerFunction,
		},
		{
			name: "misspelled repository type",
			tamper: func(tmpl *wetwire.Template) {
				repo := tmpl.Resources[fleet.Repository]
				repo.Type = "AWS::ECR::Repositories"
				tmpl.Resources[fleet.Repository] = repo
			},
			resource: fleet.Repository,
		},
		{
			name: "rule targets an undeclared function",
			tamper: func(tmpl *wetwire.Template) {
				rulePayload(tmpl)["Actions"] = []any{map[string]any{
					"Lambda": map[string]any{
						"FunctionArn": map[string]any{"Fn::GetAtt": []any{"MissingFunction", "Arn"}},
					},
				}}
			},
			resource: fleet.ExecutionRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := buildFleet(t, fleet.Default())
			tt.tamper(tmpl)

			result, err := LintTemplate(tmpl)
			require.NoError(t, err)
			assert.False(t, result.Passed())
			mentioned := lo.ContainsBy(result.Errors, func(e string) bool {
				return strings.Contains(e, tt.resource)
			})
			assert.True(t, mentioned, "no error naming %s in %v", tt.resource, result.Errors)
		})
	}
}

func TestValidate_LintErrorsFailValidation(t *testing.T) {
	cfg := fleet.Default()
	tmpl := buildFleet(t, cfg)
	delete(tmpl.Resources[fleet.HandlerFunction].Properties, "Code")

	require.True(t, CheckFleet(tmpl, cfg).Passed())

	result, err := Validate(tmpl, cfg)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestRunCfnLint_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.json")

	result, err := RunCfnLint(path)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Equal(t, []string{"template not found: " + path}, result.Errors)
}

func TestRunCfnLint_Unparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Resources: [JobExecutionRule\n"), 0644))

	result, err := RunCfnLint(path)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.NotEmpty(t, result.Errors)
}
