// Package validation checks built fleet templates.
//
// Two layers run against a template:
//   - CheckFleet: the structural guarantees of the fleet stack (one repository,
//     one job execution rule targeting the handler, the handler's grants)
//   - cfn-lint-go: CloudFormation schema and best-practice rules
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/template"
)

// LintResult holds the cfn-lint-go matches for a template, formatted and
// split by level.
type LintResult struct {
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// Passed reports whether cfn-lint found no errors. Warnings do not fail.
func (r *LintResult) Passed() bool {
	return len(r.Errors) == 0
}

// RunCfnLint lints the template file at path. A missing or unparseable file
// is reported as a lint error rather than returned.
func RunCfnLint(path string) (*LintResult, error) {
	result := &LintResult{Errors: []string{}, Warnings: []string{}, Informational: []string{}}

	if _, err := os.Stat(path); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("template not found: %s", path))
		return result, nil
	}

	matches, err := lint.New(lint.Options{}).LintFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("linting %s: %v", path, err))
		return result, nil
	}

	for _, match := range matches {
		line := formatMatch(match)
		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, line)
		case "Warning":
			result.Warnings = append(result.Warnings, line)
		default:
			result.Informational = append(result.Informational, line)
		}
	}
	return result, nil
}

// formatMatch renders a match as "ID: message (at Resources/Name/...)".
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}
	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}

// LintTemplate writes tmpl to a temporary file and runs cfn-lint-go on it.
func LintTemplate(tmpl *wetwire.Template) (*LintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "wetwire-fleet-lint")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// Validate runs the fleet checks and cfn-lint on a built template. cfn-lint
// warnings are reported as warnings; informational matches are dropped.
func Validate(tmpl *wetwire.Template, cfg fleet.Config) (*wetwire.ValidateResult, error) {
	check := CheckFleet(tmpl, cfg)
	result := &wetwire.ValidateResult{
		Resources: len(tmpl.Resources),
		Errors:    check.Errors,
		Warnings:  check.Warnings,
	}

	lintResult, err := LintTemplate(tmpl)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	result.Errors = append(result.Errors, lintResult.Errors...)
	result.Warnings = append(result.Warnings, lintResult.Warnings...)

	result.Success = len(result.Errors) == 0
	return result, nil
}
