// Package wetwire_fleet provides the shared types for the firmware fleet stack.
//
// Infrastructure is declared with typed Go resources and registered on a stack:
//
//	s := stack.New("Firmware fleet pipeline")
//	repo := s.AddResource("FirmwareRepository", &ecr.Repository{
//	    RepositoryName: "firmware-image-repository",
//	})
//	s.AddResource("JobUpdateFunction", &lambda.Function{
//	    Role: role.GetAtt("Arn"),
//	})
//
// The wetwire-fleet CLI builds the stack declared by package fleet and emits a
// CloudFormation template.
package wetwire_fleet

import (
	"encoding/json"
	"sort"
)

// Resource represents a CloudFormation resource.
// All resource types (ecr.Repository, iot.TopicRule, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::IoT::TopicRule")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["JobUpdateRole", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RepositoryUri")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DiscoveredResource describes a resource registered on a stack.
type DiscoveredResource struct {
	// Name is the logical ID
	Name string
	// Type is the Go type (e.g., "iot.TopicRule")
	Type string
	// CFType is the CloudFormation type (e.g., "AWS::IoT::TopicRule")
	CFType string
	// File is the source file of the registration
	File string
	// Line is the line number of the registration
	Line int
	// Dependencies are logical names of referenced resources and parameters
	Dependencies []string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// ResourcesOfType returns the logical names of all resources with the given
// CloudFormation type, sorted.
func (t *Template) ResourcesOfType(cfType string) []string {
	var names []string
	for name, def := range t.Resources {
		if def.Type == cfType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type                  string `json:"Type" yaml:"Type"`
	Description           string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default               any    `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues         []any  `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
	AllowedPattern        string `json:"AllowedPattern,omitempty" yaml:"AllowedPattern,omitempty"`
	ConstraintDescription string `json:"ConstraintDescription,omitempty" yaml:"ConstraintDescription,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name any `json:"Name" yaml:"Name"`
}

// ValidateResult is the JSON output from `wetwire-fleet validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `wetwire-fleet list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	CFType string `json:"cf_type"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// DiffEntry is a single added, removed or modified resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource-level differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts the differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// DiffResult is the JSON output from `wetwire-fleet diff` and `plan`.
type DiffResult struct {
	Success bool         `json:"success"`
	Diff    TemplateDiff `json:"diff"`
	Summary DiffSummary  `json:"summary"`
}
