// Package template provides CloudFormation template building from registered resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-fleet-go"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// ErrMissingType is returned when a registered resource carries no CloudFormation type.
var ErrMissingType = errors.New("missing CloudFormation type")

// Builder constructs CloudFormation templates from registered resources.
type Builder struct {
	description string
	resources   map[string]wetwire.DiscoveredResource
	parameters  map[string]wetwire.Parameter
	outputs     map[string]wetwire.Output
	values      map[string]any // Actual struct values for serialization
}

// NewBuilder creates a template builder from registered resources.
func NewBuilder(resources map[string]wetwire.DiscoveredResource) *Builder {
	return &Builder{
		resources:  resources,
		parameters: make(map[string]wetwire.Parameter),
		outputs:    make(map[string]wetwire.Output),
		values:     make(map[string]any),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetValue associates a resource value with its logical name.
func (b *Builder) SetValue(name string, value any) {
	b.values[name] = value
}

// SetParameter adds a template parameter.
func (b *Builder) SetParameter(name string, param wetwire.Parameter) {
	b.parameters[name] = param
}

// SetOutput adds a template output.
func (b *Builder) SetOutput(name string, output wetwire.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*wetwire.Template, error) {
	// Get resources in dependency order
	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	template := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]wetwire.ResourceDef),
	}

	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]wetwire.Parameter, len(b.parameters))
		for name, param := range b.parameters {
			if param.Type == "" {
				param.Type = "String"
			}
			template.Parameters[name] = param
		}
	}

	for _, name := range order {
		res := b.resources[name]
		value, ok := b.values[name]
		if !ok {
			return nil, fmt.Errorf("no value set for resource %s", name)
		}

		resourceType := res.CFType
		if resourceType == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingType, name)
		}

		props, err := b.serializeResource(value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		template.Resources[name] = wetwire.ResourceDef{
			Type:       resourceType,
			Properties: props,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for name, output := range b.outputs {
			value, err := Normalize(output.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			output.Value = value
			if output.Export != nil {
				exportName, err := Normalize(output.Export.Name)
				if err != nil {
					return nil, fmt.Errorf("serializing output %s export: %w", name, err)
				}
				output.Export = &wetwire.OutputExport{Name: exportName}
			}
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// serializeResource converts a Go struct to CloudFormation properties.
func (b *Builder) serializeResource(value any) (map[string]any, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}

	props, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("resource does not serialize to an object")
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

// Normalize converts a Go value to its generic JSON form (maps, slices,
// strings, float64, bool). Templates built from Go values and templates read
// back from disk compare equal only in this form.
func Normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// References returns the logical names a normalized value points at through
// Ref or Fn::GetAtt, sorted and de-duplicated. Pseudo-parameters are skipped.
func References(value any) []string {
	seen := make(map[string]bool)
	collectRefs(value, seen)

	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(value any, seen map[string]bool) {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := RefTarget(v); ok {
			if !strings.HasPrefix(name, "AWS::") {
				seen[name] = true
			}
			return
		}
		if sub, ok := v["Fn::Sub"]; ok {
			for _, name := range subVariables(sub) {
				seen[name] = true
			}
		}
		for _, val := range v {
			collectRefs(val, seen)
		}
	case []any:
		for _, elem := range v {
			collectRefs(elem, seen)
		}
	}
}

// RefTarget returns the logical name referenced by a Ref or Fn::GetAtt object.
// GetAtt accepts both the list form and the "Name.Attr" string form.
func RefTarget(v map[string]any) (string, bool) {
	if len(v) != 1 {
		return "", false
	}
	if ref, ok := v["Ref"].(string); ok {
		return ref, true
	}
	switch getAtt := v["Fn::GetAtt"].(type) {
	case []any:
		if len(getAtt) == 2 {
			if name, ok := getAtt[0].(string); ok {
				return name, true
			}
		}
	case string:
		if name, _, ok := strings.Cut(getAtt, "."); ok {
			return name, true
		}
	}
	return "", false
}

// subVariables returns the non-pseudo ${Name} or ${Name.Attr} variables of an
// Fn::Sub string that are not bound by the Sub's variable map.
func subVariables(sub any) []string {
	var (
		str   string
		bound map[string]any
	)
	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) > 0 {
			str, _ = s[0].(string)
		}
		if len(s) > 1 {
			bound, _ = s[1].(map[string]any)
		}
	}

	var names []string
	for {
		start := strings.Index(str, "${")
		if start < 0 {
			break
		}
		end := strings.Index(str[start:], "}")
		if end < 0 {
			break
		}
		variable := str[start+2 : start+end]
		str = str[start+end+1:]

		if strings.HasPrefix(variable, "!") || strings.HasPrefix(variable, "AWS::") {
			continue
		}
		name, _, _ := strings.Cut(variable, ".")
		if _, ok := bound[name]; ok {
			continue
		}
		names = append(names, name)
	}
	return names
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	// Build adjacency list
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range b.resources {
		for _, dep := range res.Dependencies {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue) // Deterministic order

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.resources[node].Dependencies {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] {
			if findCycle(name) {
				break
			}
		}
	}

	if len(cycle) > 0 {
		msg := "circular dependency detected:\n"
		for i, name := range cycle {
			res := b.resources[name]
			msg += fmt.Sprintf("  %s (%s:%d)", name, res.File, res.Line)
			if i < len(cycle)-1 {
				msg += "\n    → "
			}
		}
		return errors.New(msg)
	}

	return errors.New("circular dependency detected")
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
