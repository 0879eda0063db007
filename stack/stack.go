// Package stack registers typed resources, parameters and outputs under
// logical names and builds them into a CloudFormation template.
//
// Dependencies between resources are not declared by hand: they are derived
// from the Ref and Fn::GetAtt expressions found in each resource's properties.
package stack

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/samber/lo"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/internal/template"
	"github.com/lex00/wetwire-fleet-go/intrinsics"
)

var (
	// ErrInvalidName is returned for logical names CloudFormation rejects.
	ErrInvalidName = errors.New("invalid logical name")
	// ErrDuplicateName is returned when a logical name is registered twice.
	ErrDuplicateName = errors.New("duplicate logical name")
	// ErrUndefinedReference is returned when a property references an unknown name.
	ErrUndefinedReference = errors.New("undefined reference")
)

var logicalNamePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)

// Stack collects the declarations of one CloudFormation template.
type Stack struct {
	description string
	order       []string
	resources   map[string]*entry
	parameters  map[string]*intrinsics.Parameter
	outputs     map[string]wetwire.Output
	errs        []error
}

type entry struct {
	value wetwire.Resource
	info  wetwire.DiscoveredResource
}

// Handle refers to a registered resource.
type Handle struct {
	name string
}

// Name returns the logical name.
func (h Handle) Name() string {
	return h.name
}

// Ref returns a Ref to the resource.
func (h Handle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.name}
}

// GetAtt returns a GetAtt reference to an attribute of the resource.
func (h Handle) GetAtt(attribute string) wetwire.AttrRef {
	return wetwire.AttrRef{Resource: h.name, Attribute: attribute}
}

// New creates an empty stack.
func New(description string) *Stack {
	return &Stack{
		description: description,
		resources:   make(map[string]*entry),
		parameters:  make(map[string]*intrinsics.Parameter),
		outputs:     make(map[string]wetwire.Output),
	}
}

// AddResource registers a resource under a logical name. Registration errors
// are collected and reported by Build so declarations read top to bottom.
func (s *Stack) AddResource(name string, res wetwire.Resource) Handle {
	if err := s.claim(name); err != nil {
		s.errs = append(s.errs, err)
		return Handle{name: name}
	}

	file, line := caller()
	s.resources[name] = &entry{
		value: res,
		info: wetwire.DiscoveredResource{
			Name:   name,
			Type:   goTypeName(res),
			CFType: res.ResourceType(),
			File:   file,
			Line:   line,
		},
	}
	s.order = append(s.order, name)
	return Handle{name: name}
}

// AddParameter registers a template parameter and returns it named, ready to
// be used as a property value.
func (s *Stack) AddParameter(name string, param intrinsics.Parameter) *intrinsics.Parameter {
	p := param
	p.SetName(name)
	if err := s.claim(name); err != nil {
		s.errs = append(s.errs, err)
		return &p
	}
	s.parameters[name] = &p
	return &p
}

// AddOutput registers a template output.
func (s *Stack) AddOutput(name string, output wetwire.Output) {
	if !logicalNamePattern.MatchString(name) {
		s.errs = append(s.errs, fmt.Errorf("%w: output %q", ErrInvalidName, name))
		return
	}
	if _, exists := s.outputs[name]; exists {
		s.errs = append(s.errs, fmt.Errorf("%w: output %q", ErrDuplicateName, name))
		return
	}
	s.outputs[name] = output
}

func (s *Stack) claim(name string) error {
	if !logicalNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (must be 1-255 alphanumeric characters)", ErrInvalidName, name)
	}
	if _, exists := s.resources[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if _, exists := s.parameters[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

// Resources returns the registered resources with their dependencies resolved.
func (s *Stack) Resources() (map[string]wetwire.DiscoveredResource, error) {
	if err := errors.Join(s.errs...); err != nil {
		return nil, err
	}

	result := make(map[string]wetwire.DiscoveredResource, len(s.resources))
	var errs []error
	for _, name := range s.order {
		e := s.resources[name]
		normalized, err := template.Normalize(e.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s: %w", name, err))
			continue
		}

		info := e.info
		info.Dependencies = nil
		for _, ref := range template.References(normalized) {
			if ref == name {
				errs = append(errs, fmt.Errorf("%w: %s references itself (%s:%d)", ErrUndefinedReference, name, info.File, info.Line))
				continue
			}
			if !s.defined(ref) {
				errs = append(errs, fmt.Errorf("%w: %s references %q (%s:%d)", ErrUndefinedReference, name, ref, info.File, info.Line))
				continue
			}
			info.Dependencies = append(info.Dependencies, ref)
		}
		result[name] = info
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// Parameters returns the registered parameter names, sorted.
func (s *Stack) Parameters() []string {
	names := lo.Keys(s.parameters)
	sort.Strings(names)
	return names
}

func (s *Stack) defined(name string) bool {
	_, isResource := s.resources[name]
	_, isParam := s.parameters[name]
	return isResource || isParam
}

// Build validates the stack and produces the CloudFormation template.
func (s *Stack) Build() (*wetwire.Template, error) {
	resources, err := s.Resources()
	if err != nil {
		return nil, err
	}

	builder := template.NewBuilder(resources)
	builder.SetDescription(s.description)
	for name, e := range s.resources {
		builder.SetValue(name, e.value)
	}
	for name, p := range s.parameters {
		builder.SetParameter(name, wetwire.Parameter{
			Type:                  p.Type,
			Description:           p.Description,
			Default:               p.Default,
			AllowedValues:         p.AllowedValues,
			AllowedPattern:        p.AllowedPattern,
			ConstraintDescription: p.ConstraintDescription,
		})
	}

	var errs []error
	for name, out := range s.outputs {
		normalized, err := template.Normalize(out.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing output %s: %w", name, err))
			continue
		}
		for _, ref := range template.References(normalized) {
			if !s.defined(ref) {
				errs = append(errs, fmt.Errorf("%w: output %s references %q", ErrUndefinedReference, name, ref))
			}
		}
		builder.SetOutput(name, out)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return builder.Build()
}

// goTypeName returns "pkg.Type" for a resource value.
func goTypeName(res wetwire.Resource) string {
	t := reflect.TypeOf(res)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	pkg := t.PkgPath()
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	return pkg + "." + t.Name()
}

// caller returns the file and line of the declaration that called into the stack.
func caller() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", 0
	}
	return file, line
}
