// Package stack declares the secure-edge resources and assembles them into a
// CloudFormation template.
//
// A Stack is a registry: builders add parameters, resources and outputs under
// logical IDs, and the dependencies between them are read back from the
// serialized properties.
package stack

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/serialize"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
	"github.com/mkuzdowicz/secure-edge-rest/intrinsics"
)

// ErrDuplicateResource is returned when a logical ID is registered twice.
var ErrDuplicateResource = errors.New("duplicate logical id")

// ErrUnknownReference is returned when a value references an entity that was
// not registered before it.
var ErrUnknownReference = errors.New("unknown reference")

// Stack collects the declared entities of one template.
type Stack struct {
	description string

	resources  map[string]edgerest.DeclaredResource
	parameters map[string]edgerest.DeclaredParameter
	outputs    map[string]edgerest.DeclaredOutput
	values     map[string]any
}

// Handle refers to a registered resource.
type Handle struct {
	name string
}

// Name returns the logical ID.
func (h Handle) Name() string { return h.name }

// Ref returns {"Ref": name}.
func (h Handle) Ref() intrinsics.Ref { return intrinsics.Ref{LogicalName: h.name} }

// GetAtt returns {"Fn::GetAtt": [name, attr]}.
func (h Handle) GetAtt(attr string) edgerest.AttrRef {
	return edgerest.AttrRef{Resource: h.name, Attribute: attr}
}

// SubVar returns the handle as a Fn::Sub variable, "${name}".
func (h Handle) SubVar() string { return "${" + h.name + "}" }

// New creates an empty stack.
func New(description string) *Stack {
	return &Stack{
		description: description,
		resources:   make(map[string]edgerest.DeclaredResource),
		parameters:  make(map[string]edgerest.DeclaredParameter),
		outputs:     make(map[string]edgerest.DeclaredOutput),
		values:      make(map[string]any),
	}
}

func (s *Stack) taken(name string) bool {
	_, ok := s.values[name]
	return ok
}

// AddParameter declares a template parameter and returns it bound to name.
func (s *Stack) AddParameter(name string, p intrinsics.Parameter) (intrinsics.Parameter, error) {
	if s.taken(name) {
		return p, fmt.Errorf("parameter %s: %w", name, ErrDuplicateResource)
	}
	s.parameters[name] = edgerest.DeclaredParameter{Name: name}
	s.values[name] = edgerest.Parameter{
		Type:                  p.Type,
		Description:           p.Description,
		Default:               p.Default,
		AllowedPattern:        p.AllowedPattern,
		ConstraintDescription: p.ConstraintDescription,
	}
	return p.Named(name), nil
}

// Add registers a resource. Every Ref, Fn::GetAtt and Fn::Sub variable in its
// properties must name an entity registered earlier; dependsOn adds explicit
// DependsOn entries.
func (s *Stack) Add(name string, r edgerest.Resource, dependsOn ...Handle) (Handle, error) {
	if s.taken(name) {
		return Handle{}, fmt.Errorf("resource %s: %w", name, ErrDuplicateResource)
	}

	props, err := serialize.Resource(r)
	if err != nil {
		return Handle{}, fmt.Errorf("serializing %s: %w", name, err)
	}

	deps, usages, err := s.references(name, props)
	if err != nil {
		return Handle{}, err
	}

	var explicit []string
	for _, h := range dependsOn {
		if _, ok := s.resources[h.name]; !ok {
			return Handle{}, fmt.Errorf("resource %s depends on %s: %w", name, h.name, ErrUnknownReference)
		}
		explicit = append(explicit, h.name)
	}

	s.resources[name] = edgerest.DeclaredResource{
		Name:          name,
		Type:          goTypeName(r),
		Dependencies:  deps,
		DependsOn:     explicit,
		AttrRefUsages: usages,
	}
	s.values[name] = r
	return Handle{name: name}, nil
}

// AddOutput declares a stack output. Outputs share the logical ID namespace
// with parameters and resources.
func (s *Stack) AddOutput(name string, out edgerest.Output) error {
	if s.taken(name) {
		return fmt.Errorf("output %s: %w", name, ErrDuplicateResource)
	}

	value, err := serialize.Resource(struct{ Value, Export any }{out.Value, out.Export})
	if err != nil {
		return fmt.Errorf("serializing output %s: %w", name, err)
	}
	deps, _, err := s.references(name, value)
	if err != nil {
		return err
	}

	s.outputs[name] = edgerest.DeclaredOutput{Name: name, Dependencies: deps}
	s.values[name] = out
	return nil
}

// references resolves the logical names used in props against the registry.
func (s *Stack) references(owner string, props map[string]any) ([]string, []edgerest.AttrRefUsage, error) {
	seen := make(map[string]bool)
	var deps []string
	var usages []edgerest.AttrRefUsage

	for _, ref := range serialize.References(props) {
		_, isResource := s.resources[ref.Name]
		_, isParam := s.parameters[ref.Name]
		if !isResource && !isParam {
			return nil, nil, fmt.Errorf("%s references %s: %w", owner, ref.Name, ErrUnknownReference)
		}
		if !seen[ref.Name] {
			seen[ref.Name] = true
			deps = append(deps, ref.Name)
		}
		if ref.Attribute != "" {
			usages = append(usages, edgerest.AttrRefUsage{ResourceName: ref.Name, Attribute: ref.Attribute})
		}
	}
	return deps, usages, nil
}

// goTypeName returns "package.Type" for a resource value, e.g. "iam.Role".
func goTypeName(r edgerest.Resource) string {
	t := reflect.TypeOf(r)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// Resources returns the declared resources sorted by logical ID.
func (s *Stack) Resources() []edgerest.DeclaredResource {
	out := make([]edgerest.DeclaredResource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parameters returns the declared parameters sorted by name.
func (s *Stack) Parameters() []edgerest.DeclaredParameter {
	out := make([]edgerest.DeclaredParameter, 0, len(s.parameters))
	for _, p := range s.parameters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Stack) builder() *template.Builder {
	b := template.NewBuilderFull(s.resources, s.parameters, s.outputs)
	b.SetDescription(s.description)
	for name, value := range s.values {
		b.SetValue(name, value)
	}
	return b
}

// Order returns the resource logical IDs in dependency order.
func (s *Stack) Order() ([]string, error) {
	return s.builder().Order()
}

// Template renders the stack as a CloudFormation template.
func (s *Stack) Template() (*edgerest.Template, error) {
	return s.builder().Build()
}
