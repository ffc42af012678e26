// Package template provides CloudFormation template building from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/serialize"
)

// Builder constructs CloudFormation templates from declared resources.
type Builder struct {
	description string
	resources   map[string]edgerest.DeclaredResource
	parameters  map[string]edgerest.DeclaredParameter
	outputs     map[string]edgerest.DeclaredOutput
	values      map[string]any // Actual struct values for serialization
}

// NewBuilder creates a template builder from declared resources.
func NewBuilder(resources map[string]edgerest.DeclaredResource) *Builder {
	return NewBuilderFull(resources, nil, nil)
}

// NewBuilderFull creates a template builder from all declared components.
func NewBuilderFull(
	resources map[string]edgerest.DeclaredResource,
	parameters map[string]edgerest.DeclaredParameter,
	outputs map[string]edgerest.DeclaredOutput,
) *Builder {
	if parameters == nil {
		parameters = make(map[string]edgerest.DeclaredParameter)
	}
	if outputs == nil {
		outputs = make(map[string]edgerest.DeclaredOutput)
	}
	return &Builder{
		resources:  resources,
		parameters: parameters,
		outputs:    outputs,
		values:     make(map[string]any),
	}
}

// SetDescription sets the template Description.
func (b *Builder) SetDescription(desc string) {
	b.description = desc
}

// SetValue associates a resource, parameter or output value with its logical name.
func (b *Builder) SetValue(name string, value any) {
	b.values[name] = value
}

// Order returns the resource names in dependency order.
func (b *Builder) Order() ([]string, error) {
	return b.topologicalSort()
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*edgerest.Template, error) {
	// Get resources in dependency order
	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	template := &edgerest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]edgerest.ResourceDef),
	}

	// Build Parameters section
	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]edgerest.Parameter)
		for name := range b.parameters {
			if val, ok := b.values[name]; ok {
				template.Parameters[name] = b.serializeParameter(val)
			}
		}
	}

	for _, name := range order {
		res := b.resources[name]
		value, ok := b.values[name]
		if !ok {
			return nil, fmt.Errorf("resource %s has no value", name)
		}

		resourceType := resourceTypeOf(res, value)
		if resourceType == "" {
			return nil, fmt.Errorf("unknown resource type: %s", res.Type)
		}

		// Serialize the resource value to properties
		props, err := b.serializeResource(value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		var dependsOn []string
		if len(res.DependsOn) > 0 {
			dependsOn = append(dependsOn, res.DependsOn...)
			sort.Strings(dependsOn)
		}

		template.Resources[name] = edgerest.ResourceDef{
			Type:       resourceType,
			Properties: props,
			DependsOn:  dependsOn,
		}
	}

	// Build Outputs section
	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]edgerest.Output)
		for name := range b.outputs {
			if val, ok := b.values[name]; ok {
				output, err := b.serializeOutput(val)
				if err != nil {
					return nil, fmt.Errorf("serializing output %s: %w", name, err)
				}
				template.Outputs[name] = output
			}
		}
	}

	return template, nil
}

// serializeParameter converts a Parameter value to the template format.
func (b *Builder) serializeParameter(value any) edgerest.Parameter {
	switch v := value.(type) {
	case edgerest.Parameter:
		if v.Type == "" {
			v.Type = "String"
		}
		return v
	case map[string]any:
		param := edgerest.Parameter{Type: "String"}
		if t, ok := v["Type"].(string); ok {
			param.Type = t
		}
		if desc, ok := v["Description"].(string); ok {
			param.Description = desc
		}
		if def, ok := v["Default"]; ok {
			param.Default = def
		}
		if vals, ok := v["AllowedValues"].([]any); ok {
			param.AllowedValues = vals
		}
		if pattern, ok := v["AllowedPattern"].(string); ok {
			param.AllowedPattern = pattern
		}
		if desc, ok := v["ConstraintDescription"].(string); ok {
			param.ConstraintDescription = desc
		}
		return param
	default:
		return edgerest.Parameter{Type: "String"}
	}
}

// serializeOutput converts an Output value to the template format.
func (b *Builder) serializeOutput(value any) (edgerest.Output, error) {
	output, ok := value.(edgerest.Output)
	if !ok {
		return edgerest.Output{}, fmt.Errorf("unexpected output value %T", value)
	}

	normalized, err := normalize(output.Value)
	if err != nil {
		return edgerest.Output{}, err
	}
	output.Value = normalized

	if output.Export != nil {
		name, err := normalize(output.Export.Name)
		if err != nil {
			return edgerest.Output{}, err
		}
		output.Export = &edgerest.Export{Name: name}
	}
	return output, nil
}

// serializeResource converts a Go struct to CloudFormation properties.
func (b *Builder) serializeResource(value any) (map[string]any, error) {
	var raw any = value
	if _, isMap := value.(map[string]any); !isMap {
		props, err := serialize.Resource(value)
		if err != nil {
			return nil, err
		}
		raw = props
	}

	// Round-trip through JSON so every number is a float64 and every nested
	// value is a plain map or slice, whatever the source struct looked like.
	normalized, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	props, _ := normalized.(map[string]any)
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// dependencies returns every in-template resource the named resource must follow.
func (b *Builder) dependencies(name string) []string {
	res := b.resources[name]
	seen := make(map[string]bool)
	var deps []string
	for _, dep := range append(append([]string{}, res.Dependencies...), res.DependsOn...) {
		if _, exists := b.resources[dep]; !exists || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
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

	for name := range b.resources {
		for _, dep := range b.dependencies(name) {
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
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
				sort.Strings(queue) // Keep sorted for determinism
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

		for _, dep := range b.dependencies(node) {
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
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		var msg strings.Builder
		msg.WriteString("circular dependency detected:\n")
		for i, name := range cycle {
			fmt.Fprintf(&msg, "  %s (%s)", name, b.resources[name].Type)
			if i < len(cycle)-1 {
				msg.WriteString("\n    → ")
			}
		}
		return errors.New(msg.String())
	}

	return errors.New("circular dependency detected")
}

// resourceTypeOf prefers the CloudFormation type reported by the value and
// falls back to mapping the declared Go type.
func resourceTypeOf(res edgerest.DeclaredResource, value any) string {
	if r, ok := value.(edgerest.Resource); ok {
		return r.ResourceType()
	}
	return cfResourceType(res.Type)
}

// cfResourceType converts Go type to CloudFormation type.
// e.g., "iam.Role" -> "AWS::IAM::Role", "apigateway.UsagePlan" -> "AWS::ApiGateway::UsagePlan"
func cfResourceType(goType string) string {
	pkgName, typeName, ok := strings.Cut(goType, ".")
	if !ok {
		return ""
	}

	serviceName := goPackageToCFService(pkgName)
	if serviceName == "" {
		return ""
	}

	return "AWS::" + serviceName + "::" + typeName
}

// goPackageToCFService maps Go package names to CloudFormation service names.
func goPackageToCFService(pkg string) string {
	directMap := map[string]string{
		"apigateway": "ApiGateway",
		"iam":        "IAM",
		"kms":        "KMS",
		"lambda":     "Lambda",
		"logs":       "Logs",
		"s3":         "S3",
		"ssm":        "SSM",
	}
	return directMap[pkg]
}

// CFResourceType returns the CloudFormation type for a declared Go type, or
// "" when the package is not a known service.
func CFResourceType(goType string) string {
	return cfResourceType(goType)
}

// ToJSON serializes the template to JSON.
func ToJSON(t *edgerest.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *edgerest.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
