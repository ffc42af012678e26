// Package edgerest declares the secure-edge REST deployment as Go values.
//
// The stack is a Lambda function behind an API Gateway REST API. The API is
// protected by an IP allowlist resource policy and requires an API key bound
// to a usage plan:
//
//	tmpl, err := stack.Synthesize(config.Default())
//
// The secure-edge CLI renders the result as a CloudFormation template and can
// deploy it through the CloudFormation API.
package edgerest

import (
	"encoding/json"
	"sort"
)

// Resource represents a CloudFormation resource.
// All resource types (iam.Role, lambda.Function, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::IAM::Role")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["LambdaRole", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RootResourceId")
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

// AttrRefUsage records a GetAtt reference from one resource to another.
type AttrRefUsage struct {
	ResourceName string
	Attribute    string
}

// DeclaredResource is a resource registered on a stack.
type DeclaredResource struct {
	// Name is the CloudFormation logical ID
	Name string
	// Type is the Go type (e.g., "iam.Role", "apigateway.RestApi")
	Type string
	// Dependencies are logical names of resources referenced by the properties
	Dependencies []string
	// DependsOn are explicit dependencies rendered into the template
	DependsOn []string
	// AttrRefUsages are the GetAtt references among Dependencies
	AttrRefUsages []AttrRefUsage
}

// DeclaredParameter is a template parameter registered on a stack.
type DeclaredParameter struct {
	Name string
}

// DeclaredOutput is a stack output and the entities its value references.
type DeclaredOutput struct {
	Name         string
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
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names a cross-stack output export.
type Export struct {
	Name any `json:"Name" yaml:"Name"`
}

// ResourcesOfType returns the logical names of all resources with the given
// CloudFormation type.
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

// ValidateResult is the JSON output from `secure-edge validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `secure-edge list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// SchemaError is a property that does not match the resource schema.
type SchemaError struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

// DeployResult is the JSON output from `secure-edge deploy`.
type DeployResult struct {
	StackName string            `json:"stack_name"`
	StackID   string            `json:"stack_id,omitempty"`
	Status    string            `json:"status,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	DryRun    bool              `json:"dry_run,omitempty"`
}

// TemplateDiff lists the differences between two templates. Parameters and
// Outputs hold section-level changes such as "envParameter.Default modified".
type TemplateDiff struct {
	Added      []DiffEntry `json:"added,omitempty"`
	Removed    []DiffEntry `json:"removed,omitempty"`
	Modified   []DiffEntry `json:"modified,omitempty"`
	Parameters []string    `json:"parameters,omitempty"`
	Outputs    []string    `json:"outputs,omitempty"`
}

// DiffEntry is a single resource difference.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the differences between two templates.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Sections int `json:"sections"`
	Total    int `json:"total"`
}
