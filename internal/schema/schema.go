// Package schema provides offline CloudFormation schema validation for the
// resource types the edge stack emits.
package schema

import (
	"fmt"
	"sort"
	"strings"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties missing from the schema as warnings
	Strict bool
}

// Result contains schema validation results.
type Result struct {
	Valid    bool                   `json:"valid"`
	Errors   []edgerest.SchemaError `json:"errors,omitempty"`
	Warnings []edgerest.SchemaError `json:"warnings,omitempty"`
}

// ValidateTemplate validates every resource of template against the known
// schemas. Resources are checked in logical-name order.
func ValidateTemplate(template *edgerest.Template, opts Options) *Result {
	result := &Result{Valid: true}

	names := make([]string, 0, len(template.Resources))
	for name := range template.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, template.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// Known reports whether a schema is available for cfType.
func Known(cfType string) bool {
	_, ok := resourceSchemas[cfType]
	return ok
}

func validateResource(name string, resource edgerest.ResourceDef, opts Options) (errs, warnings []edgerest.SchemaError) {
	if !isValidResourceType(resource.Type) {
		errs = append(errs, edgerest.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, edgerest.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, edgerest.SchemaError{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for prop := range resource.Properties {
		props = append(props, prop)
	}
	sort.Strings(props)

	for _, prop := range props {
		propSchema, ok := schema.Properties[prop]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, edgerest.SchemaError{
					Resource: name,
					Property: prop,
					Message:  fmt.Sprintf("unknown property: %s", prop),
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, prop, resource.Properties[prop], propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks the AWS::Service::Resource or Custom::* format.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS"
}

func validateProperty(resource, property string, value any, schema PropertySchema) []edgerest.SchemaError {
	if isIntrinsic(value) {
		return nil
	}

	var errs []edgerest.SchemaError
	fail := func(format string, args ...any) {
		errs = append(errs, edgerest.SchemaError{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if !isValidType(value, schema.Type) {
		fail("expected type %s", schema.Type)
		return errs
	}

	if len(schema.AllowedValues) > 0 {
		if s, ok := value.(string); ok && !contains(schema.AllowedValues, s) {
			fail("value %q not in allowed values: %v", s, schema.AllowedValues)
		}
	}

	if schema.Max > 0 {
		if n, ok := number(value); ok && (n < schema.Min || n > schema.Max) {
			fail("value %v out of range [%v, %v]", n, schema.Min, schema.Max)
		}
	}

	return errs
}

func isIntrinsic(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		return key == "Ref" || strings.HasPrefix(key, "Fn::")
	}
	return false
}

func isValidType(value any, expectedType string) bool {
	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		_, ok := number(value)
		return ok
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
