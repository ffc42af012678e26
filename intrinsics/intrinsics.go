// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds template parameters and IAM policy types.
//
// Core intrinsic functions:
//
//	Ref{LogicalName: "RestApi"} → {"Ref": "RestApi"}
//	Sub{String: "${AWS::Region}-api"} → {"Fn::Sub": "${AWS::Region}-api"}
//	Split{Delimiter: ",", Source: Whitelist} → {"Fn::Split": [",", {"Ref": "allWhitelistedIps"}]}
package intrinsics

import (
	"encoding/json"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Parameter defines a CloudFormation template parameter.
// When used as a value in resource properties, it serializes to {"Ref": "ParameterName"}.
//
// Example:
//
//	var Env = Parameter{
//	    Type:        "String",
//	    Description: "envParameter",
//	}
type Parameter struct {
	// Type is the CloudFormation parameter type (String, Number, CommaDelimitedList, etc.)
	Type string
	// Description is optional documentation for the parameter
	Description string
	// Default is the default value if none is provided
	Default any
	// AllowedPattern is a regex pattern for String type validation
	AllowedPattern string
	// ConstraintDescription explains validation failures
	ConstraintDescription string

	// name is set when the parameter is declared on a stack
	name string
}

// Named returns a copy of the parameter bound to the given logical name.
func (p Parameter) Named(name string) Parameter {
	p.name = name
	return p
}

// Name returns the parameter name.
func (p Parameter) Name() string {
	return p.name
}

// SubVar returns the parameter as a Fn::Sub variable, e.g. "${envParameter}".
func (p Parameter) SubVar() string {
	return "${" + p.name + "}"
}

// MarshalJSON serializes Parameter as a CloudFormation Ref when used as a value.
func (p Parameter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": p.name})
}

// Tags builds a tag list from key/value pairs in the given order.
// An odd trailing key is ignored.
func Tags(kv ...any) []Tag {
	tags := make([]Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		tags = append(tags, Tag{Key: key, Value: kv[i+1]})
	}
	return tags
}
