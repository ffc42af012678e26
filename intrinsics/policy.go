package intrinsics

import (
	"encoding/json"
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
//
// Example:
//
//	Condition: Json{
//	    NotIpAddress: Json{"aws:SourceIp": Split{Delimiter: ",", Source: Whitelist}},
//	}
type Json = map[string]any

// PolicyVersion is the IAM policy language version.
const PolicyVersion = "2012-10-17"

// Effects of a policy statement.
const (
	Allow = "Allow"
	Deny  = "Deny"
)

// PolicyDocument represents an IAM policy document.
//
// Example:
//
//	var ApiPolicy = PolicyDocument{
//	    Version:   PolicyVersion,
//	    Statement: []any{AllowInvoke, DenyOutsideWhitelist},
//	}
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement represents an IAM policy statement.
//
// Example:
//
//	var AssumeRole = PolicyStatement{
//	    Effect:    Allow,
//	    Principal: ServicePrincipal{"lambda.amazonaws.com"},
//	    Action:    "sts:AssumeRole",
//	}
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// --- Principal Helpers ---

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSPrincipal represents an AWS account/role/user principal.
// Serializes to {"AWS": ...} format. AWSPrincipal{"*"} is the anonymous principal.
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"AWS": p[0]})
	}
	return json.Marshal(map[string]any{"AWS": []any(p)})
}

// AnyPrincipal matches every caller, {"AWS": "*"}.
var AnyPrincipal = AWSPrincipal{"*"}

// NotIpAddress is the condition operator matching callers outside a CIDR set.
const NotIpAddress = "NotIpAddress"

// SourceIPKey is the global condition key holding the caller's IP address.
const SourceIPKey = "aws:SourceIp"
