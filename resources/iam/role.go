// Package iam provides CloudFormation resource types for AWS Identity and Access Management.
package iam

// Role is the AWS::IAM::Role resource.
//
// Attributes: Arn, RoleId.
type Role struct {
	AssumeRolePolicyDocument any           `json:"AssumeRolePolicyDocument,omitempty"`
	Description              any           `json:"Description,omitempty"`
	ManagedPolicyArns        []any         `json:"ManagedPolicyArns,omitempty"`
	MaxSessionDuration       int           `json:"MaxSessionDuration,omitempty"`
	Path                     any           `json:"Path,omitempty"`
	Policies                 []Role_Policy `json:"Policies,omitempty"`
	RoleName                 any           `json:"RoleName,omitempty"`
	Tags                     []any         `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Role_Policy is an inline policy embedded in a Role.
type Role_Policy struct {
	PolicyDocument any `json:"PolicyDocument"`
	PolicyName     any `json:"PolicyName"`
}
