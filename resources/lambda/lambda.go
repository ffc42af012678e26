// Package lambda provides CloudFormation resource types for AWS Lambda.
package lambda

// Function is the AWS::Lambda::Function resource.
//
// Attributes: Arn.
type Function struct {
	Architectures []any                 `json:"Architectures,omitempty"`
	Code          *Function_Code        `json:"Code,omitempty"`
	Description   any                   `json:"Description,omitempty"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Handler       any                   `json:"Handler,omitempty"`
	MemorySize    int                   `json:"MemorySize,omitempty"`
	Role          any                   `json:"Role,omitempty"`
	Runtime       any                   `json:"Runtime,omitempty"`
	Tags          []any                 `json:"Tags,omitempty"`
	Timeout       int                   `json:"Timeout,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Function) ResourceType() string { return "AWS::Lambda::Function" }

// Function_Code points at the deployment package.
type Function_Code struct {
	S3Bucket        any `json:"S3Bucket,omitempty"`
	S3Key           any `json:"S3Key,omitempty"`
	S3ObjectVersion any `json:"S3ObjectVersion,omitempty"`
	ZipFile         any `json:"ZipFile,omitempty"`
}

// Function_Environment holds the function's environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Permission is the AWS::Lambda::Permission resource.
type Permission struct {
	Action        any `json:"Action"`
	FunctionName  any `json:"FunctionName"`
	Principal     any `json:"Principal"`
	SourceAccount any `json:"SourceAccount,omitempty"`
	SourceArn     any `json:"SourceArn,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Permission) ResourceType() string { return "AWS::Lambda::Permission" }
