// Package apigateway provides CloudFormation resource types for Amazon API Gateway (REST APIs).
package apigateway

// RestApi is the AWS::ApiGateway::RestApi resource.
//
// Attributes: RestApiId, RootResourceId.
type RestApi struct {
	ApiKeySourceType      any                            `json:"ApiKeySourceType,omitempty"`
	BinaryMediaTypes      []any                          `json:"BinaryMediaTypes,omitempty"`
	Description           any                            `json:"Description,omitempty"`
	EndpointConfiguration *RestApi_EndpointConfiguration `json:"EndpointConfiguration,omitempty"`
	Name                  any                            `json:"Name,omitempty"`
	Policy                any                            `json:"Policy,omitempty"`
	Tags                  []any                          `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (RestApi) ResourceType() string { return "AWS::ApiGateway::RestApi" }

// RestApi_EndpointConfiguration selects the endpoint type (EDGE, REGIONAL, PRIVATE).
type RestApi_EndpointConfiguration struct {
	Types []any `json:"Types,omitempty"`
}

// Resource is the AWS::ApiGateway::Resource resource.
type Resource struct {
	ParentId  any `json:"ParentId"`
	PathPart  any `json:"PathPart"`
	RestApiId any `json:"RestApiId"`
}

// ResourceType returns the CloudFormation type.
func (Resource) ResourceType() string { return "AWS::ApiGateway::Resource" }

// Method is the AWS::ApiGateway::Method resource.
type Method struct {
	ApiKeyRequired    bool                `json:"ApiKeyRequired,omitempty"`
	AuthorizationType any                 `json:"AuthorizationType,omitempty"`
	HttpMethod        any                 `json:"HttpMethod"`
	Integration       *Method_Integration `json:"Integration,omitempty"`
	ResourceId        any                 `json:"ResourceId"`
	RestApiId         any                 `json:"RestApiId"`
}

// ResourceType returns the CloudFormation type.
func (Method) ResourceType() string { return "AWS::ApiGateway::Method" }

// Method_Integration configures the backend of a method.
type Method_Integration struct {
	IntegrationHttpMethod any `json:"IntegrationHttpMethod,omitempty"`
	Type_                 any `json:"Type,omitempty"`
	Uri                   any `json:"Uri,omitempty"`
}

// Deployment is the AWS::ApiGateway::Deployment resource.
type Deployment struct {
	Description any `json:"Description,omitempty"`
	RestApiId   any `json:"RestApiId"`
}

// ResourceType returns the CloudFormation type.
func (Deployment) ResourceType() string { return "AWS::ApiGateway::Deployment" }

// Stage is the AWS::ApiGateway::Stage resource.
type Stage struct {
	DeploymentId any   `json:"DeploymentId,omitempty"`
	Description  any   `json:"Description,omitempty"`
	RestApiId    any   `json:"RestApiId"`
	StageName    any   `json:"StageName,omitempty"`
	Tags         []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Stage) ResourceType() string { return "AWS::ApiGateway::Stage" }
