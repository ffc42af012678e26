package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/intrinsics"
	"github.com/mkuzdowicz/secure-edge-rest/resources/iam"
	"github.com/mkuzdowicz/secure-edge-rest/resources/lambda"
)

func TestBuilder_Build_SimpleResource(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"LambdaRole": {Name: "LambdaRole", Type: "iam.Role"},
	}

	builder := NewBuilder(resources)
	builder.SetValue("LambdaRole", map[string]any{
		"RoleName": "edge-role",
	})

	template, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", template.AWSTemplateFormatVersion)
	assert.Len(t, template.Resources, 1)

	role := template.Resources["LambdaRole"]
	assert.Equal(t, "AWS::IAM::Role", role.Type)
	assert.Equal(t, "edge-role", role.Properties["RoleName"])
}

func TestBuilder_Build_TypedValues(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"LambdaRole": {Name: "LambdaRole", Type: "iam.Role"},
		"Function": {
			Name:          "Function",
			Type:          "lambda.Function",
			Dependencies:  []string{"LambdaRole"},
			AttrRefUsages: []edgerest.AttrRefUsage{{ResourceName: "LambdaRole", Attribute: "Arn"}},
		},
	}

	builder := NewBuilder(resources)
	builder.SetValue("LambdaRole", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:    intrinsics.Allow,
			Principal: intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
			Action:    "sts:AssumeRole",
		}),
	})
	builder.SetValue("Function", lambda.Function{
		MemorySize: 1536,
		Role:       edgerest.AttrRef{Resource: "LambdaRole", Attribute: "Arn"},
	})

	template, err := builder.Build()
	require.NoError(t, err)

	fn := template.Resources["Function"]
	assert.Equal(t, "AWS::Lambda::Function", fn.Type)
	assert.Equal(t, float64(1536), fn.Properties["MemorySize"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"LambdaRole", "Arn"}}, fn.Properties["Role"])

	doc := template.Resources["LambdaRole"].Properties["AssumeRolePolicyDocument"].(map[string]any)
	assert.Equal(t, "2012-10-17", doc["Version"])
}

func TestBuilder_Build_DependsOn(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"RootMethod":  {Name: "RootMethod", Type: "apigateway.Method"},
		"ProxyMethod": {Name: "ProxyMethod", Type: "apigateway.Method"},
		"Deployment": {
			Name:      "Deployment",
			Type:      "apigateway.Deployment",
			DependsOn: []string{"RootMethod", "ProxyMethod"},
		},
	}

	builder := NewBuilder(resources)
	builder.SetValue("RootMethod", map[string]any{"HttpMethod": "ANY"})
	builder.SetValue("ProxyMethod", map[string]any{"HttpMethod": "ANY"})
	builder.SetValue("Deployment", map[string]any{})

	template, err := builder.Build()
	require.NoError(t, err)

	deployment := template.Resources["Deployment"]
	assert.Equal(t, []string{"ProxyMethod", "RootMethod"}, deployment.DependsOn)
	assert.Nil(t, deployment.Properties)

	order, err := builder.Order()
	require.NoError(t, err)
	assert.Equal(t, "Deployment", order[len(order)-1])
}

func TestBuilder_Build_MissingValue(t *testing.T) {
	builder := NewBuilder(map[string]edgerest.DeclaredResource{
		"LambdaRole": {Name: "LambdaRole", Type: "iam.Role"},
	})

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LambdaRole")
}

func TestBuilder_Build_UnknownType(t *testing.T) {
	builder := NewBuilder(map[string]edgerest.DeclaredResource{
		"Queue": {Name: "Queue", Type: "sqs.Queue"},
	})
	builder.SetValue("Queue", map[string]any{})

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource type")
}

func TestBuilder_Build_ParametersAndOutputs(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"RestApi": {Name: "RestApi", Type: "apigateway.RestApi"},
	}
	parameters := map[string]edgerest.DeclaredParameter{
		"envParameter":      {Name: "envParameter"},
		"allWhitelistedIps": {Name: "allWhitelistedIps"},
	}
	outputs := map[string]edgerest.DeclaredOutput{
		"ApiEndpoint": {Name: "ApiEndpoint", Dependencies: []string{"RestApi"}},
	}

	builder := NewBuilderFull(resources, parameters, outputs)
	builder.SetDescription("secure edge")
	builder.SetValue("RestApi", map[string]any{"Name": "api"})
	builder.SetValue("envParameter", edgerest.Parameter{Type: "String", Description: "envParameter"})
	builder.SetValue("allWhitelistedIps", map[string]any{"Description": "allWhitelistedIps"})
	builder.SetValue("ApiEndpoint", edgerest.Output{
		Value: intrinsics.Sub{String: "https://${RestApi}.execute-api.${AWS::Region}.${AWS::URLSuffix}/"},
	})

	template, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "secure edge", template.Description)
	require.Len(t, template.Parameters, 2)
	assert.Equal(t, "String", template.Parameters["envParameter"].Type)
	assert.Equal(t, "String", template.Parameters["allWhitelistedIps"].Type)
	assert.Equal(t, "allWhitelistedIps", template.Parameters["allWhitelistedIps"].Description)

	endpoint := template.Outputs["ApiEndpoint"]
	assert.Equal(t, map[string]any{
		"Fn::Sub": "https://${RestApi}.execute-api.${AWS::Region}.${AWS::URLSuffix}/",
	}, endpoint.Value)
}

func TestBuilder_TopologicalSort(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"C": {Name: "C", Type: "iam.Role", Dependencies: []string{"B"}},
		"B": {Name: "B", Type: "iam.Role", Dependencies: []string{"A"}},
		"A": {Name: "A", Type: "iam.Role"},
	}

	builder := NewBuilder(resources)

	order, err := builder.topologicalSort()
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestBuilder_TopologicalSort_IgnoresParameters(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"B": {Name: "B", Type: "iam.Role", Dependencies: []string{"envParameter"}},
		"A": {Name: "A", Type: "iam.Role"},
	}

	order, err := NewBuilder(resources).topologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestBuilder_DetectCycle(t *testing.T) {
	resources := map[string]edgerest.DeclaredResource{
		"A": {Name: "A", Type: "iam.Role", Dependencies: []string{"B"}},
		"B": {Name: "B", Type: "iam.Role", Dependencies: []string{"C"}},
		"C": {Name: "C", Type: "iam.Role", DependsOn: []string{"A"}},
	}

	builder := NewBuilder(resources)

	_, err := builder.topologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
	assert.Contains(t, err.Error(), "iam.Role")
}

func TestCfResourceType(t *testing.T) {
	tests := []struct {
		goType  string
		cfnType string
	}{
		{"iam.Role", "AWS::IAM::Role"},
		{"lambda.Function", "AWS::Lambda::Function"},
		{"lambda.Permission", "AWS::Lambda::Permission"},
		{"apigateway.RestApi", "AWS::ApiGateway::RestApi"},
		{"apigateway.UsagePlanKey", "AWS::ApiGateway::UsagePlanKey"},
		{"unknown.Thing", ""},
		{"NoPackage", ""},
	}

	for _, tt := range tests {
		t.Run(tt.goType, func(t *testing.T) {
			assert.Equal(t, tt.cfnType, cfResourceType(tt.goType))
		})
	}
}

func TestToJSON(t *testing.T) {
	template := &edgerest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]edgerest.ResourceDef{
			"RestApi": {
				Type:       "AWS::ApiGateway::RestApi",
				Properties: map[string]any{"Name": "api"},
			},
		},
	}

	data, err := ToJSON(template)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	resources := parsed["Resources"].(map[string]any)
	api := resources["RestApi"].(map[string]any)
	assert.Equal(t, "AWS::ApiGateway::RestApi", api["Type"])
	assert.NotContains(t, parsed, "Outputs")
}

func TestToYAML(t *testing.T) {
	template := &edgerest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]edgerest.ResourceDef{
			"RestApi": {
				Type:       "AWS::ApiGateway::RestApi",
				Properties: map[string]any{"Name": "api"},
			},
		},
	}

	data, err := ToYAML(template)
	require.NoError(t, err)

	assert.Contains(t, string(data), "AWSTemplateFormatVersion")
	assert.Contains(t, string(data), "AWS::ApiGateway::RestApi")
}
