package edgerest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "role arn",
			ref:      AttrRef{Resource: "LambdaRole", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["LambdaRole","Arn"]}`,
		},
		{
			name:     "rest api root resource",
			ref:      AttrRef{Resource: "RestApi", Attribute: "RootResourceId"},
			expected: `{"Fn::GetAtt":["RestApi","RootResourceId"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	assert.True(t, AttrRef{}.IsZero())
	assert.False(t, AttrRef{Resource: "LambdaRole"}.IsZero())
	assert.False(t, AttrRef{Attribute: "Arn"}.IsZero())
}

func TestTemplate_ResourcesOfType(t *testing.T) {
	tmpl := &Template{
		Resources: map[string]ResourceDef{
			"RootMethod":  {Type: "AWS::ApiGateway::Method"},
			"ProxyMethod": {Type: "AWS::ApiGateway::Method"},
			"RestApi":     {Type: "AWS::ApiGateway::RestApi"},
		},
	}

	assert.Equal(t, []string{"ProxyMethod", "RootMethod"}, tmpl.ResourcesOfType("AWS::ApiGateway::Method"))
	assert.Equal(t, []string{"RestApi"}, tmpl.ResourcesOfType("AWS::ApiGateway::RestApi"))
	assert.Empty(t, tmpl.ResourcesOfType("AWS::S3::Bucket"))
}

func TestTemplate_JSONShape(t *testing.T) {
	tmpl := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Parameters: map[string]Parameter{
			"envParameter": {Type: "String", Description: "envParameter"},
		},
		Resources: map[string]ResourceDef{
			"ApiDeployment": {
				Type:      "AWS::ApiGateway::Deployment",
				DependsOn: []string{"ProxyMethod", "RootMethod"},
			},
		},
		Outputs: map[string]Output{
			"ApiKeyId": {Value: map[string]string{"Ref": "ApiKey"}, Export: &Export{Name: "key"}},
		},
	}

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Contains(t, parsed, "Parameters")
	assert.NotContains(t, parsed, "Description")

	deployment := parsed["Resources"].(map[string]any)["ApiDeployment"].(map[string]any)
	assert.Equal(t, []any{"ProxyMethod", "RootMethod"}, deployment["DependsOn"])
	assert.NotContains(t, deployment, "Properties")

	output := parsed["Outputs"].(map[string]any)["ApiKeyId"].(map[string]any)
	assert.Equal(t, map[string]any{"Name": "key"}, output["Export"])
}
