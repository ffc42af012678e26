package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

func sampleTemplate() *edgerest.Template {
	return &edgerest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Parameters: map[string]edgerest.Parameter{
			"envParameter":      {Type: "String"},
			"allWhitelistedIps": {Type: "String"},
		},
		Resources: map[string]edgerest.ResourceDef{
			"Stage": {
				Type: "AWS::ApiGateway::Stage",
				Properties: map[string]any{
					"StageName":    map[string]any{"Ref": "envParameter"},
					"RestApiId":    map[string]any{"Ref": "RestApi"},
					"DeploymentId": map[string]any{"Ref": "Deployment"},
				},
			},
			"RestApi": {
				Type: "AWS::ApiGateway::RestApi",
				Properties: map[string]any{
					"Description": map[string]any{"Fn::Sub": "API in ${envParameter} env"},
					"Policy": map[string]any{
						"Statement": []any{map[string]any{
							"Effect": "Deny",
							"Condition": map[string]any{
								"NotIpAddress": map[string]any{
									"aws:SourceIp": map[string]any{
										"Fn::Split": []any{",", map[string]any{"Ref": "allWhitelistedIps"}},
									},
								},
							},
						}},
					},
				},
			},
			"Function": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Role":         map[string]any{"Fn::GetAtt": []any{"ExecutionRole", "Arn"}},
					"FunctionName": map[string]any{"Fn::Sub": "app-${envParameter}"},
					"Uri":          map[string]any{"Fn::Sub": "arn:${AWS::Partition}:lambda:${AWS::Region}:fn/app-${envParameter}"},
				},
			},
		},
	}
}

func TestTemplate_SubstitutesParameters(t *testing.T) {
	out, err := Template(sampleTemplate(), map[string]string{
		"envParameter":      "CODE",
		"allWhitelistedIps": "10.0.0.0/8,192.168.0.0/16",
	})
	require.NoError(t, err)

	stage := out.Resources["Stage"].Properties
	assert.Equal(t, "CODE", stage["StageName"])
	assert.Equal(t, map[string]any{"Ref": "RestApi"}, stage["RestApiId"])

	api := out.Resources["RestApi"].Properties
	assert.Equal(t, "API in CODE env", api["Description"])

	stmt := api["Policy"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	cond := stmt["Condition"].(map[string]any)["NotIpAddress"].(map[string]any)
	assert.Equal(t, []any{"10.0.0.0/8", "192.168.0.0/16"}, cond["aws:SourceIp"])

	fn := out.Resources["Function"].Properties
	assert.Equal(t, "app-CODE", fn["FunctionName"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ExecutionRole", "Arn"}}, fn["Role"])
	assert.Equal(t,
		map[string]any{"Fn::Sub": "arn:${AWS::Partition}:lambda:${AWS::Region}:fn/app-CODE"},
		fn["Uri"], "pseudo parameters stay for CloudFormation")
}

func TestTemplate_PartialParameters(t *testing.T) {
	out, err := Template(sampleTemplate(), map[string]string{"envParameter": "PROD"})
	require.NoError(t, err)

	api := out.Resources["RestApi"].Properties
	stmt := api["Policy"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	cond := stmt["Condition"].(map[string]any)["NotIpAddress"].(map[string]any)
	assert.Equal(t,
		map[string]any{"Fn::Split": []any{",", map[string]any{"Ref": "allWhitelistedIps"}}},
		cond["aws:SourceIp"])
}

func TestTemplate_UnknownParameter(t *testing.T) {
	_, err := Template(sampleTemplate(), map[string]string{"region": "eu-west-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parameter")
}

func TestSub_WithLocals(t *testing.T) {
	tmpl := map[string]interface{}{
		"Parameters": map[string]interface{}{
			"envParameter": map[string]interface{}{"Default": "CODE"},
		},
	}

	got := sub("Fn::Sub", []interface{}{"${Name}-${envParameter}", map[string]interface{}{"Name": "edge"}}, tmpl)
	assert.Equal(t, "edge-CODE", got)

	got = sub("Fn::Sub", "${RestApi}-${!Literal}", tmpl)
	assert.Equal(t, map[string]interface{}{"Fn::Sub": "${RestApi}-${!Literal}"}, got)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a-b", join("Fn::Join", []interface{}{"-", []interface{}{"a", "b"}}, nil))

	unresolved := []interface{}{"-", []interface{}{"a", map[string]interface{}{"Ref": "RestApi"}}}
	assert.Equal(t, map[string]interface{}{"Fn::Join": unresolved}, join("Fn::Join", unresolved, nil))
}
