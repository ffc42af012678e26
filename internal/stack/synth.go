package stack

import (
	"fmt"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	. "github.com/mkuzdowicz/secure-edge-rest/intrinsics"
)

// Parameter and resource logical IDs.
const (
	EnvParameterName       = "envParameter"
	WhitelistParameterName = "allWhitelistedIps"
	RoleID                 = "ExecutionRole"
	FunctionID             = "Function"
)

// Output names.
const (
	OutputAPIEndpoint  = "ApiEndpoint"
	OutputAPIKeyID     = "ApiKeyId"
	OutputFunctionName = "FunctionName"
)

// Patterns CloudFormation checks the parameter values against.
const (
	EnvPattern       = `^[A-Za-z0-9-]+$`
	WhitelistPattern = `^[0-9A-Fa-f.:]+/[0-9]{1,3}(,[0-9A-Fa-f.:]+/[0-9]{1,3})*$`
)

// EnvParameter is the deployment environment, e.g. CODE or PROD.
var EnvParameter = Parameter{
	Type:                  "String",
	Description:           EnvParameterName,
	AllowedPattern:        EnvPattern,
	ConstraintDescription: "letters, digits and hyphens",
}

// WhitelistParameter is the comma-joined list of CIDR blocks allowed to call the API.
var WhitelistParameter = Parameter{
	Type:                  "String",
	Description:           WhitelistParameterName,
	AllowedPattern:        WhitelistPattern,
	ConstraintDescription: "comma-separated CIDR blocks without spaces",
}

// Build declares the full secure-edge stack: execution role, function and
// the API group in front of it.
func Build(cfg *config.Config) (*Stack, error) {
	s := New(fmt.Sprintf("%s: Lambda behind an IP-allowlisted, API-key protected REST API", cfg.AppName))

	env, err := s.AddParameter(EnvParameterName, EnvParameter)
	if err != nil {
		return nil, err
	}
	whitelist, err := s.AddParameter(WhitelistParameterName, WhitelistParameter)
	if err != nil {
		return nil, err
	}

	role, err := s.Add(RoleID, ExecutionRole(cfg.AppName, env))
	if err != nil {
		return nil, err
	}
	function, err := s.Add(FunctionID, Function(cfg, role.GetAtt("Arn"), env))
	if err != nil {
		return nil, err
	}
	api, err := AddAPI(s, cfg, function, env, whitelist)
	if err != nil {
		return nil, err
	}

	if err := addOutputs(s, function, api); err != nil {
		return nil, err
	}
	return s, nil
}

func addOutputs(s *Stack, function Handle, api APIGroup) error {
	outputs := []struct {
		name string
		out  edgerest.Output
	}{
		{OutputAPIEndpoint, edgerest.Output{
			Description: "Invoke URL of the API stage",
			Value: Sub{String: "https://" + api.RestAPI.SubVar() +
				".execute-api.${AWS::Region}.${AWS::URLSuffix}/" + api.Stage.SubVar() + "/"},
		}},
		{OutputAPIKeyID, edgerest.Output{
			Description: "Id of the API key; fetch its value with apigateway get-api-key",
			Value:       api.APIKey.Ref(),
		}},
		{OutputFunctionName, edgerest.Output{
			Description: "Name of the Lambda function",
			Value:       function.Ref(),
		}},
	}

	for _, o := range outputs {
		o.out.Export = &edgerest.Export{Name: ExportName(o.name)}
		if err := s.AddOutput(o.name, o.out); err != nil {
			return err
		}
	}
	return nil
}

// ExportName is the cross-stack export name of an output, "<stack name>-<output>".
func ExportName(output string) Join {
	return Join{Delimiter: "-", Values: []any{AWS_STACK_NAME, output}}
}

// Synthesize builds the stack and renders it as a CloudFormation template.
func Synthesize(cfg *config.Config) (*edgerest.Template, error) {
	s, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	return s.Template()
}
