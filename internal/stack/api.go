package stack

import (
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	. "github.com/mkuzdowicz/secure-edge-rest/intrinsics"
	"github.com/mkuzdowicz/secure-edge-rest/resources/apigateway"
	"github.com/mkuzdowicz/secure-edge-rest/resources/lambda"
)

// API Gateway constants.
const (
	InvokeAction       = "execute-api:Invoke"
	AnyInvokeResource  = "execute-api:/*/*/*"
	APIGatewayService  = "apigateway.amazonaws.com"
	ProxyPathPart      = "{proxy+}"
	APIKeySourceHeader = "HEADER"
)

// Logical IDs of the API group.
const (
	RestAPIName      = "RestApi"
	ProxyResourceID  = "ProxyResource"
	RootMethodID     = "RootMethod"
	ProxyMethodID    = "ProxyMethod"
	PermissionID     = "FunctionInvokePermission"
	DeploymentID     = "Deployment"
	StageID          = "Stage"
	APIKeyID         = "ApiKey"
	UsagePlanID      = "UsagePlan"
	UsagePlanKeyID   = "UsagePlanKey"
	proxyIntegration = "AWS_PROXY"
)

// ResourcePolicy allows invoke from anywhere, then denies every caller whose
// source IP is outside the whitelist. An explicit deny wins over the allow.
func ResourcePolicy(whitelist Parameter) PolicyDocument {
	return NewPolicyDocument(
		PolicyStatement{
			Effect:    Allow,
			Principal: AnyPrincipal,
			Action:    InvokeAction,
			Resource:  AnyInvokeResource,
		},
		PolicyStatement{
			Effect:    Deny,
			Principal: AnyPrincipal,
			Action:    InvokeAction,
			Resource:  AnyInvokeResource,
			Condition: Json{
				NotIpAddress: Json{SourceIPKey: Split{Delimiter: ",", Source: whitelist}},
			},
		},
	)
}

// RestAPI builds the REST API protected by ResourcePolicy.
func RestAPI(app string, env, whitelist Parameter) apigateway.RestApi {
	return apigateway.RestApi{
		Name:             Sub{String: app + "-" + env.SubVar()},
		Description:      Sub{String: "API in " + env.SubVar() + " env"},
		ApiKeySourceType: APIKeySourceHeader,
		Policy:           ResourcePolicy(whitelist),
		Tags:             appTags(app, env),
	}
}

// IntegrationURI returns the Fn::Sub invocation URI of a Lambda function
// given its logical ID.
func IntegrationURI(function Handle) string {
	return ARNPrefix + ":apigateway:${AWS::Region}:lambda:path/2015-03-31/functions/" +
		"${" + function.Name() + ".Arn}/invocations"
}

// ProxyMethod builds an ANY method forwarding to the function. Every method
// requires an API key.
func ProxyMethod(api Handle, resourceID any, function Handle) apigateway.Method {
	return apigateway.Method{
		RestApiId:         api.Ref(),
		ResourceId:        resourceID,
		HttpMethod:        "ANY",
		AuthorizationType: "NONE",
		ApiKeyRequired:    true,
		Integration: &apigateway.Method_Integration{
			Type_:                 proxyIntegration,
			IntegrationHttpMethod: "POST",
			Uri:                   Sub{String: IntegrationURI(function)},
		},
	}
}

// InvokePermission lets any stage and method of the API invoke the function.
func InvokePermission(api, function Handle) lambda.Permission {
	return lambda.Permission{
		Action:       "lambda:InvokeFunction",
		FunctionName: function.GetAtt("Arn"),
		Principal:    APIGatewayService,
		SourceArn:    Sub{String: ServiceARN("execute-api", api.SubVar()+"/*/*/*")},
	}
}

// UsagePlan builds the usage plan bound to the stage, with the configured
// throttle and quota when set.
func UsagePlan(app string, env Parameter, api, stage Handle, limits config.UsagePlan) apigateway.UsagePlan {
	plan := apigateway.UsagePlan{
		UsagePlanName: Sub{String: app + "-usage-plan-" + env.SubVar()},
		ApiStages: []apigateway.UsagePlan_ApiStage{{
			ApiId: api.Ref(),
			Stage: stage.Ref(),
		}},
	}
	if limits.RateLimit > 0 || limits.BurstLimit > 0 {
		plan.Throttle = &apigateway.UsagePlan_ThrottleSettings{
			RateLimit:  limits.RateLimit,
			BurstLimit: limits.BurstLimit,
		}
	}
	if limits.QuotaLimit > 0 {
		plan.Quota = &apigateway.UsagePlan_QuotaSettings{
			Limit:  limits.QuotaLimit,
			Period: limits.QuotaPeriod,
		}
	}
	return plan
}

// APIGroup holds the handles of the registered API resources.
type APIGroup struct {
	RestAPI      Handle
	Proxy        Handle
	RootMethod   Handle
	ProxyMethod  Handle
	Permission   Handle
	Deployment   Handle
	Stage        Handle
	APIKey       Handle
	UsagePlan    Handle
	UsagePlanKey Handle
}

// AddAPI registers the API group fronting function.
func AddAPI(s *Stack, cfg *config.Config, function Handle, env, whitelist Parameter) (APIGroup, error) {
	var g APIGroup
	var err error
	app := cfg.AppName

	if g.RestAPI, err = s.Add(RestAPIName, RestAPI(app, env, whitelist)); err != nil {
		return g, err
	}
	root := g.RestAPI.GetAtt("RootResourceId")

	if g.Proxy, err = s.Add(ProxyResourceID, apigateway.Resource{
		RestApiId: g.RestAPI.Ref(),
		ParentId:  root,
		PathPart:  ProxyPathPart,
	}); err != nil {
		return g, err
	}
	if g.RootMethod, err = s.Add(RootMethodID, ProxyMethod(g.RestAPI, root, function)); err != nil {
		return g, err
	}
	if g.ProxyMethod, err = s.Add(ProxyMethodID, ProxyMethod(g.RestAPI, g.Proxy.Ref(), function)); err != nil {
		return g, err
	}
	if g.Permission, err = s.Add(PermissionID, InvokePermission(g.RestAPI, function)); err != nil {
		return g, err
	}

	// A deployment snapshots the methods that exist when it is created.
	if g.Deployment, err = s.Add(DeploymentID, apigateway.Deployment{
		RestApiId: g.RestAPI.Ref(),
	}, g.RootMethod, g.ProxyMethod); err != nil {
		return g, err
	}
	if g.Stage, err = s.Add(StageID, apigateway.Stage{
		RestApiId:    g.RestAPI.Ref(),
		DeploymentId: g.Deployment.Ref(),
		StageName:    env,
		Tags:         appTags(app, env),
	}); err != nil {
		return g, err
	}

	if g.APIKey, err = s.Add(APIKeyID, apigateway.ApiKey{
		Name:    Sub{String: app + "-key-" + env.SubVar()},
		Enabled: true,
		StageKeys: []apigateway.ApiKey_StageKey{{
			RestApiId: g.RestAPI.Ref(),
			StageName: g.Stage.Ref(),
		}},
	}); err != nil {
		return g, err
	}
	if g.UsagePlan, err = s.Add(UsagePlanID, UsagePlan(app, env, g.RestAPI, g.Stage, cfg.UsagePlan)); err != nil {
		return g, err
	}
	if g.UsagePlanKey, err = s.Add(UsagePlanKeyID, apigateway.UsagePlanKey{
		KeyId:       g.APIKey.Ref(),
		KeyType:     "API_KEY",
		UsagePlanId: g.UsagePlan.Ref(),
	}); err != nil {
		return g, err
	}

	return g, nil
}
