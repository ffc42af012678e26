package stack

import (
	. "github.com/mkuzdowicz/secure-edge-rest/intrinsics"
	"github.com/mkuzdowicz/secure-edge-rest/resources/iam"
)

// LambdaPrincipal is the service trusted to assume the execution role.
const LambdaPrincipal = "lambda.amazonaws.com"

// KMSDefaultSSMKey is the AWS managed key that encrypts SecureString parameters.
const KMSDefaultSSMKey = "alias/aws/ssm"

// FunctionName returns the Fn::Sub name of the function, "{app}-${envParameter}".
func FunctionName(app string, env Parameter) string {
	return app + "-" + env.SubVar()
}

// LogGroupARN returns the Fn::Sub ARN of the function's own log group.
func LogGroupARN(app string, env Parameter) string {
	return ServiceARN("logs", "log-group:/aws/lambda/"+FunctionName(app, env)+":*")
}

// ParameterPathARN returns the Fn::Sub ARN of the SSM parameter path
// "/{env}/{app}" the function reads its settings from.
func ParameterPathARN(app string, env Parameter) string {
	return ServiceARN("ssm", "parameter/"+env.SubVar()+"/"+app)
}

// RolePolicy returns the execution role's permissions: read the app's SSM
// parameter path, decrypt it, and write the function's own logs.
func RolePolicy(app string, env Parameter) PolicyDocument {
	logGroup := Sub{String: LogGroupARN(app, env)}

	return NewPolicyDocument(
		PolicyStatement{
			Effect:   Allow,
			Action:   []any{"ssm:GetParametersByPath"},
			Resource: []any{Sub{String: ParameterPathARN(app, env)}},
		},
		PolicyStatement{
			Effect:   Allow,
			Action:   []any{"kms:Decrypt"},
			Resource: []any{Sub{String: ServiceARN("kms", KMSDefaultSSMKey)}},
		},
		PolicyStatement{
			Effect:   Allow,
			Action:   []any{"logs:CreateLogGroup"},
			Resource: []any{logGroup},
		},
		PolicyStatement{
			Effect:   Allow,
			Action:   []any{"logs:CreateLogStream", "logs:PutLogEvents"},
			Resource: []any{logGroup},
		},
	)
}

// ExecutionRole builds the role the function runs as.
func ExecutionRole(app string, env Parameter) iam.Role {
	return iam.Role{
		AssumeRolePolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect:    Allow,
			Principal: ServicePrincipal{LambdaPrincipal},
			Action:    "sts:AssumeRole",
		}),
		Policies: []iam.Role_Policy{{
			PolicyName:     Sub{String: app + "-policy-" + env.SubVar()},
			PolicyDocument: RolePolicy(app, env),
		}},
		Tags: appTags(app, env),
	}
}

// appTags are the App and Env tags carried by every taggable resource.
func appTags(app string, env Parameter) []any {
	var tags []any
	for _, t := range Tags("App", app, "Env", env) {
		tags = append(tags, t)
	}
	return tags
}
