package stack

import (
	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	. "github.com/mkuzdowicz/secure-edge-rest/intrinsics"
	"github.com/mkuzdowicz/secure-edge-rest/resources/lambda"
)

// Function builds the Lambda function from the pre-built artifact in the
// deploy bucket. role is the execution role's Arn attribute.
func Function(cfg *config.Config, role edgerest.AttrRef, env Parameter) lambda.Function {
	return lambda.Function{
		FunctionName: Sub{String: FunctionName(cfg.AppName, env)},
		Runtime:      cfg.Runtime,
		Handler:      cfg.Handler,
		MemorySize:   cfg.MemorySize,
		Timeout:      int(cfg.Timeout.Seconds()),
		Role:         role,
		Code: &lambda.Function_Code{
			S3Bucket: cfg.DeployBucket,
			S3Key:    Sub{String: cfg.ArtifactKeyFor(env.SubVar())},
		},
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{
				"App": cfg.AppName,
				"Env": env,
			},
		},
		Tags: appTags(cfg.AppName, env),
	}
}
