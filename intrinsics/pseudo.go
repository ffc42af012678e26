package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// AWS_STACK_NAME is the pseudo parameter holding the stack name.
//
// Usage:
//
//	name := Join{Delimiter: "-", Values: []any{AWS_STACK_NAME, "ApiEndpoint"}}
var AWS_STACK_NAME = intrinsics.AWS_STACK_NAME

// ARN prefixes for Fn::Sub strings scoped to the current partition, region and account.
const (
	// ARNPrefix is "arn:${AWS::Partition}".
	ARNPrefix = "arn:${AWS::Partition}"
	// RegionAccount is "${AWS::Region}:${AWS::AccountId}".
	RegionAccount = "${AWS::Region}:${AWS::AccountId}"
)

// ServiceARN builds a Fn::Sub ARN string for service in the current region
// and account, e.g. ServiceARN("logs", "log-group:/aws/lambda/app:*").
func ServiceARN(service, resource string) string {
	return ARNPrefix + ":" + service + ":" + RegionAccount + ":" + resource
}
