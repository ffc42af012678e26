package audit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkuzdowicz/secure-edge-rest/internal/serialize"
)

// CloudFormation types checked by the rules.
const (
	typeRole         = "AWS::IAM::Role"
	typeFunction     = "AWS::Lambda::Function"
	typeRestAPI      = "AWS::ApiGateway::RestApi"
	typeAPIKey       = "AWS::ApiGateway::ApiKey"
	typeUsagePlan    = "AWS::ApiGateway::UsagePlan"
	typeUsagePlanKey = "AWS::ApiGateway::UsagePlanKey"
)

// ResourceKinds requires exactly one resource of each core kind.
type ResourceKinds struct{}

func (r ResourceKinds) ID() string { return "EDGE001" }
func (r ResourceKinds) Description() string {
	return "Exactly one role, function, REST API, API key, usage plan and usage-plan key"
}

func (r ResourceKinds) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, cfType := range []string{typeRole, typeFunction, typeRestAPI, typeAPIKey, typeUsagePlan, typeUsagePlanKey} {
		if n := len(ctx.resourcesOfType(cfType)); n != 1 {
			issues = append(issues, ctx.issue(r, SeverityError,
				fmt.Sprintf("expected exactly one %s, found %d", cfType, n),
				"declare a single "+cfType))
		}
	}
	return issues
}

// RoleScoping requires every role statement to name resources inside the
// app's environment namespace. AWS managed KMS aliases are shared by every
// account and are the only exception.
type RoleScoping struct{}

func (r RoleScoping) ID() string { return "EDGE002" }
func (r RoleScoping) Description() string {
	return "Role statements are scoped to the app and environment"
}

func (r RoleScoping) Check(ctx *Context) []Issue {
	var issues []Issue
	envVar := "${" + ctx.EnvParameter + "}"

	for _, name := range ctx.resourcesOfType(typeRole) {
		for i, stmt := range roleStatements(ctx.Template.Resources[name].Properties) {
			where := fmt.Sprintf("%s statement %d", name, i)

			actions, opaqueActions := checkableStrings(stmt["Action"])
			for _, action := range actions {
				if action == "*" || strings.HasSuffix(action, ":*") {
					issues = append(issues, ctx.issue(r, SeverityError,
						fmt.Sprintf("%s grants wildcard action %q", where, action),
						"list the individual actions"))
				}
			}
			for _, v := range opaqueActions {
				issues = append(issues, ctx.issue(r, SeverityError,
					fmt.Sprintf("%s action %s cannot be checked", where, compact(v)),
					"list the actions as plain strings"))
			}

			resources, opaque := checkableStrings(stmt["Resource"])
			if len(resources) == 0 && len(opaque) == 0 {
				issues = append(issues, ctx.issue(r, SeverityError,
					where+" has no resource", "scope the statement to an ARN"))
			}
			for _, arn := range resources {
				switch {
				case arn == "*":
					issues = append(issues, ctx.issue(r, SeverityError,
						where+" applies to every resource", "scope the statement to an ARN"))
				case strings.Contains(arn, ":alias/aws/"):
				case !strings.Contains(arn, envVar) || !strings.Contains(arn, ctx.AppName):
					issues = append(issues, ctx.issue(r, SeverityError,
						fmt.Sprintf("%s resource %q is not scoped to %s and %s", where, arn, ctx.AppName, envVar),
						"include the app name and "+envVar+" in the ARN"))
				}
			}
			for _, v := range opaque {
				issues = append(issues, ctx.issue(r, SeverityError,
					fmt.Sprintf("%s resource %s cannot be checked for scope", where, compact(v)),
					"write the ARN as a plain string or a Fn::Sub string"))
			}
		}
	}
	return issues
}

// IPAllowlist requires the REST API policy to deny invoke to every source IP
// outside the whitelist parameter.
type IPAllowlist struct{}

func (r IPAllowlist) ID() string { return "EDGE003" }
func (r IPAllowlist) Description() string {
	return "The REST API denies callers outside the IP whitelist"
}

func (r IPAllowlist) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, name := range ctx.resourcesOfType(typeRestAPI) {
		if !hasWhitelistDeny(ctx.Template.Resources[name].Properties, ctx.WhitelistParameter) {
			issues = append(issues, ctx.issue(r, SeverityError,
				name+" policy does not deny execute-api:Invoke outside "+ctx.WhitelistParameter,
				"add a Deny statement with NotIpAddress aws:SourceIp"))
		}
	}
	return issues
}

// hasWhitelistDeny reports whether the policy denies invoke on every method
// of every stage to any principal whose source IP is outside whitelist.
func hasWhitelistDeny(props map[string]any, whitelist string) bool {
	policy, _ := props["Policy"].(map[string]any)
	for _, s := range asList(policy["Statement"]) {
		stmt, _ := s.(map[string]any)
		if stmt["Effect"] != "Deny" || !contains(stringList(stmt["Action"]), "execute-api:Invoke") {
			continue
		}
		if !anyPrincipal(stmt["Principal"]) || !coversAllMethods(stmt["Resource"]) {
			continue
		}
		cond, _ := stmt["Condition"].(map[string]any)
		notIP, _ := cond["NotIpAddress"].(map[string]any)
		for _, ref := range serialize.References(notIP["aws:SourceIp"]) {
			if ref.Name == whitelist {
				return true
			}
		}
	}
	return false
}

// anyPrincipal matches "*" and {"AWS": "*"}.
func anyPrincipal(v any) bool {
	if s, ok := v.(string); ok {
		return s == "*"
	}
	p, _ := v.(map[string]any)
	if len(p) != 1 {
		return false
	}
	return contains(stringList(p["AWS"]), "*")
}

// coversAllMethods reports whether resource names every stage, method and path.
func coversAllMethods(resource any) bool {
	for _, arn := range stringList(resource) {
		if arn == "execute-api:/*" || arn == "execute-api:/*/*/*" {
			return true
		}
	}
	return false
}

// APIKeyRequired requires every method to demand an API key and the API to
// read keys from the x-api-key header.
type APIKeyRequired struct{}

func (r APIKeyRequired) ID() string { return "EDGE004" }
func (r APIKeyRequired) Description() string {
	return "Every method requires an API key read from the header"
}

func (r APIKeyRequired) Check(ctx *Context) []Issue {
	var issues []Issue

	methods := ctx.Typed.GetAllApiGatewayMethodResources()
	if len(methods) == 0 {
		issues = append(issues, ctx.issue(r, SeverityWarning, "template declares no API methods", ""))
	}
	for _, name := range sortedKeys(methods) {
		m := methods[name]
		if m.ApiKeyRequired == nil || !*m.ApiKeyRequired {
			issues = append(issues, ctx.issue(r, SeverityError,
				name+" does not require an API key", "set ApiKeyRequired: true"))
		}
	}

	apis := ctx.Typed.GetAllApiGatewayRestApiResources()
	for _, name := range sortedKeys(apis) {
		api := apis[name]
		if api.ApiKeySourceType == nil || *api.ApiKeySourceType != "HEADER" {
			issues = append(issues, ctx.issue(r, SeverityError,
				name+" does not read API keys from the header", "set ApiKeySourceType: HEADER"))
		}
	}
	return issues
}

// AppTags requires the App and Env tags on the role, function and REST API.
type AppTags struct{}

func (r AppTags) ID() string { return "EDGE005" }
func (r AppTags) Description() string {
	return "Role, function and REST API carry App and Env tags"
}

func (r AppTags) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, cfType := range []string{typeRole, typeFunction, typeRestAPI} {
		for _, name := range ctx.resourcesOfType(cfType) {
			tags := tagMap(ctx.Template.Resources[name].Properties["Tags"])

			if _, ok := tags["App"]; !ok {
				issues = append(issues, ctx.issue(r, SeverityWarning, name+" has no App tag", "tag App with the app name"))
			}
			env, ok := tags["Env"]
			if !ok {
				issues = append(issues, ctx.issue(r, SeverityWarning, name+" has no Env tag", "tag Env with Ref "+ctx.EnvParameter))
				continue
			}
			if !referencesName(env, ctx.EnvParameter) {
				issues = append(issues, ctx.issue(r, SeverityWarning,
					name+" Env tag does not reference "+ctx.EnvParameter, "tag Env with Ref "+ctx.EnvParameter))
			}
		}
	}
	return issues
}

func tagMap(v any) map[string]any {
	tags := make(map[string]any)
	for _, t := range asList(v) {
		tag, _ := t.(map[string]any)
		if key, ok := tag["Key"].(string); ok {
			tags[key] = tag["Value"]
		}
	}
	return tags
}

func referencesName(v any, name string) bool {
	for _, ref := range serialize.References(v) {
		if ref.Name == name {
			return true
		}
	}
	return false
}

// roleStatements returns the statements of every inline policy of a role.
func roleStatements(props map[string]any) []map[string]any {
	var out []map[string]any
	for _, p := range asList(props["Policies"]) {
		policy, _ := p.(map[string]any)
		doc, _ := policy["PolicyDocument"].(map[string]any)
		for _, s := range asList(doc["Statement"]) {
			if stmt, ok := s.(map[string]any); ok {
				out = append(out, stmt)
			}
		}
	}
	return out
}

func asList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case nil:
		return nil
	default:
		return []any{val}
	}
}

// stringList flattens a string, Fn::Sub or list of either into plain strings.
// Other values are dropped.
func stringList(v any) []string {
	out, _ := checkableStrings(v)
	return out
}

// checkableStrings splits v into the strings that can be inspected as written
// (plain strings and string-form Fn::Sub) and the values that cannot, such
// as Ref, Fn::Join, Fn::GetAtt or a Fn::Sub with a variable map.
func checkableStrings(v any) (strs []string, opaque []any) {
	for _, item := range asList(v) {
		switch val := item.(type) {
		case string:
			strs = append(strs, val)
		case map[string]any:
			if s, ok := val["Fn::Sub"].(string); ok && len(val) == 1 {
				strs = append(strs, s)
				continue
			}
			opaque = append(opaque, val)
		default:
			opaque = append(opaque, val)
		}
	}
	return strs, opaque
}

// compact renders v as single-line JSON for messages.
func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
