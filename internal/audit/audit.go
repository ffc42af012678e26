// Package audit checks a synthesized template against the security
// properties of the secure-edge stack.
//
// Rules:
//
//	EDGE001: Exactly one role, function, REST API, API key, usage plan and usage-plan key
//	EDGE002: Role statements are scoped to the app and environment
//	EDGE003: The REST API denies callers outside the IP whitelist
//	EDGE004: Every method requires an API key read from the header
//	EDGE005: Role, function and REST API carry App and Env tags
package audit

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/awslabs/goformation/v7"
	"github.com/awslabs/goformation/v7/cloudformation"
	corelint "github.com/lex00/wetwire-core-go/lint"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

// Type aliases for the core lint issue model.
type (
	// Issue is an alias for corelint.Issue.
	Issue = corelint.Issue
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Rule is a single template check.
type Rule interface {
	ID() string
	Description() string
	Check(ctx *Context) []Issue
}

// Context is the template under audit in both its raw and typed forms.
type Context struct {
	Template *edgerest.Template
	Typed    *cloudformation.Template
	Options
}

// Options configures the audit.
type Options struct {
	// AppName must appear in every scoped ARN
	AppName string
	// EnvParameter is the logical name of the environment parameter
	EnvParameter string
	// WhitelistParameter is the logical name of the IP whitelist parameter
	WhitelistParameter string
	// File is reported as the location of every issue
	File string
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
}

// Result contains the outcome of an audit.
type Result struct {
	Success bool
	Issues  []Issue
}

// AllRules returns every audit rule.
func AllRules() []Rule {
	return []Rule{
		ResourceKinds{},
		RoleScoping{},
		IPAllowlist{},
		APIKeyRequired{},
		AppTags{},
	}
}

// Template audits tmpl. Success is false when any error-severity issue is found.
func Template(tmpl *edgerest.Template, opts Options) (Result, error) {
	if opts.EnvParameter == "" {
		opts.EnvParameter = "envParameter"
	}
	if opts.WhitelistParameter == "" {
		opts.WhitelistParameter = "allWhitelistedIps"
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		return Result{}, fmt.Errorf("encoding template: %w", err)
	}
	typed, err := goformation.ParseJSON(data)
	if err != nil {
		return Result{}, fmt.Errorf("parsing template: %w", err)
	}

	ctx := &Context{Template: tmpl, Typed: typed, Options: opts}

	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(ctx)...)
	}

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}, nil
}

func getRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func (c *Context) issue(rule Rule, severity Severity, msg, suggestion string) Issue {
	return Issue{
		Rule:       rule.ID(),
		Message:    msg,
		Suggestion: suggestion,
		File:       c.File,
		Severity:   severity,
	}
}

// resourcesOfType returns the sorted logical names of resources of cfType.
func (c *Context) resourcesOfType(cfType string) []string {
	return c.Template.ResourcesOfType(cfType)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
