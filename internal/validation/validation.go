// Package validation runs the template checks used by the validate command.
//
// A synthesized template goes through these passes:
//   - audit: the security properties of the edge stack (in-process rules)
//   - schema: required properties, types and allowed values (offline)
//   - cfn-lint-go: CloudFormation schema and best-practice rules (library dependency)
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/audit"
	"github.com/mkuzdowicz/secure-edge-rest/internal/schema"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Result contains every validation result for a template.
type Result struct {
	Audit   audit.Result   `json:"audit"`
	Schema  *schema.Result `json:"schema"`
	CfnLint *CfnLintResult `json:"cfn_lint,omitempty"`
}

// Passed reports whether no check found an error.
func (r Result) Passed() bool {
	return r.Audit.Success &&
		(r.Schema == nil || r.Schema.Valid) &&
		(r.CfnLint == nil || r.CfnLint.Passed)
}

// Options configures Template.
type Options struct {
	Audit audit.Options
	// StrictSchema warns about properties missing from the schema.
	StrictSchema bool
	// SkipCfnLint skips the cfn-lint-go pass.
	SkipCfnLint bool
}

// Template audits tmpl, checks it against the resource schemas and, unless
// disabled, lints it with cfn-lint-go.
func Template(tmpl *edgerest.Template, opts Options) (*Result, error) {
	auditResult, err := audit.Template(tmpl, opts.Audit)
	if err != nil {
		return nil, fmt.Errorf("running audit: %w", err)
	}
	result := &Result{
		Audit:  auditResult,
		Schema: schema.ValidateTemplate(tmpl, schema.Options{Strict: opts.StrictSchema}),
	}

	if opts.SkipCfnLint {
		return result, nil
	}
	cfn, err := LintTemplate(tmpl)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	result.CfnLint = cfn
	return result, nil
}

// LintTemplate writes tmpl to a temporary file and runs cfn-lint-go on it.
func LintTemplate(tmpl *edgerest.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	dir, err := os.MkdirTemp("", "secure-edge-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}

	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}
