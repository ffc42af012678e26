package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lex00/cfn-lint-go/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuzdowicz/secure-edge-rest/internal/audit"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/schema"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

func TestCfnLintResult_TotalIssues(t *testing.T) {
	tests := []struct {
		name     string
		result   CfnLintResult
		expected int
	}{
		{"empty result", CfnLintResult{}, 0},
		{"errors only", CfnLintResult{Errors: []string{"error1", "error2"}}, 2},
		{"warnings only", CfnLintResult{Warnings: []string{"warning1"}}, 1},
		{
			name: "mixed issues",
			result: CfnLintResult{
				Errors:        []string{"error1"},
				Warnings:      []string{"warning1", "warning2"},
				Informational: []string{"info1"},
			},
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.TotalIssues())
		})
	}
}

func TestFormatMatch(t *testing.T) {
	tests := []struct {
		name     string
		match    lint.Match
		expected string
	}{
		{
			name: "simple match",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "E1234"},
				Message: "Something is wrong",
			},
			expected: "E1234: Something is wrong",
		},
		{
			name: "match with path",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "W5678"},
				Message: "Warning message",
				Location: lint.MatchLocation{
					Path: []any{"Resources", "RestApi", "Properties"},
				},
			},
			expected: "W5678: Warning message (at Resources/RestApi/Properties)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatMatch(tt.match))
		})
	}
}

func TestRunCfnLint_FileNotFound(t *testing.T) {
	result, err := RunCfnLint("/nonexistent/template.yaml")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Template file not found")
}

func TestRunCfnLint_ValidTemplate(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "template.yaml")

	validTemplate := `AWSTemplateFormatVersion: '2010-09-09'
Description: Test template
Resources:
  Key:
    Type: AWS::ApiGateway::ApiKey
    Properties:
      Enabled: true
`
	require.NoError(t, os.WriteFile(templatePath, []byte(validTemplate), 0o644))

	result, err := RunCfnLint(templatePath)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestResult_Passed(t *testing.T) {
	assert.True(t, Result{Audit: audit.Result{Success: true}}.Passed())
	assert.False(t, Result{Audit: audit.Result{Success: false}}.Passed())
	assert.False(t, Result{
		Audit:   audit.Result{Success: true},
		CfnLint: &CfnLintResult{Passed: false},
	}.Passed())
	assert.False(t, Result{
		Audit:  audit.Result{Success: true},
		Schema: &schema.Result{Valid: false},
	}.Passed())
}

func TestTemplate_AuditOnly(t *testing.T) {
	cfg := config.Default()
	tmpl, err := stack.Synthesize(cfg)
	require.NoError(t, err)

	result, err := Template(tmpl, Options{
		Audit:       audit.Options{AppName: cfg.AppName},
		SkipCfnLint: true,
	})
	require.NoError(t, err)
	assert.Nil(t, result.CfnLint)
	require.NotNil(t, result.Schema)
	assert.Empty(t, result.Schema.Errors)
	assert.True(t, result.Passed())
}

func TestTemplate_AuditFailure(t *testing.T) {
	cfg := config.Default()
	tmpl, err := stack.Synthesize(cfg)
	require.NoError(t, err)
	delete(tmpl.Resources, stack.APIKeyID)

	result, err := Template(tmpl, Options{
		Audit:       audit.Options{AppName: cfg.AppName},
		SkipCfnLint: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Passed())
}

func TestLintTemplate(t *testing.T) {
	tmpl, err := stack.Synthesize(config.Default())
	require.NoError(t, err)

	result, err := LintTemplate(tmpl)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestTemplate_SchemaFailure(t *testing.T) {
	cfg := config.Default()
	tmpl, err := stack.Synthesize(cfg)
	require.NoError(t, err)
	tmpl.Resources[stack.FunctionID].Properties["MemorySize"] = float64(64)

	result, err := Template(tmpl, Options{
		Audit:       audit.Options{AppName: cfg.AppName},
		SkipCfnLint: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Audit.Success)
	assert.False(t, result.Passed())
	require.Len(t, result.Schema.Errors, 1)
	assert.Equal(t, "MemorySize", result.Schema.Errors[0].Property)
}
