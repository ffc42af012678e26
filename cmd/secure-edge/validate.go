package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/audit"
	"github.com/mkuzdowicz/secure-edge-rest/internal/differ"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
	"github.com/mkuzdowicz/secure-edge-rest/internal/validation"
)

// exitValidationFailed is the exit status when the template has findings.
const exitValidationFailed = 2

// newValidateCmd creates the "validate" subcommand.
func newValidateCmd() *cobra.Command {
	var (
		outputFormat string
		skipCfnLint  bool
		strict       bool
		rules        []string
	)

	cmd := &cobra.Command{
		Use:   "validate [template]",
		Short: "Audit and lint the template",
		Long: `Validate checks the synthesized template, or an existing template file.

Checks performed:
  - EDGE001..EDGE005: security properties of the edge stack
  - schema: required properties, types and allowed values
  - cfn-lint: CloudFormation schema and best practices

Exits with status 2 when an error-level finding is reported.

Examples:
    secure-edge validate
    secure-edge validate template.json --skip-cfn-lint
    secure-edge validate --rules EDGE002,EDGE003 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var tmpl *edgerest.Template
			file := "template"
			if len(args) == 1 {
				file = args[0]
				tmpl, err = differ.LoadTemplate(file)
			} else {
				tmpl, err = stack.Synthesize(cfg)
			}
			if err != nil {
				return err
			}

			result, err := validation.Template(tmpl, validation.Options{
				Audit: audit.Options{
					AppName:      cfg.AppName,
					File:         file,
					EnabledRules: rules,
				},
				StrictSchema: strict,
				SkipCfnLint:  skipCfnLint,
			})
			if err != nil {
				return err
			}
			return outputValidateResult(cmd.OutOrStdout(), summarize(tmpl, result), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipCfnLint, "skip-cfn-lint", false, "Skip the cfn-lint pass")
	cmd.Flags().BoolVar(&strict, "strict", false, "Warn about properties missing from the resource schemas")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Audit rules to run (default: all)")

	return cmd
}

// summarize flattens audit issues and cfn-lint matches into one result.
func summarize(tmpl *edgerest.Template, result *validation.Result) edgerest.ValidateResult {
	out := edgerest.ValidateResult{
		Success:   result.Passed(),
		Resources: len(tmpl.Resources),
	}

	for _, issue := range result.Audit.Issues {
		msg := issue.Rule + ": " + issue.Message
		if issue.Severity == audit.SeverityError {
			out.Errors = append(out.Errors, msg)
		} else {
			out.Warnings = append(out.Warnings, msg)
		}
	}
	if result.Schema != nil {
		for _, e := range result.Schema.Errors {
			out.Errors = append(out.Errors, fmt.Sprintf("schema: %s.%s: %s", e.Resource, e.Property, e.Message))
		}
		for _, e := range result.Schema.Warnings {
			out.Warnings = append(out.Warnings, fmt.Sprintf("schema: %s.%s: %s", e.Resource, e.Property, e.Message))
		}
	}
	if result.CfnLint != nil {
		out.Errors = append(out.Errors, result.CfnLint.Errors...)
		out.Warnings = append(out.Warnings, result.CfnLint.Warnings...)
	}
	return out
}

func outputValidateResult(w io.Writer, result edgerest.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
		} else {
			fmt.Fprintln(w, "Validation FAILED:")
		}
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return &exitCodeError{code: exitValidationFailed, err: errors.New("validation failed")}
	}
	return nil
}
