package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
)

func newBuildCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build synthesizes the stack from the configuration and prints the template.

The template keeps envParameter and allWhitelistedIps as parameters; use
"resolve" to preview it with concrete values.

Examples:
    secure-edge build
    secure-edge build -o template.json
    secure-edge build --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tmpl, err := stack.Synthesize(cfg)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			return writeTemplate(cmd.OutOrStdout(), tmpl, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// encodeTemplate renders tmpl as json or yaml.
func encodeTemplate(tmpl *edgerest.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// writeTemplate writes the rendered template to outputFile, or to w when no
// file is given.
func writeTemplate(w io.Writer, tmpl *edgerest.Template, format, outputFile string) error {
	data, err := encodeTemplate(tmpl, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}

	return os.WriteFile(outputFile, data, 0o644)
}
