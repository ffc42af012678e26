package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/differ"
	"github.com/mkuzdowicz/secure-edge-rest/internal/resolve"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

func newDiffCmd() *cobra.Command {
	var (
		params       parameterFlags
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare two templates resource by resource",
		Long: `Diff compares two CloudFormation templates (JSON or YAML). With a single
argument the file is compared with the freshly synthesized template.

With --env or --whitelist both sides are resolved first, so a changed
whitelist shows up as a change to the REST API policy condition.

Examples:
    secure-edge diff deployed.json
    secure-edge diff old.yaml new.yaml --ignore-order
    secure-edge diff resolved-code.json --env CODE --whitelist 10.0.0.0/8`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			left, err := differ.LoadTemplate(args[0])
			if err != nil {
				return err
			}
			var right *edgerest.Template
			if len(args) == 2 {
				right, err = differ.LoadTemplate(args[1])
			} else {
				right, err = stack.Synthesize(cfg)
			}
			if err != nil {
				return err
			}

			if params.set() {
				values, err := params.values(cfg)
				if err != nil {
					return err
				}
				if left, err = resolve.Template(left, values); err != nil {
					return fmt.Errorf("resolving %s: %w", args[0], err)
				}
				if right, err = resolve.Template(right, values); err != nil {
					return fmt.Errorf("resolving new template: %w", err)
				}
			}

			result, err := differ.Compare(left, right, differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	params.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore list element order")

	return cmd
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    edgerest.TemplateDiff `json:"diff"`
			Summary edgerest.DiffSummary  `json:"summary"`
		}{result.Diff, result.Summary}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 {
			fmt.Fprintln(w, "No differences.")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, change := range e.Changes {
				fmt.Fprintf(w, "    %s\n", change)
			}
		}
		for _, change := range result.Diff.Parameters {
			fmt.Fprintf(w, "~ Parameters.%s\n", change)
		}
		for _, change := range result.Diff.Outputs {
			fmt.Fprintf(w, "~ Outputs.%s\n", change)
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
