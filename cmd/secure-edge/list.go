package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
)

func newListCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stack resources in deployment order",
		Long: `List shows every resource of the stack, its CloudFormation type and the
resources it depends on. Resources are printed in the order CloudFormation
can create them.

Examples:
    secure-edge list
    secure-edge list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			result, err := listResources(cfg)
			if err != nil {
				return err
			}
			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func listResources(cfg *config.Config) (edgerest.ListResult, error) {
	s, err := stack.Build(cfg)
	if err != nil {
		return edgerest.ListResult{}, err
	}
	order, err := s.Order()
	if err != nil {
		return edgerest.ListResult{}, err
	}

	byName := make(map[string]edgerest.DeclaredResource)
	for _, res := range s.Resources() {
		byName[res.Name] = res
	}

	result := edgerest.ListResult{Resources: make([]edgerest.ListResource, 0, len(order))}
	for _, name := range order {
		res := byName[name]
		var deps []string
		for _, dep := range append(append([]string(nil), res.Dependencies...), res.DependsOn...) {
			if _, ok := byName[dep]; ok {
				deps = append(deps, dep)
			}
		}
		result.Resources = append(result.Resources, edgerest.ListResource{
			Name:         name,
			Type:         template.CFResourceType(res.Type),
			Dependencies: deps,
		})
	}
	return result, nil
}

func outputListResult(w io.Writer, result edgerest.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Stack resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
