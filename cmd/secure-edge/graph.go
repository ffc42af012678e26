package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkuzdowicz/secure-edge-rest/internal/graph"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

func newGraphCmd() *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.
GetAtt references are drawn in blue, explicit DependsOn edges dashed.

The output can be rendered with Graphviz:
    secure-edge graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    secure-edge graph -f mermaid

Examples:
    secure-edge graph -p              # include parameters
    secure-edge graph -c              # cluster by service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := graph.ParseFormat(outputFormat)
			if !ok {
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := stack.Build(cfg)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:            format,
				IncludeParameters: includeParameters,
				ClusterByType:     clusterByType,
			}
			return gen.Generate(s.Resources(), s.Parameters(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service")

	return cmd
}
