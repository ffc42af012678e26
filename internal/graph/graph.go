// Package graph renders the dependency graph of a stack in DOT or Mermaid format.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(s)) {
	case FormatDOT, "":
		return FormatDOT, true
	case FormatMermaid:
		return FormatMermaid, true
	}
	return "", false
}

// Generator creates dependency graphs from declared resources.
type Generator struct {
	// IncludeParameters adds parameter nodes and the edges to them.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate writes the dependency graph to w.
func (g *Generator) Generate(resources []edgerest.DeclaredResource, parameters []edgerest.DeclaredParameter, w io.Writer) error {
	graph := g.buildGraph(resources, parameters)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString returns the graph as a string.
func (g *Generator) GenerateString(resources []edgerest.DeclaredResource, parameters []edgerest.DeclaredParameter) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, parameters, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(resources []edgerest.DeclaredResource, parameters []edgerest.DeclaredParameter) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	// Nodes are added in name order so output is stable across runs.
	resources = append([]edgerest.DeclaredResource(nil), resources...)
	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })

	known := make(map[string]bool, len(resources))
	for _, res := range resources {
		known[res.Name] = true
	}
	params := make(map[string]bool, len(parameters))
	for _, p := range parameters {
		params[p.Name] = true
	}

	if g.ClusterByType {
		g.addClusteredNodes(graph, resources)
	} else {
		for _, res := range resources {
			addResourceNode(graph, res)
		}
	}

	if g.IncludeParameters {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
		}
	}

	for _, res := range resources {
		getAtt := make(map[string]bool)
		for _, usage := range res.AttrRefUsages {
			getAtt[usage.ResourceName] = true
		}

		for _, dep := range edgeTargets(res) {
			if params[dep] && !g.IncludeParameters {
				continue
			}
			if !known[dep] && !params[dep] {
				continue
			}

			e := graph.Edge(graph.Node(res.Name), graph.Node(dep))
			switch {
			case getAtt[dep]:
				e.Attr("color", "blue")
			case !contains(res.Dependencies, dep):
				e.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// edgeTargets merges property references and explicit DependsOn entries.
func edgeTargets(res edgerest.DeclaredResource) []string {
	seen := make(map[string]bool)
	var out []string
	for _, dep := range append(append([]string(nil), res.Dependencies...), res.DependsOn...) {
		if !seen[dep] {
			seen[dep] = true
			out = append(out, dep)
		}
	}
	sort.Strings(out)
	return out
}

func addResourceNode(graph *dot.Graph, res edgerest.DeclaredResource) {
	n := graph.Node(res.Name)
	n.Label(res.Name + "\\n[" + cfType(res.Type) + "]")
}

// addClusteredNodes groups resources by service. Services with a single
// resource are left at the top level.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources []edgerest.DeclaredResource) {
	byService := make(map[string][]edgerest.DeclaredResource)
	var services []string
	for _, res := range resources {
		service := extractService(res.Type)
		if _, ok := byService[service]; !ok {
			services = append(services, service)
		}
		byService[service] = append(byService[service], res)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		if len(members) == 1 {
			addResourceNode(graph, members[0])
			continue
		}

		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, res := range members {
			n := cluster.Node(res.Name)
			n.Label(res.Name + "\\n[" + cfType(res.Type) + "]")
		}
	}
}

// extractService returns the service segment of a CloudFormation type.
// e.g., "apigateway.RestApi" -> "ApiGateway"
func extractService(goType string) string {
	parts := strings.Split(cfType(goType), "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

func cfType(goType string) string {
	if t := template.CFResourceType(goType); t != "" {
		return t
	}
	return goType
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
