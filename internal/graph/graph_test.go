package graph

import (
	"strings"
	"testing"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Api", Type: "apigateway.RestApi"},
		{Name: "Stage", Type: "apigateway.Stage", Dependencies: []string{"Api"}},
	}

	gen := &Generator{}
	var sb strings.Builder
	if err := gen.Generate(resources, nil, &sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()
	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	if !strings.Contains(output, "AWS::ApiGateway::RestApi") {
		t.Errorf("expected CloudFormation type in label, got:\n%s", output)
	}
	if !strings.Contains(output, "->") {
		t.Error("expected edge from Stage to Api")
	}
}

func TestGenerator_Generate_WithGetAtt(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Role", Type: "iam.Role"},
		{
			Name:          "Function",
			Type:          "lambda.Function",
			Dependencies:  []string{"Role"},
			AttrRefUsages: []edgerest.AttrRefUsage{{ResourceName: "Role", Attribute: "Arn"}},
		},
	}

	output, err := (&Generator{}).GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "blue") {
		t.Error("expected blue color for GetAtt edge")
	}
}

func TestGenerator_Generate_DependsOnIsDashed(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Method", Type: "apigateway.Method"},
		{Name: "Deployment", Type: "apigateway.Deployment", DependsOn: []string{"Method"}},
	}

	output, err := (&Generator{}).GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "dashed") {
		t.Errorf("expected dashed DependsOn edge, got:\n%s", output)
	}
}

func TestGenerator_Generate_WithParameters(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Role", Type: "iam.Role", Dependencies: []string{"envParameter"}},
	}
	parameters := []edgerest.DeclaredParameter{{Name: "envParameter"}}

	output, err := (&Generator{IncludeParameters: true}).GenerateString(resources, parameters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "envParameter") {
		t.Error("expected envParameter node")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected ellipse shape for parameter")
	}

	output, err = (&Generator{}).GenerateString(resources, parameters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(output, "envParameter") {
		t.Error("parameters should be hidden by default")
	}
}

func TestGenerator_Generate_ClusterByType(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Api", Type: "apigateway.RestApi"},
		{Name: "Stage", Type: "apigateway.Stage"},
		{Name: "Function", Type: "lambda.Function"},
	}

	output, err := (&Generator{ClusterByType: true}).GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "cluster_ApiGateway") {
		t.Errorf("expected ApiGateway cluster, got:\n%s", output)
	}
	if strings.Contains(output, "cluster_Lambda") {
		t.Error("single-resource services should not be clustered")
	}
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	resources := []edgerest.DeclaredResource{
		{Name: "Api", Type: "apigateway.RestApi"},
		{Name: "Stage", Type: "apigateway.Stage", Dependencies: []string{"Api"}},
	}

	output, err := (&Generator{Format: FormatMermaid}).GenerateString(resources, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("expected mermaid format, not DOT")
	}
}

func TestGenerator_SynthesizedStackIsStable(t *testing.T) {
	s, err := stack.Build(config.Default())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	gen := &Generator{ClusterByType: true, IncludeParameters: true}
	first, err := gen.GenerateString(s.Resources(), s.Parameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gen.GenerateString(s.Resources(), s.Parameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("graph output should be deterministic")
	}

	for _, name := range []string{stack.RoleID, stack.FunctionID, stack.RestAPIName, stack.UsagePlanKeyID} {
		if !strings.Contains(first, name) {
			t.Errorf("expected %s in graph", name)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatDOT, true},
		{"dot", FormatDOT, true},
		{"Mermaid", FormatMermaid, true},
		{"svg", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
