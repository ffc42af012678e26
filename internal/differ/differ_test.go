package differ

import (
	"os"
	"path/filepath"
	"testing"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

func TestCompare(t *testing.T) {
	t1 := &edgerest.Template{
		Resources: map[string]edgerest.ResourceDef{
			"ApiKey":    {Type: "AWS::ApiGateway::ApiKey", Properties: map[string]any{"Enabled": true}},
			"UsagePlan": {Type: "AWS::ApiGateway::UsagePlan", Properties: map[string]any{"UsagePlanName": "plan"}},
		},
	}

	t2 := &edgerest.Template{
		Resources: map[string]edgerest.ResourceDef{
			"ApiKey":       {Type: "AWS::ApiGateway::ApiKey", Properties: map[string]any{"Enabled": false}},
			"UsagePlanKey": {Type: "AWS::ApiGateway::UsagePlanKey", Properties: map[string]any{"KeyType": "API_KEY"}},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Removed) != 1 {
		t.Errorf("Removed = %d, want 1", len(result.Diff.Removed))
	} else if result.Diff.Removed[0].Resource != "UsagePlan" {
		t.Errorf("Removed[0].Resource = %s, want UsagePlan", result.Diff.Removed[0].Resource)
	}

	if len(result.Diff.Added) != 1 {
		t.Errorf("Added = %d, want 1", len(result.Diff.Added))
	} else if result.Diff.Added[0].Resource != "UsagePlanKey" {
		t.Errorf("Added[0].Resource = %s, want UsagePlanKey", result.Diff.Added[0].Resource)
	}

	if len(result.Diff.Modified) != 1 {
		t.Errorf("Modified = %d, want 1", len(result.Diff.Modified))
	} else if result.Diff.Modified[0].Resource != "ApiKey" {
		t.Errorf("Modified[0].Resource = %s, want ApiKey", result.Diff.Modified[0].Resource)
	}

	if result.Summary.Total != 3 {
		t.Errorf("Summary.Total = %d, want 3", result.Summary.Total)
	}
}

func TestCompareIdentical(t *testing.T) {
	template := &edgerest.Template{
		Resources: map[string]edgerest.ResourceDef{
			"RestApi": {Type: "AWS::ApiGateway::RestApi", Properties: map[string]any{"Name": "api"}},
		},
	}

	result, err := Compare(template, template, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if result.Summary.Total != 0 {
		t.Errorf("Summary.Total = %d, want 0 for identical templates", result.Summary.Total)
	}
}

func TestCompareTypeChange(t *testing.T) {
	t1 := &edgerest.Template{
		Resources: map[string]edgerest.ResourceDef{"Api": {Type: "AWS::ApiGateway::RestApi"}},
	}
	t2 := &edgerest.Template{
		Resources: map[string]edgerest.ResourceDef{"Api": {Type: "AWS::ApiGatewayV2::Api"}},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Modified) != 1 {
		t.Fatalf("Modified = %d, want 1", len(result.Diff.Modified))
	}
	want := "Type changed: AWS::ApiGateway::RestApi → AWS::ApiGatewayV2::Api"
	if got := result.Diff.Modified[0].Changes[0]; got != want {
		t.Errorf("Changes[0] = %q, want %q", got, want)
	}
}

func TestCompareSections(t *testing.T) {
	t1 := &edgerest.Template{
		Parameters: map[string]edgerest.Parameter{
			"envParameter": {Type: "String", Default: "CODE"},
		},
		Resources: map[string]edgerest.ResourceDef{},
		Outputs: map[string]edgerest.Output{
			"ApiUrl": {Value: map[string]any{"Ref": "RestApi"}},
		},
	}
	t2 := &edgerest.Template{
		Parameters: map[string]edgerest.Parameter{
			"envParameter":      {Type: "String", Default: "PROD"},
			"allWhitelistedIps": {Type: "String"},
		},
		Resources: map[string]edgerest.ResourceDef{},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	wantParams := []string{"allWhitelistedIps added", "envParameter.Default modified"}
	if len(result.Diff.Parameters) != 2 || result.Diff.Parameters[0] != wantParams[0] || result.Diff.Parameters[1] != wantParams[1] {
		t.Errorf("Parameters = %v, want %v", result.Diff.Parameters, wantParams)
	}
	if len(result.Diff.Outputs) != 1 || result.Diff.Outputs[0] != "ApiUrl removed" {
		t.Errorf("Outputs = %v, want [ApiUrl removed]", result.Diff.Outputs)
	}
	if result.Summary.Sections != 3 || result.Summary.Total != 3 {
		t.Errorf("Summary = %+v, want Sections 3, Total 3", result.Summary)
	}
}

func TestCompareNestedPath(t *testing.T) {
	policy := func(cidrs string) map[string]any {
		return map[string]any{
			"Statement": []any{
				map[string]any{"Effect": "Allow"},
				map[string]any{
					"Effect":    "Deny",
					"Condition": map[string]any{"NotIpAddress": map[string]any{"aws:SourceIp": []any{cidrs}}},
				},
			},
		}
	}

	changes := compareProperties("", map[string]any{"Policy": policy("10.0.0.0/8")},
		map[string]any{"Policy": policy("192.168.0.0/16")}, Options{})

	want := "Policy.Statement[1].Condition.NotIpAddress.aws:SourceIp[0] modified"
	if len(changes) != 1 || changes[0] != want {
		t.Errorf("compareProperties() = %v, want [%s]", changes, want)
	}
}

func TestCompareIntrinsicIsLeaf(t *testing.T) {
	changes := compareProperties("",
		map[string]any{"RestApiId": map[string]any{"Ref": "Api1"}},
		map[string]any{"RestApiId": map[string]any{"Ref": "Api2"}}, Options{})

	if len(changes) != 1 || changes[0] != "RestApiId modified" {
		t.Errorf("compareProperties() = %v, want [RestApiId modified]", changes)
	}
}

func TestCompareIgnoreOrder(t *testing.T) {
	props1 := map[string]any{"Action": []any{"logs:CreateLogStream", "logs:PutLogEvents"}}
	props2 := map[string]any{"Action": []any{"logs:PutLogEvents", "logs:CreateLogStream"}}

	if changes := compareProperties("", props1, props2, Options{IgnoreOrder: true}); len(changes) != 0 {
		t.Errorf("IgnoreOrder: got %v, want no changes", changes)
	}
	if changes := compareProperties("", props1, props2, Options{}); len(changes) != 2 {
		t.Errorf("ordered: got %d changes, want 2", len(changes))
	}
}

func TestCompareProperties(t *testing.T) {
	tests := []struct {
		name    string
		props1  map[string]any
		props2  map[string]any
		wantLen int
	}{
		{"identical", map[string]any{"Key": "value"}, map[string]any{"Key": "value"}, 0},
		{"added property", map[string]any{}, map[string]any{"Key": "value"}, 1},
		{"removed property", map[string]any{"Key": "value"}, map[string]any{}, 1},
		{"modified property", map[string]any{"Key": "value1"}, map[string]any{"Key": "value2"}, 1},
		{"list length change", map[string]any{"L": []any{"a"}}, map[string]any{"L": []any{"a", "b"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := compareProperties("", tt.props1, tt.props2, Options{})
			if len(changes) != tt.wantLen {
				t.Errorf("compareProperties() returned %d changes, want %d", len(changes), tt.wantLen)
			}
		})
	}
}

func TestCompareFiles_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	yamlPath := filepath.Join(dir, "b.yaml")

	if err := os.WriteFile(jsonPath, []byte(`{"Resources": {"Fn": {"Type": "AWS::Lambda::Function", "Properties": {"MemorySize": 1536}}}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte("Resources:\n  Fn:\n    Type: AWS::Lambda::Function\n    Properties:\n      MemorySize: 1536\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CompareFiles(jsonPath, yamlPath, Options{})
	if err != nil {
		t.Fatalf("CompareFiles() error = %v", err)
	}
	if result.Summary.Total != 0 {
		t.Errorf("Summary.Total = %d, want 0", result.Summary.Total)
	}
}

func TestLoadTemplate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("[unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEqualStringSlices(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{nil, nil, true},
		{[]string{}, []string{}, true},
		{[]string{"a", "b"}, []string{"a", "b"}, true},
		{[]string{"a"}, []string{"b"}, false},
		{[]string{"a"}, []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		got := equalStringSlices(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("equalStringSlices(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
