// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    edgerest.TemplateDiff
	Summary edgerest.DiffSummary
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(template1, template2 *edgerest.Template, opts Options) (*Result, error) {
	result := &Result{}

	res1 := template1.Resources
	res2 := template2.Resources

	// Find added resources (in template2 but not in template1)
	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, edgerest.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find removed resources (in template1 but not in template2)
	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, edgerest.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find modified resources
	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, edgerest.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	var err error
	if result.Diff.Parameters, err = compareSection(template1.Parameters, template2.Parameters, opts); err != nil {
		return nil, fmt.Errorf("comparing parameters: %w", err)
	}
	if result.Diff.Outputs, err = compareSection(template1.Outputs, template2.Outputs, opts); err != nil {
		return nil, fmt.Errorf("comparing outputs: %w", err)
	}

	result.Summary = edgerest.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
		Sections: len(result.Diff.Parameters) + len(result.Diff.Outputs),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed +
		result.Summary.Modified + result.Summary.Sections

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a file.
func LoadTemplate(path string) (*edgerest.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}

// ParseTemplate parses a JSON or YAML template.
func ParseTemplate(data []byte) (*edgerest.Template, error) {
	var template edgerest.Template

	// Try JSON first
	if err := json.Unmarshal(data, &template); err != nil {
		// YAML decodes numbers as int; round-trip through JSON so both
		// sources compare equal.
		var raw map[string]any
		if yerr := yaml.Unmarshal(data, &raw); yerr != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", yerr)
		}
		converted, jerr := json.Marshal(raw)
		if jerr != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", jerr)
		}
		if jerr := json.Unmarshal(converted, &template); jerr != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", jerr)
		}
	}

	return &template, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 edgerest.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties recursively compares property maps. Nested maps and
// equal-length lists are descended so a change is reported at its leaf,
// e.g. "Policy.Statement[1].Condition modified".
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := joinPath(prefix, key)

		if val1, exists := props1[key]; exists {
			changes = append(changes, compareValues(path, val1, val2, opts)...)
		} else {
			changes = append(changes, fmt.Sprintf("%s added", path))
		}
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", joinPath(prefix, key)))
		}
	}

	sort.Strings(changes)
	return changes
}

func compareValues(path string, val1, val2 any, opts Options) []string {
	if deepEqual(val1, val2, opts) {
		return nil
	}

	m1, ok1 := val1.(map[string]any)
	m2, ok2 := val2.(map[string]any)
	if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
		return compareProperties(path, m1, m2, opts)
	}

	l1, ok1 := val1.([]any)
	l2, ok2 := val2.([]any)
	if ok1 && ok2 && len(l1) == len(l2) && !opts.IgnoreOrder {
		var changes []string
		for i := range l1 {
			changes = append(changes, compareValues(fmt.Sprintf("%s[%d]", path, i), l1[i], l2[i], opts)...)
		}
		return changes
	}

	return []string{fmt.Sprintf("%s modified", path)}
}

// compareSection compares a Parameters or Outputs section. Entries are
// brought into their template encoding first, so a file-loaded section and a
// synthesized one compare on the same terms.
func compareSection[T any](section1, section2 map[string]T, opts Options) ([]string, error) {
	m1, err := toGeneric(section1)
	if err != nil {
		return nil, err
	}
	m2, err := toGeneric(section2)
	if err != nil {
		return nil, err
	}
	return compareProperties("", m1, m2, opts), nil
}

func toGeneric(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// isIntrinsic reports whether m is a single intrinsic call such as Ref or Fn::Sub.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || len(k) > 4 && k[:4] == "Fn::"
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts lists by their JSON encoding so element order is ignored.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		sort.Slice(result, func(i, j int) bool {
			return jsonKey(result[i]) < jsonKey(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any)
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func jsonKey(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []edgerest.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
