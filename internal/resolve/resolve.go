// Package resolve previews a synthesized template with concrete parameter
// values substituted.
//
// Parameter references are replaced by their values through the goformation
// intrinsic processor. References to resources, attributes and pseudo
// parameters are only known to CloudFormation at deploy time and are kept.
package resolve

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/awslabs/goformation/v7/intrinsics"

	edgerest "github.com/mkuzdowicz/secure-edge-rest"
)

// Template returns a copy of tmpl with the given parameters substituted.
// Parameters not listed keep their Ref.
func Template(tmpl *edgerest.Template, params map[string]string) (*edgerest.Template, error) {
	for name := range params {
		if _, ok := tmpl.Parameters[name]; !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	processed, err := JSON(data, params)
	if err != nil {
		return nil, err
	}

	var out edgerest.Template
	if err := json.Unmarshal(processed, &out); err != nil {
		return nil, fmt.Errorf("decoding resolved template: %w", err)
	}
	return &out, nil
}

// JSON resolves the parameters of a JSON template.
func JSON(data []byte, params map[string]string) ([]byte, error) {
	overrides := make(map[string]interface{}, len(params))
	for name, value := range params {
		overrides[name] = value
	}

	processed, err := intrinsics.ProcessJSON(data, &intrinsics.ProcessorOptions{
		ParameterOverrides: overrides,
		IntrinsicHandlerOverrides: map[string]intrinsics.IntrinsicHandler{
			"Ref":        ref,
			"Fn::GetAtt": keep,
			"Fn::Sub":    sub,
			"Fn::Split":  split,
			"Fn::Join":   join,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("processing intrinsics: %w", err)
	}
	return processed, nil
}

// parameterValue returns the overridden value of a template parameter. The
// processor stores overrides as the parameter's Default.
func parameterValue(name string, template interface{}) (interface{}, bool) {
	tmpl, ok := template.(map[string]interface{})
	if !ok {
		return nil, false
	}
	params, ok := tmpl["Parameters"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	param, ok := params[name].(map[string]interface{})
	if !ok {
		return nil, false
	}
	value, ok := param["Default"]
	return value, ok
}

func ref(name string, input interface{}, template interface{}) interface{} {
	if s, ok := input.(string); ok {
		if value, ok := parameterValue(s, template); ok {
			return value
		}
	}
	return keep(name, input, template)
}

func keep(name string, input interface{}, _ interface{}) interface{} {
	return map[string]interface{}{name: input}
}

var subVariable = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

func sub(name string, input interface{}, template interface{}) interface{} {
	var str string
	var locals map[string]interface{}

	switch v := input.(type) {
	case string:
		str = v
	case []interface{}:
		if len(v) != 2 {
			return keep(name, input, template)
		}
		str, _ = v[0].(string)
		locals, _ = v[1].(map[string]interface{})
	default:
		return keep(name, input, template)
	}

	unresolved := false
	out := subVariable.ReplaceAllStringFunc(str, func(m string) string {
		variable := m[2 : len(m)-1]
		if local, ok := locals[variable].(string); ok {
			return local
		}
		if _, isLocal := locals[variable]; !isLocal {
			if value, ok := parameterValue(variable, template); ok {
				if s, ok := value.(string); ok {
					return s
				}
			}
		}
		unresolved = true
		return m
	})

	if !unresolved {
		return out
	}
	if locals != nil {
		return map[string]interface{}{name: []interface{}{out, locals}}
	}
	return map[string]interface{}{name: out}
}

func split(name string, input interface{}, template interface{}) interface{} {
	args, ok := input.([]interface{})
	if !ok || len(args) != 2 {
		return keep(name, input, template)
	}
	delim, ok1 := args[0].(string)
	source, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return keep(name, input, template)
	}

	var parts []interface{}
	for _, p := range strings.Split(source, delim) {
		parts = append(parts, p)
	}
	return parts
}

func join(name string, input interface{}, template interface{}) interface{} {
	args, ok := input.([]interface{})
	if !ok || len(args) != 2 {
		return keep(name, input, template)
	}
	delim, ok := args[0].(string)
	values, ok2 := args[1].([]interface{})
	if !ok || !ok2 {
		return keep(name, input, template)
	}

	parts := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return keep(name, input, template)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, delim)
}
