// Package serialize converts resource structs to CloudFormation properties and
// extracts the references between them.
package serialize

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - JSON tag names (Type_ fields tagged "Type")
// - Omitting nil/zero values and empty nested structs
// - Values implementing json.Marshaler (intrinsics, principals, parameters)
func Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, err
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		// Pointer receivers implementing json.Marshaler are checked before unwrapping.
		if v.Kind() == reflect.Ptr {
			if out, ok, err := marshalerValue(v); ok {
				return out, err
			}
		}
		return serializeValue(v.Elem())
	}

	if out, ok, err := marshalerValue(v); ok {
		return out, err
	}

	switch v.Kind() {
	case reflect.Struct:
		props, err := Resource(v.Interface())
		if err != nil || len(props) == 0 {
			return nil, err
		}
		return props, nil

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[iter.Key().String()] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return roundTrip(v.Interface())
	}
}

// marshalerValue renders v through its own MarshalJSON when it has one.
func marshalerValue(v reflect.Value) (any, bool, error) {
	if !v.CanInterface() {
		return nil, false, nil
	}
	if _, ok := v.Interface().(json.Marshaler); !ok {
		return nil, false, nil
	}
	out, err := roundTrip(v.Interface())
	return out, true, err
}

func roundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Reference is a use of another template entity inside a property tree.
type Reference struct {
	// Name is the referenced logical name
	Name string
	// Attribute is set for Fn::GetAtt and ${Name.Attr} references
	Attribute string
}

// subVar matches ${Name} and ${Name.Attr} in Fn::Sub strings; ${!Literal} is skipped.
var subVar = regexp.MustCompile(`\$\{([A-Za-z0-9]+)(?:\.([A-Za-z0-9.]+))?\}`)

// References returns every Ref, Fn::GetAtt and Fn::Sub variable found in
// value, sorted and de-duplicated. Pseudo parameters (AWS::*) are skipped.
func References(value any) []Reference {
	seen := make(map[Reference]bool)
	collectRefs(value, seen)

	refs := make([]Reference, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

func collectRefs(value any, seen map[Reference]bool) {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["Ref"].(string); ok && len(v) == 1 {
			if !strings.HasPrefix(name, "AWS::") {
				seen[Reference{Name: name}] = true
			}
			return
		}
		if args, ok := v["Fn::GetAtt"].([]any); ok && len(v) == 1 && len(args) == 2 {
			name, _ := args[0].(string)
			attr, _ := args[1].(string)
			seen[Reference{Name: name, Attribute: attr}] = true
			return
		}
		if sub, ok := v["Fn::Sub"]; ok && len(v) == 1 {
			collectSub(sub, seen)
			return
		}
		for _, val := range v {
			collectRefs(val, seen)
		}
	case []any:
		for _, elem := range v {
			collectRefs(elem, seen)
		}
	}
}

func collectSub(sub any, seen map[Reference]bool) {
	var str string
	var locals map[string]any

	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) > 0 {
			str, _ = s[0].(string)
		}
		if len(s) > 1 {
			locals, _ = s[1].(map[string]any)
			collectRefs(s[1], seen)
		}
	}

	for _, m := range subVar.FindAllStringSubmatch(str, -1) {
		if _, isLocal := locals[m[1]]; isLocal {
			continue
		}
		if strings.HasPrefix(m[0], "${AWS::") {
			continue
		}
		seen[Reference{Name: m[1], Attribute: m[2]}] = true
	}
}
