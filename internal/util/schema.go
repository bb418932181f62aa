package util

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
)

// ValidationError reports the first argument that does not satisfy a tool
// schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives the JSON schema of a tool's arguments from a struct
// value. Recognized field tags:
//
//	json:"name[,omitempty]"  property name; omitempty and pointers are optional
//	description:"..."        property description shown to the model
//	enum:"a,b,c"             allowed values
//	pattern:"^[0-9]+$"       regular expression a string must match
//
// Anything that is not a struct yields an empty object schema.
func CreateSchema(v any) map[string]any {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}

	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		name, optional, skip := jsonName(f)
		if skip {
			continue
		}

		properties[name] = propertySchema(f)

		if !optional && f.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func jsonName(f reflect.StructField) (name string, optional, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}

	return name, slices.Contains(strings.Split(opts, ","), "omitempty"), false
}

func propertySchema(f reflect.StructField) map[string]any {
	prop := map[string]any{"type": jsonType(f.Type)}

	if d := f.Tag.Get("description"); d != "" {
		prop["description"] = d
	}

	if e := f.Tag.Get("enum"); e != "" {
		var values []any
		for _, v := range strings.Split(e, ",") {
			values = append(values, strings.TrimSpace(v))
		}

		prop["enum"] = values
	}

	if p := f.Tag.Get("pattern"); p != "" {
		prop["pattern"] = p
	}

	return prop
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonType(t.Elem())
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// ValidateParameters checks decoded tool arguments against schema: required
// properties, JSON types, enums and string patterns. Unknown properties are
// allowed and a null value satisfies any type.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	for name, value := range params {
		prop, ok := properties[name].(map[string]any)
		if !ok || value == nil {
			continue
		}

		if err := checkProperty(name, value, prop); err != nil {
			return err
		}
	}

	return nil
}

func checkProperty(name string, value any, prop map[string]any) error {
	want, _ := prop["type"].(string)
	if !hasType(value, want) {
		return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("expected type %s, got %T", want, value)}
	}

	if enum, ok := prop["enum"].([]any); ok && !slices.ContainsFunc(enum, func(e any) bool { return fmt.Sprint(e) == fmt.Sprint(value) }) {
		return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("value must be one of %v", enum)}
	}

	if pattern, ok := prop["pattern"].(string); ok {
		s, _ := value.(string)

		re, err := regexp.Compile(pattern)
		if err != nil {
			return &ValidationError{Field: name, Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
		}

		if !re.MatchString(s) {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("value must match %s", pattern)}
		}
	}

	return nil
}

// requiredFields accepts both the []string form built in Go and the []any
// form produced by JSON decoding.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))

		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}

		return out
	}

	return nil
}

// hasType reports whether a JSON-decoded value has the schema type want.
// Numbers decode as float64, so integers are floats without a fraction.
func hasType(value any, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "integer", "number":
		var f float64

		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		default:
			return false
		}

		return want == "number" || f == float64(int64(f))
	default:
		return true
	}
}
