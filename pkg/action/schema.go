package action

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	schemav "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaResource = "schema.json"

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// InferSchema reflects a JSON schema from T. Interface types and raw JSON
// carry no schema
func InferSchema[T any]() *jsonschema.Schema {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface || t == rawMessageType {
		return nil
	}
	if t == reflect.TypeFor[struct{}]() {
		return nil
	}
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	s := r.ReflectFromType(t)
	s.Version = ""
	return s
}

// ToJSONSchema converts whichever schema representation is present to JSON
// Schema, preferring the native one. Nil is returned when neither exists
func ToJSONSchema(
	native *jsonschema.Schema, precomputed json.RawMessage,
) (json.RawMessage, error) {
	if native != nil {
		return json.Marshal(native)
	}
	if len(precomputed) > 0 {
		return precomputed, nil
	}
	return nil, nil
}

// CompileSchema prepares a JSON schema document for validation
func CompileSchema(schema json.RawMessage) (*schemav.Schema, error) {
	doc, err := schemav.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, err
	}
	c := schemav.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaResource)
}

// ValidateJSON checks an encoded value against a compiled schema. Missing
// input is validated as null
func ValidateJSON(schema *schemav.Schema, input json.RawMessage) error {
	if len(input) == 0 {
		input = json.RawMessage("null")
	}
	inst, err := schemav.UnmarshalJSON(bytes.NewReader(input))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}
