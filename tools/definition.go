package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Handler executes a tool over its raw JSON arguments and returns a
// JSON-serializable result.
type Handler func(ctx context.Context, input json.RawMessage) (any, error)

// Definition is a tool advertised to the model.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    Handler
}

// GenerateSchema reflects T into an inline JSON schema (no $ref definitions).
// Fields without omitempty are required.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// decode unmarshals tool input into T. Unknown keys are ignored; type
// mismatches surface as an invalid-arguments tool error.
func decode[T any](input json.RawMessage) (T, error) {
	var in T
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return in, invalidArgs("arguments do not match the tool schema: " + err.Error())
	}
	return in, nil
}
