package provider

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResponseFormat describes what a Caller should ask the model to return.
type ResponseFormat struct {
	// JSON requests a JSON document instead of free text.
	JSON bool
	// Name labels the schema for providers that require one.
	Name string
	// Schema is an optional JSON schema for the document (see GenerateSchema).
	Schema map[string]any
}

func TextResponse() ResponseFormat {
	return ResponseFormat{}
}

// JSONResponse asks for a JSON document shaped like T.
func JSONResponse[T any](name string) ResponseFormat {
	return ResponseFormat{JSON: true, Name: name, Schema: GenerateSchema[T]()}
}

// GenerateSchema reflects T into an inline JSON schema map (no $ref, no $schema/$id keys).
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
