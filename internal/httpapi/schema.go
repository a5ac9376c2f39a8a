package httpapi

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed payload_schema.json
var payloadSchemaJSON []byte

const payloadSchemaURL = "https://linktree-backend/update-payload.json"

func compilePayloadSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payloadSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse payload schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(payloadSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("register payload schema: %w", err)
	}
	schema, err := compiler.Compile(payloadSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return schema, nil
}

// validatePayload checks a raw request body against the update payload
// schema. The body must already be known to be valid JSON.
func validatePayload(schema *jsonschema.Schema, body []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return err
	}
	return schema.Validate(instance)
}
