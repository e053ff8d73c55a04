package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce sync.Once
	schemaJSON []byte
	schemaErr  error

	compiledOnce   sync.Once
	compiledSchema *jsv.Schema
	compiledErr    error
)

// JSONSchema returns the JSON Schema for the Config struct.
func JSONSchema() ([]byte, error) {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			FieldNameTag:               "yaml",
			RequiredFromJSONSchemaTags: true,
		}
		schema := r.Reflect(&Config{})
		schemaJSON, schemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return schemaJSON, schemaErr
}

func configSchema() (*jsv.Schema, error) {
	compiledOnce.Do(func() {
		data, err := JSONSchema()
		if err != nil {
			compiledErr = err
			return
		}
		compiledSchema, compiledErr = jsv.CompileString("config.schema.json", string(data))
	})
	return compiledSchema, compiledErr
}

// ValidateRaw checks a raw config document against the generated schema.
// It rejects unknown keys and type mismatches with field-level messages
// before the document is decoded into Config.
func ValidateRaw(raw map[string]any) error {
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	payload, err := jsonRoundTrip(raw)
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// jsonRoundTrip normalizes YAML-decoded values into the types a JSON
// parser would produce, which is what the schema validator expects.
func jsonRoundTrip(raw map[string]any) (any, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("serialize config for validation: %w", err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("normalize config for validation: %w", err)
	}
	return payload, nil
}
