package runtimeconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://schemas.kr8tiv.local/openclaw.schema.json"

//go:embed runtime_config.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func runtimeSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("runtime config schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("runtime config schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Guard validates cfg against the embedded openclaw.json schema. It fails
// closed: a config that cannot be checked is rejected.
func Guard(cfg *RuntimeConfig) error {
	if cfg == nil {
		return fmt.Errorf("runtime config guard: nil config")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("runtime config guard: %w", err)
	}
	return ValidateDocument(data)
}

// ValidateDocument checks serialized openclaw.json bytes against the schema.
func ValidateDocument(data []byte) error {
	schema, err := runtimeSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("runtime config guard: invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("runtime config guard: %w", err)
	}
	return nil
}
