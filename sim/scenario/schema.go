package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "scenario.schema.json"

//go:embed scenario.schema.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("loading scenario schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// SchemaJSON returns the embedded JSON Schema that scenario files are checked against.
func SchemaJSON() []byte {
	return append([]byte(nil), schemaJSON...)
}

// ValidateSchema checks raw scenario YAML against the embedded JSON Schema.
func ValidateSchema(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing scenario: %w", err)
	}
	// Round-trip through JSON so the validator sees json.Number and string-keyed maps.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("scenario is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("scenario is not representable as JSON: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("scenario schema: %w", err)
	}
	return nil
}
