package hydro

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchemaJSON string

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		configSchema, configSchemaErr = jsonschema.CompileString("config.schema.json", configSchemaJSON)
	})
	return configSchema, configSchemaErr
}

// LoadFile reads a YAML config. Keys missing from the file keep their
// DefaultConfig values.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := ParseYAML(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseYAML decodes a YAML document on top of DefaultConfig after checking it
// against the embedded schema.
func ParseYAML(raw []byte) (Config, error) {
	if err := validateDocument(raw); err != nil {
		return Config{}, err
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// validateDocument converts the YAML tree to JSON values before validation so
// numbers reach the schema as json.Number.
func validateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if doc == nil {
		return nil
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config to json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("config to json: %w", err)
	}
	schema, err := compiledConfigSchema()
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return nil
}

// WriteFile stores c as YAML.
func WriteFile(path string, c Config) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
