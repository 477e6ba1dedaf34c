package heuristics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
	"gopkg.in/yaml.v3"
)

// validateDocument checks a heuristics YAML document against the embedded JSON schema
func validateDocument(ctx context.Context, raw []byte) error {
	schemaJSON, err := embedded.ReadFile("data/" + schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(schemaJSON, rs); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// The schema speaks JSON, so round-trip the YAML through a generic value
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", HeuristicsFile, err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert %s: %w", HeuristicsFile, err)
	}

	keyErrs, err := rs.ValidateBytes(ctx, asJSON)
	if err != nil {
		return fmt.Errorf("validate %s: %w", HeuristicsFile, err)
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.Error())
		}
		return fmt.Errorf("%w: %s", ErrInvalidTables, strings.Join(msgs, "; "))
	}
	return nil
}
