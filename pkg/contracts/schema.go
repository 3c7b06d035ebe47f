package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// taskEnvelopeSchema is the boundary contract for inbound task messages.
// It is deliberately loose about payload numerics: operational_risk and
// confidence are judged by the ops scoring model, which fails loudly on
// garbage instead of letting the boundary silently coerce it.
const taskEnvelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["task_id", "trace_id", "task_type", "payload"],
  "properties": {
    "task_id": {"type": "string", "minLength": 1},
    "trace_id": {"type": "string", "minLength": 1},
    "task_type": {"type": "string", "minLength": 1},
    "agent": {"type": "string"},
    "created_at": {"type": "string"},
    "payload": {
      "type": "object",
      "required": ["description"],
      "properties": {
        "title": {"type": "string"},
        "description": {"type": "string", "minLength": 1},
        "severity": {"type": "string"},
        "recommended_action": {"type": "string"},
        "priority": {"type": "string"},
        "fingerprint": {"type": "string"}
      }
    }
  }
}`

var envelopeSchema = mustCompileSchema("task-envelope", taskEnvelopeSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://rudder.schemas.local/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("schema %s load failed: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("schema %s compile failed: %v", name, err))
	}
	return compiled
}

// ValidateEnvelopeJSON checks raw message bytes against the envelope
// schema before anything downstream touches the payload.
func ValidateEnvelopeJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("envelope is not valid JSON: %w", err)
	}
	if err := envelopeSchema.Validate(v); err != nil {
		return fmt.Errorf("envelope failed schema validation: %w", err)
	}
	return nil
}
