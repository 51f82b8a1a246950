package signal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// inboundSchema describes every message a media gateway may send.
const inboundSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["answered", "disconnected", "failed", "playback_finished", "tone", "endpoint_left", "unit_result", "alert", "ping"]},
    "session": {"type": "string", "minLength": 1},
    "call": {"type": "string", "minLength": 1},
    "unit": {"type": "string", "minLength": 1},
    "conference": {"type": "string", "minLength": 1},
    "endpoint": {"type": "string", "minLength": 1},
    "code": {"type": "integer", "minimum": 100, "maximum": 699},
    "reason": {"type": "string"},
    "tone": {"type": "string", "pattern": "^[0-9A-D*#]$"},
    "name": {"type": "string"},
    "data": {"type": "object", "additionalProperties": {"type": "string"}},
    "headers": {"type": "object", "additionalProperties": {"type": "string"}},
    "scenario": {"type": "string"},
    "params": {"type": "object", "additionalProperties": {"type": "string"}},
    "from": {"type": "string"},
    "to": {"type": "string", "minLength": 1},
    "display_name": {"type": "string"}
  },
  "allOf": [
    {"if": {"properties": {"type": {"enum": ["answered", "tone"]}}},
     "then": {"required": ["session", "call"]}},
    {"if": {"properties": {"type": {"enum": ["disconnected", "failed"]}}},
     "then": {"required": ["session"], "anyOf": [{"required": ["call"]}, {"required": ["unit"]}]}},
    {"if": {"properties": {"type": {"const": "failed"}}}, "then": {"required": ["code"]}},
    {"if": {"properties": {"type": {"const": "tone"}}}, "then": {"required": ["tone"]}},
    {"if": {"properties": {"type": {"const": "playback_finished"}}},
     "then": {"required": ["session"], "anyOf": [{"required": ["call"]}, {"required": ["unit"]}]}},
    {"if": {"properties": {"type": {"const": "endpoint_left"}}},
     "then": {"required": ["session", "conference", "endpoint"]}},
    {"if": {"properties": {"type": {"const": "unit_result"}}},
     "then": {"required": ["session", "unit", "name"]}},
    {"if": {"properties": {"type": {"const": "alert"}}}, "then": {"required": ["from", "to"]}}
  ]
}`

const schemaURL = "voxengine://signal/inbound.json"

func compileInbound() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(inboundSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}
