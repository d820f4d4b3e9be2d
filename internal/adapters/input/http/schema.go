package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"zeptrion-bridge/internal/domain/model"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// commandSchema checks the shape of a command request. Value ranges are left to the translator
// so the caller gets its InvalidParameter error.
const commandSchema = `{
  "type": "object",
  "required": ["command"],
  "additionalProperties": false,
  "properties": {
    "command": {"enum": [%s]},
    "arg": {"type": "integer"}
  },
  "allOf": [
    {
      "if": {"properties": {"command": {"enum": ["recall_scene", "dim"]}}},
      "then": {"required": ["arg"]}
    },
    {
      "if": {"properties": {"command": {"enum": ["open", "close", "stop", "on", "off"]}}},
      "then": {"not": {"required": ["arg"]}}
    }
  ]
}`

// CommandValidator validates command request bodies against a JSON Schema.
type CommandValidator struct {
	schema *jsonschema.Schema
}

func NewCommandValidator() (*CommandValidator, error) {
	names := make([]string, 0, 9)
	for k := model.CommandOpen; k <= model.CommandDim; k++ {
		names = append(names, fmt.Sprintf("%q", k.String()))
	}
	doc := fmt.Sprintf(commandSchema, strings.Join(names, ", "))

	var schemaMap any
	if err := json.Unmarshal([]byte(doc), &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("command.json", schemaMap); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := c.Compile("command.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile: %w", err)
	}
	return &CommandValidator{schema: compiled}, nil
}

func (v *CommandValidator) Validate(payload any) error {
	return v.schema.Validate(payload)
}

type CommandRequest struct {
	Command string `json:"command"`
	Arg     *int   `json:"arg,omitempty"`
}

// Decode validates body and converts it into a command. Step commands without an arg use
// stepMs.
func (v *CommandValidator) Decode(body []byte, stepMs int) (model.Command, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.Command{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.Validate(payload); err != nil {
		return model.Command{}, err
	}

	var req CommandRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return model.Command{}, fmt.Errorf("invalid JSON: %w", err)
	}
	kind, ok := model.ParseCommandKind(req.Command)
	if !ok {
		return model.Command{}, fmt.Errorf("unknown command %q", req.Command)
	}
	cmd := model.Command{Kind: kind}
	switch {
	case req.Arg != nil:
		cmd.Arg = *req.Arg
	case kind == model.CommandStepUp || kind == model.CommandStepDown:
		cmd.Arg = stepMs
	}
	return cmd, nil
}
