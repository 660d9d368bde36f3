package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// OutputSchemaName names the structured output contract when it is handed to
// a backend.
const OutputSchemaName = "generate_response"

// OutputSchema is the JSON Schema every backend is asked to satisfy.
var OutputSchema = json.RawMessage(`{
	"type":"object",
	"additionalProperties":false,
	"properties":{
		"response":{"type":"string","description":"The generated response to the user question."}
	},
	"required":["response"]
}`)

type GenerateResponseInput struct {
	Question string `json:"question"`
}

type GenerateResponseOutput struct {
	Response string `json:"response"`
}

// wireInput and wireOutput use pointers so an absent field can be told apart
// from an empty string.
type wireInput struct {
	Question *string `json:"question"`
}

type wireOutput struct {
	Response *string `json:"response"`
}

// DecodeInput validates a raw JSON request body against the input schema.
func DecodeInput(raw []byte) (GenerateResponseInput, error) {
	var in wireInput
	if err := decodeStrict(raw, &in); err != nil {
		return GenerateResponseInput{}, newError(ErrorInvalidInput, "malformed_input", err)
	}
	if in.Question == nil {
		return GenerateResponseInput{}, newError(ErrorInvalidInput, "missing_question", nil)
	}
	return GenerateResponseInput{Question: *in.Question}, nil
}

// DecodeOutput validates raw backend text against the output schema. A
// missing response field is a contract violation, never an empty answer.
func DecodeOutput(raw string) (GenerateResponseOutput, error) {
	var out wireOutput
	if err := decodeStrict([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return GenerateResponseOutput{}, newError(ErrorInvalidOutput, "malformed_output", err)
	}
	if out.Response == nil {
		return GenerateResponseOutput{}, newError(ErrorInvalidOutput, "missing_response", nil)
	}
	return GenerateResponseOutput{Response: *out.Response}, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("decode: multiple JSON values")
		}
		return fmt.Errorf("decode trailing data: %w", err)
	}
	return nil
}
