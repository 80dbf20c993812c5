package documents

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Structural schema for model output. It pins the shape the decoder relies on
// while leaving room for the lenient backfills (confidence, missing arrays).
const extractionSchemaJSON = `{
  "type": "object",
  "properties": {
    "docTypeGuess": {"type": ["string", "null"]},
    "docDateGuess": {"type": ["string", "null"]},
    "labs": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "testName": {"type": "string"}
        },
        "required": ["testName"]
      }
    },
    "medsMentioned": {"type": "array", "items": {"type": "string"}},
    "diagnosesMentioned": {"type": "array", "items": {"type": "string"}},
    "followupStatements": {"type": "array", "items": {"type": "string"}},
    "shortSummary": {"type": "string"}
  }
}`

var extractionSchema = jsonschema.MustCompileString("extracted_document.json", extractionSchemaJSON)

// validateExtraction checks model output against the structural schema.
func validateExtraction(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal model output: %w", err)
	}
	if err := extractionSchema.Validate(v); err != nil {
		return fmt.Errorf("model output does not match schema: %w", err)
	}
	return nil
}
