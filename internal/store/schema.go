package store

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema is the JSON Schema every job.json must satisfy before the
// store deserializes it. Malformed records surface as a SchemaError rather
// than a half-populated Record.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["identity", "phase"],
  "properties": {
    "identity": {
      "type": "object",
      "required": ["company", "title", "job_id"],
      "properties": {
        "company": {"type": "string", "minLength": 1},
        "title": {"type": "string", "minLength": 1},
        "posted_at": {"type": "string"},
        "job_id": {"type": "string", "minLength": 1}
      }
    },
    "phase": {
      "type": "string",
      "enum": [
        "queued", "data_generated", "docs_generated", "applied", "follow_up",
        "interviewing", "negotiating", "accepted", "skipped", "expired", "errored"
      ]
    },
    "subcontent": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["mode", "event"],
        "properties": {
          "mode": {"type": "string", "enum": ["static", "llm"]},
          "event": {"type": "string", "minLength": 1}
        }
      }
    },
    "files": {"type": "object"},
    "last_error": {"type": "object"}
  }
}`

var recordSchemaLoader = gojsonschema.NewStringLoader(recordSchema)

// SchemaError reports a job.json document that fails schema validation.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record schema validation failed: %s", strings.Join(e.Problems, "; "))
}

func validateRecordJSON(data []byte) error {
	result, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &SchemaError{Problems: problems}
}
