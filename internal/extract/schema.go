package extract

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema is deliberately loose: any field may be absent or null, the
// coercion pass supplies the defaults. It only rejects payloads whose fields
// carry shapes we cannot coerce at all (objects where scalars belong, a
// scalar items field, and so on).
const payloadSchemaJSON = `{
  "type": "object",
  "properties": {
    "storeName":      {"type": ["string", "null"]},
    "date":           {"type": ["string", "null"]},
    "totalAmount":    {"type": ["number", "string", "null"]},
    "subtotal":       {"type": ["number", "string", "null"]},
    "taxAmount":      {"type": ["number", "string", "null"]},
    "discountAmount": {"type": ["number", "string", "null"]},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "name":     {"type": ["string", "null"]},
          "price":    {"type": ["number", "string", "null"]},
          "quantity": {"type": ["number", "string", "null"]},
          "category": {"type": ["string", "null"]}
        }
      }
    },
    "error": {}
  }
}`

var payloadSchema = jsonschema.MustCompileString("extraction.json", payloadSchemaJSON)

func validatePayload(payload map[string]any) error {
	return payloadSchema.Validate(payload)
}
