package underwriting

import "auto-uw-agent/internal/common/validation"

var submitSchema = validation.MustSchema(`{
  "type": "object",
  "required": ["brokerName", "insuredName"],
  "properties": {
    "brokerName":    {"type": "string", "pattern": "\\S", "maxLength": 200},
    "insuredName":   {"type": "string", "pattern": "\\S", "maxLength": 200},
    "brokerEmail":   {"type": "string", "maxLength": 254},
    "brokerPhone":   {"type": "string", "maxLength": 32},
    "operationType": {"type": "string", "maxLength": 200},
    "business": {
      "type": "object",
      "properties": {
        "yearsInBusiness":   {"type": "integer", "minimum": 0, "maximum": 200},
        "primaryOperations": {"type": "string"},
        "territories":       {"type": "array", "items": {"type": "string"}},
        "underwriterNotes":  {"type": "string"}
      }
    },
    "documents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "size": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`)

var decisionSchema = validation.MustSchema(`{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "enum": ["quote", "decline"]},
    "notes":  {"type": "string", "maxLength": 4000}
  }
}`)
