package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["brokerName", "insuredName"],
  "properties": {
    "brokerName": {"type": "string", "minLength": 1},
    "insuredName": {"type": "string", "minLength": 1},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]}
  }
}`

func TestSchema_Validate(t *testing.T) {
	schema, err := NewSchema(testSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       interface{}
		valid     bool
		badFields []string
	}{
		{"valid map", map[string]interface{}{"brokerName": "Johnson & Co.", "insuredName": "Acme"}, true, nil},
		{"valid bytes", []byte(`{"brokerName":"b","insuredName":"i","priority":"high"}`), true, nil},
		{"missing insured", map[string]interface{}{"brokerName": "b"}, false, []string{"insuredName"}},
		{"empty broker", map[string]interface{}{"brokerName": "", "insuredName": "i"}, false, []string{"brokerName"}},
		{"bad enum", `{"brokerName":"b","insuredName":"i","priority":"urgent"}`, false, []string{"priority"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.valid, result.Valid, result.Error())
			for _, f := range tt.badFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.Errors)
			}
		})
	}
}

func TestSchema_ValidateMalformedJSON(t *testing.T) {
	schema := MustSchema(testSchema)
	result := schema.Validate([]byte(`{not json`))
	assert.False(t, result.Valid)
	assert.Equal(t, "INVALID_DOCUMENT", result.Errors[0].Code)
}

func TestNewSchema_Invalid(t *testing.T) {
	_, err := NewSchema(`{"type": 12}`)
	assert.Error(t, err)
}

func TestValidateEmailAndPhone(t *testing.T) {
	assert.True(t, ValidateEmail("broker@agency.com"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.True(t, ValidatePhone("+1 (555) 555-0100"))
	assert.False(t, ValidatePhone("123"))
}
