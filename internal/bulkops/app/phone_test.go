package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidMobilePhone(t *testing.T) {
	valid := []string{
		"905321234567",
		"+905321234567",
		"05321234567",
		"5321234567",
		"0532 123 45 67",
		"0532-123-45-67",
		"(0532) 123 45 67",
		"0532.123.45.67",
	}
	for _, phone := range valid {
		assert.True(t, isValidMobilePhone(phone), "expected valid: %q", phone)
	}

	invalid := []string{
		"",
		"   ",
		"02121234567",   // landline prefix
		"904321234567",  // country code but not mobile range
		"532123456",     // too short
		"05321234567890", // too long
		"532123456a",
		"1234567890",
		"abc",
	}
	for _, phone := range invalid {
		assert.False(t, isValidMobilePhone(phone), "expected invalid: %q", phone)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"905321234567":    "05321234567",
		"+905321234567":   "05321234567",
		"05321234567":     "05321234567",
		"5321234567":      "05321234567",
		"0532 123 45 67":  "05321234567",
		"(0532) 123-4567": "05321234567",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizePhone(input), "input: %q", input)
	}
}

func TestNormalizePhone_SameNumberThreeForms(t *testing.T) {
	forms := []string{"905551234567", "05551234567", "5551234567"}
	for _, form := range forms {
		assert.Equal(t, "05551234567", normalizePhone(form))
	}
}
