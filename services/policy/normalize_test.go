package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Verified", "verified"},
		{"  pending  ", "pending"},
		{"possible overlap", "possible_overlap"},
		{"unavailable (technical)", "unavailable_technical"},
		{"Not   Verified", "not_verified"},
		{"CONFIRMED", "confirmed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalize(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeOverlap(t *testing.T) {
	assert.Equal(t, "possible", normalizeOverlap("possible overlap"))
	assert.Equal(t, "possible", normalizeOverlap("Possible_Overlap"))
	assert.Equal(t, "possible", normalizeOverlap("possible"))
	assert.Equal(t, "confirmed", normalizeOverlap("confirmed"))
	assert.Equal(t, "", normalizeOverlap(""))
}

func TestNormalizeResidency(t *testing.T) {
	assert.Equal(t, "not_verified", normalizeResidency("not verified"))
	assert.Equal(t, "not_verified", normalizeResidency("notverified"))
	assert.Equal(t, "verified", normalizeResidency("Verified"))
}

func TestNormalizeBankAccess(t *testing.T) {
	assert.Equal(t, "unavailable", normalizeBankAccess("unavailable (technical)"))
	assert.Equal(t, "not_consented", normalizeBankAccess("not consented"))
}

func TestNormalizeDocsQuality(t *testing.T) {
	assert.Equal(t, "missing", normalizeDocsQuality("not_verified"))
	assert.Equal(t, "expired", normalizeDocsQuality("Expired"))
}

func TestNormalizeSignalSource(t *testing.T) {
	assert.Equal(t, "claimant", normalizeSignalSource("claimant_message"))
	assert.Equal(t, "caseworker", normalizeSignalSource("call_notes"))
	assert.Equal(t, "third_party", normalizeSignalSource("third_party"))
	assert.Equal(t, "system", normalizeSignalSource("system_flag"))
	assert.Equal(t, "system", normalizeSignalSource(""))
	assert.Equal(t, "ombudsman", normalizeSignalSource("Ombudsman"))
}

func TestNormalizeAbility(t *testing.T) {
	assert.Equal(t, "normal", normalizeAbility(""))
	assert.Equal(t, "limited", normalizeAbility("Limited"))
}
