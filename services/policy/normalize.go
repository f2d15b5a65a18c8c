package policy

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalize canonicalizes a raw evidence string: trimmed, lowercased,
// whitespace runs collapsed to underscores, parentheses stripped.
// Empty input stays empty.
func normalize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = whitespaceRun.ReplaceAllString(v, "_")
	v = strings.ReplaceAll(v, "(", "")
	v = strings.ReplaceAll(v, ")", "")
	return v
}

// normalizeOverlap maps the accepted "possible overlap" spelling to the
// canonical token
func normalizeOverlap(value string) string {
	v := normalize(value)
	if v == "possible_overlap" {
		return "possible"
	}
	return v
}

// normalizeResidency accepts both "not verified" and "notverified" spellings
func normalizeResidency(value string) string {
	v := normalize(value)
	if v == "not_verified" || v == "notverified" {
		return "not_verified"
	}
	return v
}

// normalizeBankAccess folds "unavailable (technical)" into "unavailable"
func normalizeBankAccess(value string) string {
	v := normalize(value)
	if v == "unavailable_technical" {
		return "unavailable"
	}
	return v
}

// normalizeDocsQuality treats "not_verified" document quality as missing
func normalizeDocsQuality(value string) string {
	v := normalize(value)
	if v == "not_verified" {
		return "missing"
	}
	return v
}

// normalizeSignalSource maps the UI's source labels to the internal
// vocabulary; anything unrecognized (including empty) defaults to "system"
func normalizeSignalSource(value string) string {
	switch v := normalize(value); v {
	case "claimant_message":
		return "claimant"
	case "call_notes":
		return "caseworker"
	case "third_party":
		return "third_party"
	case "system_flag", "":
		return "system"
	default:
		return v
	}
}

// normalizeAbility canonicalizes ability-to-engage; empty defaults to "normal"
func normalizeAbility(value string) string {
	v := normalize(value)
	if v == "" {
		return "normal"
	}
	return v
}
