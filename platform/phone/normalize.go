// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164, interpreting national numbers
// in region. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsPhoneField reports whether a column or metadata key names a phone number.
func IsPhoneField(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, hint := range []string{"phone", "mobile", "tel"} {
		if strings.Contains(k, hint) {
			return true
		}
	}
	return false
}
