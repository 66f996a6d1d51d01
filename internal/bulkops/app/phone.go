package app

import "strings"

// phoneCleaner strips the separator characters tolerated in spreadsheet
// cells before format checks.
var phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// cleanPhone removes separators and a leading plus sign.
func cleanPhone(phone string) string {
	cleaned := phoneCleaner.Replace(phone)
	return strings.TrimPrefix(cleaned, "+")
}

// isValidMobilePhone reports whether the value is a Turkish mobile number in
// any accepted input form:
//
//	905321234567 (12 digits, country code)
//	05321234567  (11 digits, leading zero)
//	5321234567   (10 digits, bare)
//
// The subscriber part must start with 5 (mobile range).
func isValidMobilePhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}

	cleaned := cleanPhone(phone)
	if !isAllDigits(cleaned) {
		return false
	}

	switch {
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, "90"):
		return cleaned[2] == '5'
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "0"):
		return cleaned[1] == '5'
	case len(cleaned) == 10:
		return cleaned[0] == '5'
	default:
		return false
	}
}

// normalizePhone converts any accepted input form to the canonical
// 0XXXXXXXXXX representation (11 digits). Unrecognized input is returned
// cleaned but otherwise untouched, so it fails validation downstream.
func normalizePhone(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return phone
	}

	cleaned := cleanPhone(phone)

	switch {
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, "90"):
		return "0" + cleaned[2:]
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "0"):
		return cleaned
	case len(cleaned) == 10 && strings.HasPrefix(cleaned, "5"):
		return "0" + cleaned
	default:
		return cleaned
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
