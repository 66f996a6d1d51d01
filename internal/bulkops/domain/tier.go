package domain

import (
	"fmt"
	"strings"
)

// Tier identifies a sponsorship package tier. Codes in the shared pool are
// minted against a tier, and rows may override the tier codes are drawn from.
type Tier string

const (
	TierS  Tier = "S"
	TierM  Tier = "M"
	TierL  Tier = "L"
	TierXL Tier = "XL"
)

// ParseTier normalizes and validates a tier code from a spreadsheet cell.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierS, TierM, TierL, TierXL:
		return t, nil
	default:
		return "", fmt.Errorf("invalid tier %q: must be one of S, M, L, XL", s)
	}
}
