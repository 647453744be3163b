package entity

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeID decodes a Magento GraphQL base64 entity ID to its underlying
// numeric string ("MQ==" -> "1", "Ng==" -> "6"). Values that do not decode
// cleanly are returned unchanged; REST IDs are already plain and pass
// through.
func DecodeID(encoded string) string {
	if encoded == "" {
		return encoded
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	decoded := string(raw)
	if decoded == "" || !isPrintable(decoded) {
		return encoded
	}
	return decoded
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}

const syntheticEmailDomain = "unknown"

// SyntheticEmail builds the placeholder identity key for a user whose
// profile the source cannot supply: customer_{id}@unknown.
func SyntheticEmail(customerID string) string {
	return fmt.Sprintf("customer_%s@%s", customerID, syntheticEmailDomain)
}

// IsSyntheticEmail reports whether an email matches the placeholder
// pattern produced by SyntheticEmail.
func IsSyntheticEmail(email string) bool {
	return strings.HasPrefix(email, "customer_") && strings.HasSuffix(email, "@"+syntheticEmailDomain)
}

// Unique-ID construction for the output graph. These keys must not collide
// across entity types within one application, so each type carries its own
// prefix; users are keyed by raw email.

// CompanyGroupID returns the unique ID for the company group.
func CompanyGroupID(companyID string) string {
	return "company_" + companyID
}

// TeamGroupID returns the unique ID for a team group.
func TeamGroupID(teamID string) string {
	return "team_" + teamID
}

// RoleUniqueID returns the unique ID for a role. Role IDs are only unique
// per company, so the company ID is part of the key.
func RoleUniqueID(companyID, roleID string) string {
	return fmt.Sprintf("role_%s_%s", companyID, roleID)
}
