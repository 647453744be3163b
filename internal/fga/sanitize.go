package fga

import (
	"fmt"
	"regexp"
)

var unsafeObjectChars = regexp.MustCompile(`[^0-9A-Za-z_@.+\-]`)

// SanitizeObjectID makes a string legal as an OpenFGA object ID by
// hexadecimal-encoding every character outside the safe set. Commerce ACL
// resource IDs like "Magento_Company::index" carry "::", which object IDs
// cannot contain.
//
// Examples:
//   - "Magento_Company::index" -> "Magento_Company-003A--003A-index"
//   - "buyer@acme.test" -> "buyer@acme.test"
func SanitizeObjectID(id string) string {
	return unsafeObjectChars.ReplaceAllStringFunc(id, func(s string) string {
		return fmt.Sprintf("-%04X-", s)
	})
}
