// Package profile loads and validates the recipient dataset.
package profile

import (
	"regexp"
	"strings"
)

// Profile is one campaign recipient. Immutable once loaded.
type Profile struct {
	FullName  string
	Email     string
	Company   string
	JobTitle  string
	Industry  string
	Goal      string
	Interests string
}

// FirstName returns the first whitespace-separated token of the full name.
// Falls back to the full name when it has no spaces.
func (p Profile) FirstName() string {
	fields := strings.Fields(p.FullName)
	if len(fields) == 0 {
		return p.FullName
	}
	return fields[0]
}

// local-part@domain.tld with a 2+ letter TLD
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether the address passes the syntactic check.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate splits profiles into syntactically valid and invalid sets.
// Order within each set follows the input order.
func Validate(profiles []Profile) (valid, invalid []Profile) {
	for _, p := range profiles {
		if IsValidEmail(p.Email) {
			valid = append(valid, p)
		} else {
			invalid = append(invalid, p)
		}
	}
	return valid, invalid
}
