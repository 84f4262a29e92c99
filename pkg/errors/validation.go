package errors

import (
	"regexp"
)

// ValidateFieldName checks that name can key a stanza field: a non-empty run
// of printable ASCII without colons or whitespace.
func ValidateFieldName(name string) error {
	if name == "" {
		return New(ErrCodeMalformedStanza, "field name cannot be empty")
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f {
			return New(ErrCodeMalformedStanza, "field name %q contains invalid character %q", name, c)
		}
		if c == ':' {
			return New(ErrCodeMalformedStanza, "field name %q contains a colon", name)
		}
	}

	return nil
}

// debianPackageNameRegex matches package names per Debian Policy 5.6.1:
// lower case letters, digits, '+', '-' and '.', at least two characters,
// starting with an alphanumeric.
var debianPackageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// ValidatePackageName validates a Debian package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}

	if !debianPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid Debian package name: %q", name)
	}

	return nil
}
