package domain

import (
	"fmt"
	"regexp"
)

// identifierPattern is the allow-list for identifiers that end up in
// index filter expressions: document IDs and embedding model versions.
// UUIDs and provider model names both fit.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]{0,127}$`)

// ValidateIdentifier rejects any identifier outside the allow-list.
// Callers must treat a failure as a hard error, never as something to
// sanitise; a rejected identifier is also worth a security log line.
func ValidateIdentifier(raw string) error {
	if !identifierPattern.MatchString(raw) {
		return fmt.Errorf("%w: identifier %q does not match allowed pattern", ErrInvalidInput, raw)
	}
	return nil
}
