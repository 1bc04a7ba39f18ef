package store

import (
	"fmt"
	"regexp"
)

// identPattern is the allow-list for table and column names: letters, digits
// and underscore first, then also marks, currency and other symbols (°, €) and
// a few punctuation characters common in spreadsheet headers. Quote
// characters, semicolons and control characters never pass.
var identPattern = regexp.MustCompile(`^[\p{L}\p{N}_][\p{L}\p{N}\p{M}\p{Sc}\p{So}_ ()/%.#+-]{0,127}$`)

// ValidateIdent reports whether name may be used as a table or column name.
func ValidateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
