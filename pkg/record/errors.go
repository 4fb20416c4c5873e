package record

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input: missing required
// variant-specific fields or an unknown variant. It is local and final;
// callers must not retry.
type ValidationError struct {
	Variant Variant
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid %s record: missing required fields: %s",
			e.Variant, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid %s record: %s", e.Variant, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrMissingRevisionNote is returned by updates submitted without a
// revision note. Mutation without an audit trail is disallowed.
var ErrMissingRevisionNote = errors.New("update requires a non-empty revision note")
