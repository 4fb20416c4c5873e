package record

// Validate checks a record's variant discriminant and required
// variant-specific fields. It does not check tenant scope; the store's
// isolation guard owns that.
func Validate(r *Record) error {
	if r == nil {
		return &ValidationError{Reason: "nil record"}
	}

	if !r.Variant.Known() {
		return &ValidationError{Variant: r.Variant, Reason: "unknown variant"}
	}

	if r.Payload == nil {
		return &ValidationError{Variant: r.Variant, Reason: "missing payload"}
	}

	if r.Payload.Variant() != r.Variant {
		return &ValidationError{
			Variant: r.Variant,
			Reason:  "payload variant does not match record variant",
		}
	}

	if missing := r.Payload.missing(); len(missing) > 0 {
		return &ValidationError{Variant: r.Variant, Missing: missing}
	}

	return nil
}

// ValidateRevision checks the revision note required by every update.
func ValidateRevision(rev Revision) error {
	if rev.Note == "" {
		return ErrMissingRevisionNote
	}
	return nil
}
