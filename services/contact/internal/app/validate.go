package app

import (
	"regexp"

	"contactdesk/pkg/domain"
)

// emailShape matches something@something.something anywhere in the value.
var emailShape = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate checks that every field is present and the email has a plausible shape.
// Whitespace-only values count as present.
func Validate(rec domain.ContactRecord) error {
	switch {
	case rec.Name == "":
		return &ValidationError{Field: "name", Err: ErrMissingFields}
	case rec.Email == "":
		return &ValidationError{Field: "email", Err: ErrMissingFields}
	case rec.Message == "":
		return &ValidationError{Field: "message", Err: ErrMissingFields}
	}
	if !emailShape.MatchString(rec.Email) {
		return &ValidationError{Field: "email", Err: ErrInvalidEmail}
	}
	return nil
}
