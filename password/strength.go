package password

import (
	"errors"
	"fmt"
	"unicode"
)

// Policy is the strength rule set applied to new passwords.
type Policy struct {
	MinLength int
}

// DefaultPolicy requires 10 characters and all four character classes.
func DefaultPolicy() Policy {
	return Policy{MinLength: 10}
}

// Strength failures. All wrap ErrTooWeak so callers can match the class
// with a single errors.Is.
var (
	ErrTooWeak        = errors.New("password too weak")
	errTooShort       = fmt.Errorf("%w: below minimum length", ErrTooWeak)
	errMissingLower   = fmt.Errorf("%w: missing lowercase letter", ErrTooWeak)
	errMissingUpper   = fmt.Errorf("%w: missing uppercase letter", ErrTooWeak)
	errMissingDigit   = fmt.Errorf("%w: missing digit", ErrTooWeak)
	errMissingSpecial = fmt.Errorf("%w: missing special character", ErrTooWeak)
)

// ValidateStrength checks the password against the policy. It is a pure
// predicate with no side effects.
func ValidateStrength(password string, p Policy) error {
	min := p.MinLength
	if min <= 0 {
		min = DefaultPolicy().MinLength
	}

	runes := []rune(password)
	if len(runes) < min {
		return errTooShort
	}

	var lower, upper, digit, special bool
	for _, r := range runes {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	switch {
	case !lower:
		return errMissingLower
	case !upper:
		return errMissingUpper
	case !digit:
		return errMissingDigit
	case !special:
		return errMissingSpecial
	}
	return nil
}
