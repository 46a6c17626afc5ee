package password

import (
	"errors"
	"strings"
	"unicode/utf16"
)

const (
	// DefaultMinLength is the creation-time and login-time minimum length.
	DefaultMinLength = 8
	// MaxLoginLength caps the login password field.
	MaxLoginLength = 100
	// DefaultSpecialChars is the special-character set a new password must draw from.
	DefaultSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var (
	// ErrTooShort is returned by [ValidateLoginPassword] for passwords under 8 characters.
	ErrTooShort = errors.New("password must be at least 8 characters")
	// ErrTooLong is returned by [ValidateLoginPassword] for passwords over 100 characters.
	ErrTooLong = errors.New("password is too long")
	// ErrRequirementsNotMet is returned by [Policy.Validate] when any requirement fails.
	ErrRequirementsNotMet = errors.New("password does not meet requirements")
	// ErrMismatch is returned by [CheckConfirmation] when the two entries differ.
	ErrMismatch = errors.New("passwords don't match")
)

// Requirements is the per-rule result of [CheckRequirements].
type Requirements struct {
	HasMinLength   bool `json:"hasMinLength"`
	HasUppercase   bool `json:"hasUppercase"`
	HasLowercase   bool `json:"hasLowercase"`
	HasNumber      bool `json:"hasNumber"`
	HasSpecialChar bool `json:"hasSpecialChar"`
}

// IsValid reports whether all five requirements hold.
func (r Requirements) IsValid() bool {
	return r.HasMinLength && r.HasUppercase && r.HasLowercase && r.HasNumber && r.HasSpecialChar
}

// Unmet lists the names of the failing requirements in checklist order.
func (r Requirements) Unmet() []string {
	var out []string
	if !r.HasMinLength {
		out = append(out, "hasMinLength")
	}
	if !r.HasUppercase {
		out = append(out, "hasUppercase")
	}
	if !r.HasLowercase {
		out = append(out, "hasLowercase")
	}
	if !r.HasNumber {
		out = append(out, "hasNumber")
	}
	if !r.HasSpecialChar {
		out = append(out, "hasSpecialChar")
	}
	return out
}

// Policy parameterises the creation-time checklist. The zero value behaves
// like [DefaultPolicy].
type Policy struct {
	MinLength    int
	SpecialChars string
}

// DefaultPolicy returns the policy used by the package-level helpers.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    DefaultMinLength,
		SpecialChars: DefaultSpecialChars,
	}
}

func (p Policy) normalized() Policy {
	if p.MinLength <= 0 {
		p.MinLength = DefaultMinLength
	}
	if p.SpecialChars == "" {
		p.SpecialChars = DefaultSpecialChars
	}
	return p
}

// Check evaluates every requirement independently against pw.
func (p Policy) Check(pw string) Requirements {
	p = p.normalized()

	r := Requirements{
		HasMinLength:   length(pw) >= p.MinLength,
		HasSpecialChar: strings.ContainsAny(pw, p.SpecialChars),
	}
	for i := 0; i < len(pw); i++ {
		switch c := pw[i]; {
		case c >= 'A' && c <= 'Z':
			r.HasUppercase = true
		case c >= 'a' && c <= 'z':
			r.HasLowercase = true
		case c >= '0' && c <= '9':
			r.HasNumber = true
		}
	}
	return r
}

// Validate returns [ErrRequirementsNotMet] unless every requirement holds.
func (p Policy) Validate(pw string) error {
	if !p.Check(pw).IsValid() {
		return ErrRequirementsNotMet
	}
	return nil
}

// CheckRequirements evaluates pw against [DefaultPolicy].
func CheckRequirements(pw string) Requirements {
	return DefaultPolicy().Check(pw)
}

// IsValid reports whether pw satisfies every requirement of [DefaultPolicy].
func IsValid(pw string) bool {
	return CheckRequirements(pw).IsValid()
}

// ValidateLoginPassword applies the login field rule: 8 to 100 characters.
func ValidateLoginPassword(pw string) error {
	n := length(pw)
	if n < DefaultMinLength {
		return ErrTooShort
	}
	if n > MaxLoginLength {
		return ErrTooLong
	}
	return nil
}

// length counts UTF-16 code units, the unit browser forms use for length
// limits. Characters outside the BMP count twice.
func length(pw string) int {
	n := 0
	for _, r := range pw {
		n += utf16.RuneLen(r)
	}
	return n
}

// CheckConfirmation returns [ErrMismatch] when confirm differs from pw.
func CheckConfirmation(pw, confirm string) error {
	if pw != confirm {
		return ErrMismatch
	}
	return nil
}
