package identifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind is the classification result for a raw identifier.
type Kind uint8

const (
	// KindInvalid is returned for empty input and for anything that is neither
	// an email nor a 10-digit phone number.
	KindInvalid Kind = iota
	// KindEmail marks a local@domain.tld shaped value.
	KindEmail
	// KindPhone marks a value made only of digits, spaces and "+-()" that
	// carries exactly PhoneDigits digits.
	KindPhone
)

// PhoneDigits is the number of digits a phone identifier must carry.
const PhoneDigits = 10

// space is the whitespace class browsers apply to `\s`. RE2's `\s` stops at
// ASCII, so no-break and other Unicode spaces are listed explicitly.
const space = `\s\v\x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	emailPattern = regexp.MustCompile(`^[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+$`)
	phonePattern = regexp.MustCompile(`^[\d` + space + `\-+()]+$`)
)

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPhone:
		return "phone"
	default:
		return "invalid"
	}
}

// Classify maps raw input to [KindEmail], [KindPhone] or [KindInvalid].
// The email pattern is checked first.
func Classify(raw string) Kind {
	if raw == "" {
		return KindInvalid
	}
	if emailPattern.MatchString(raw) {
		return KindEmail
	}
	if phonePattern.MatchString(raw) && len(Digits(raw)) == PhoneDigits {
		return KindPhone
	}
	return KindInvalid
}

// Digits returns raw with every non-digit character removed.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Normalize returns the canonical storage form of raw together with its kind.
// Emails are trimmed and lower-cased; phones are reduced to their digits.
// Invalid input yields an empty string.
func Normalize(raw string) (string, Kind) {
	switch kind := Classify(raw); kind {
	case KindEmail:
		return strings.ToLower(strings.TrimSpace(raw)), kind
	case KindPhone:
		return Digits(raw), kind
	default:
		return "", KindInvalid
	}
}

// Mask hides most of an identifier for logs and audit records.
//
//	alice@example.com -> a***@example.com
//	98765 43210       -> ******3210
func Mask(raw string) string {
	switch Classify(raw) {
	case KindEmail:
		at := strings.LastIndexByte(raw, '@')
		_, n := utf8.DecodeRuneInString(raw)
		return raw[:n] + "***" + raw[at:]
	case KindPhone:
		d := Digits(raw)
		return strings.Repeat("*", len(d)-4) + d[len(d)-4:]
	default:
		return "***"
	}
}
