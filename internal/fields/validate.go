package fields

import (
	"unicode"

	"github.com/dtg01100/tn5250r-go/internal/protoerr"
)

// ValidateInput checks content (the runes a user typed into a field)
// against the field's FFW rules: numeric-only, right-adjust/zero-fill
// shape, and uppercase coercion. It returns the (possibly transformed)
// content to store and a FieldValidation error if content is rejected
// outright (numeric-only violated by a rune other than a digit, a
// blank, '-' or '.').
func ValidateInput(f Field, content []rune) ([]rune, error) {
	if f.NumericOnly() {
		for _, r := range content {
			if r == ' ' {
				continue
			}
			if !unicode.IsDigit(r) && r != '-' && r != '.' {
				return nil, protoerr.New(protoerr.FieldValidation, "fields.ValidateInput", nil)
			}
		}
	}

	out := append([]rune(nil), content...)

	if f.Uppercase() {
		for i, r := range out {
			out[i] = unicode.ToUpper(r)
		}
	}

	if f.RightAdjust() || f.ZeroFill() {
		out = rightAdjust(out, f.ZeroFill())
	}

	return out, nil
}

// rightAdjust shifts non-blank content to the right edge of its own
// slice length, padding the vacated left side with '0' when zeroFill is
// set or ' ' otherwise.
func rightAdjust(content []rune, zeroFill bool) []rune {
	trimmed := content
	start := 0
	for start < len(trimmed) && trimmed[start] == ' ' {
		start++
	}
	end := len(trimmed)
	for end > start && trimmed[end-1] == ' ' {
		end--
	}
	data := trimmed[start:end]

	pad := ' '
	if zeroFill {
		pad = '0'
	}
	out := make([]rune, len(content))
	for i := range out {
		out[i] = pad
	}
	copy(out[len(out)-len(data):], data)
	return out
}

// CheckMandatory enforces mandatory-fill (every position must be
// non-blank before Enter) and mandatory-enter (the field must have
// received input at all) rules when the keyboard receives an AID key.
func CheckMandatory(f Field, content []rune) error {
	if f.MandatoryEnter() && !f.MDT {
		return protoerr.New(protoerr.FieldValidation, "fields.CheckMandatory", nil)
	}
	if f.MandatoryFill() {
		for _, r := range content {
			if r == ' ' {
				return protoerr.New(protoerr.FieldValidation, "fields.CheckMandatory", nil)
			}
		}
	}
	return nil
}
