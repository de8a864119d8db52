package record

import (
	"fmt"
	"regexp"
	"strings"
)

// Constraint is a named, pure predicate over a field value. Satisfied is
// only ever called with a present value; absence is handled by Field, which
// gives Required its special meaning.
type Constraint interface {
	Name() string
	Description() string
	Satisfied(v any) bool
}

// ValidationError reports one failed constraint on one field.
type ValidationError struct {
	Constraint  string `json:"constraint"`
	Description string `json:"description"`
}

// ---------------------------------------------------------------------------
// Marker constraints
// ---------------------------------------------------------------------------

type required struct{}

func (required) Name() string        { return "Required" }
func (required) Description() string { return "Field should not be empty or invalid" }
func (required) Satisfied(any) bool  { return true }

// Required marks a field that must carry a value. It is the only constraint
// evaluated against an absent value.
func Required() Constraint { return required{} }

type unique struct{}

func (unique) Name() string        { return "Unique" }
func (unique) Description() string { return "Unique" }
func (unique) Satisfied(any) bool  { return true }

// Unique marks a field for the application-layer duplicate pre-check. It
// does not validate value shape.
func Unique() Constraint { return unique{} }

// ---------------------------------------------------------------------------
// String constraints
// ---------------------------------------------------------------------------

type notEmpty struct{}

func (notEmpty) Name() string        { return "NotEmpty" }
func (notEmpty) Description() string { return "Field must not be empty" }
func (notEmpty) Satisfied(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

// NotEmpty rejects the empty string.
func NotEmpty() Constraint { return notEmpty{} }

type length struct {
	from, to int
}

func (c length) Name() string        { return fmt.Sprintf("Length(%d,%d)", c.from, c.to) }
func (c length) Description() string { return fmt.Sprintf("Length should be from %d to %d", c.from, c.to) }
func (c length) Satisfied(v any) bool {
	s, ok := v.(string)
	return ok && len(s) >= c.from && len(s) <= c.to
}

// Length bounds the byte length of a string value, inclusive on both ends.
func Length(from, to int) Constraint { return length{from: from, to: to} }

// ---------------------------------------------------------------------------
// Integer constraints
// ---------------------------------------------------------------------------

type between struct {
	from, to int64
}

func (c between) Name() string { return fmt.Sprintf("Between(%d,%d)", c.from, c.to) }
func (c between) Description() string {
	return fmt.Sprintf("Value should be in range from %d to %d", c.from, c.to)
}
func (c between) Satisfied(v any) bool {
	n, ok := v.(int64)
	return ok && n >= c.from && n <= c.to
}

// Between bounds an integer value, inclusive on both ends.
func Between(from, to int64) Constraint { return between{from: from, to: to} }

// ---------------------------------------------------------------------------
// Pattern constraints
// ---------------------------------------------------------------------------

type pattern struct {
	name, description string
	re                *regexp.Regexp
}

func (c pattern) Name() string        { return c.name }
func (c pattern) Description() string { return c.description }
func (c pattern) Satisfied(v any) bool {
	s, ok := v.(string)
	return ok && c.re.MatchString(s)
}

var (
	emailRe   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	isoDateRe = regexp.MustCompile(`^[12]\d{3}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	genderRe  = regexp.MustCompile(`^(m|f)$`)
	imgExtRe  = regexp.MustCompile(`^(jpg|jpeg|png|gif)$`)
)

// ValidEmail accepts addresses of the shape local@domain.tld.
func ValidEmail() Constraint {
	return pattern{"ValidEmail", "Not a valid email address", emailRe}
}

// ISODate accepts calendar dates written as yyyy-mm-dd.
func ISODate() Constraint {
	return pattern{"ISODate", "Date format is yyyy-mm-dd", isoDateRe}
}

// ValidGender accepts "m" or "f".
func ValidGender() Constraint {
	return pattern{"ValidGender", "Gender should be m or f", genderRe}
}

// ValidImageExtension accepts the supported image file extensions, without
// the leading dot.
func ValidImageExtension() Constraint {
	return pattern{"ValidImageExtension", "Extension should be one of jpg, jpeg, png, gif", imgExtRe}
}

type validPassword struct{}

func (validPassword) Name() string { return "ValidPassword" }
func (validPassword) Description() string {
	return "Password should have at least 8 characters, one uppercase letter, one lowercase letter and one digit"
}
func (validPassword) Satisfied(v any) bool {
	s, ok := v.(string)
	if !ok || len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// ValidPassword enforces the minimum password shape. RE2 has no lookahead,
// so this one is an inline predicate rather than a pattern.
func ValidPassword() Constraint { return validPassword{} }

type validCategory struct{}

var photoCategories = []string{"nature", "portrait", "street", "architecture", "travel", "other"}

func (validCategory) Name() string { return "ValidCategory" }
func (validCategory) Description() string {
	return "Category should be one of " + strings.Join(photoCategories, ", ")
}
func (validCategory) Satisfied(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, c := range photoCategories {
		if s == c {
			return true
		}
	}
	return false
}

// ValidCategory restricts a photo to the known category set.
func ValidCategory() Constraint { return validCategory{} }
