package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind is the declared value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Field is an optional-valued slot of a declared kind carrying an ordered
// constraint list. The zero value of a Field is unusable; fields are built
// by Schema from FieldSpecs.
type Field struct {
	kind        Kind
	value       any // nil when unset; string, int64 or bool otherwise
	constraints []Constraint
	required    bool
	unique      bool
}

func newField(kind Kind, cs []Constraint) Field {
	f := Field{kind: kind, constraints: cs}
	for _, c := range cs {
		switch c.(type) {
		case required:
			f.required = true
		case unique:
			f.unique = true
		}
	}
	return f
}

// Kind returns the declared value type.
func (f *Field) Kind() Kind { return f.kind }

// HasValue reports whether the field is set.
func (f *Field) HasValue() bool { return f.value != nil }

// Value returns the stored value, or nil when unset.
func (f *Field) Value() any { return f.value }

// Clear unsets the field.
func (f *Field) Clear() { f.value = nil }

// Unique reports whether the field participates in the duplicate pre-check.
func (f *Field) Unique() bool { return f.unique }

// Set stores v, coercing it to the field's kind. Numeric-looking strings
// coerce into ints, "true"/"false" into bools. A value that cannot be
// coerced returns an error and leaves the field unchanged.
func (f *Field) Set(v any) error {
	coerced, err := coerce(f.kind, v)
	if err != nil {
		return err
	}
	f.value = coerced
	return nil
}

// String renders the value for SQL text and duplicate-check maps. Unset
// fields render as the empty string.
func (f *Field) String() string {
	if f.value == nil {
		return ""
	}
	return fmt.Sprint(f.value)
}

// Validate evaluates the constraint list against the current value. An
// unset field with Required declared yields exactly one Required error and
// nothing else; an unset field without Required is valid.
func (f *Field) Validate() []ValidationError {
	if f.value == nil {
		if f.required {
			r := required{}
			return []ValidationError{{Constraint: r.Name(), Description: r.Description()}}
		}
		return nil
	}
	var errs []ValidationError
	for _, c := range f.constraints {
		if !c.Satisfied(f.value) {
			errs = append(errs, ValidationError{Constraint: c.Name(), Description: c.Description()})
		}
	}
	return errs
}

func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindString:
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		case time.Time:
			return t.Format(time.RFC3339), nil
		}
	case KindInt:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int:
			return int64(t), nil
		case int32:
			return int64(t), nil
		case float64:
			if t == float64(int64(t)) {
				return int64(t), nil
			}
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n, nil
			}
		case []byte:
			if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
				return n, nil
			}
		case bool:
			if t {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case int64:
			return t != 0, nil
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot coerce %T into %s", v, kind)
}
