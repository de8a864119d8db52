package record

import (
	"encoding/json"
	"fmt"
)

// FieldSpec declares one field of a schema: its column name, value kind and
// constraint list, in declaration order.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Constraints []Constraint
}

// Schema is the ordered descriptor list for one record kind, built once at
// registration time. Field order is stable and matches both JSON key policy
// and SQL column order. The schema name doubles as the table name.
type Schema struct {
	name  string
	specs []FieldSpec
	index map[string]int
}

// NewSchema builds a schema. The name is used as the SQL table name and as
// the key of the permission side table ("<name>_permissions").
func NewSchema(name string, specs ...FieldSpec) *Schema {
	s := &Schema{
		name:  name,
		specs: specs,
		index: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		s.index[spec.Name] = i
	}
	return s
}

// Name returns the schema (table) name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.specs) }

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.specs))
	for i, spec := range s.specs {
		names[i] = spec.Name
	}
	return names
}

// FieldIndex returns the position of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// FieldDescription is the client-facing description of one field, used by
// the schema introspection endpoint.
type FieldDescription struct {
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

// Describe returns the per-field type and constraint names, generated from
// the descriptor list so API docs never have to be hand-maintained.
func (s *Schema) Describe() map[string]FieldDescription {
	out := make(map[string]FieldDescription, len(s.specs))
	for _, spec := range s.specs {
		names := make([]string, 0, len(spec.Constraints))
		for _, c := range spec.Constraints {
			names = append(names, c.Name())
		}
		out[spec.Name] = FieldDescription{Type: spec.Kind.String(), Constraints: names}
	}
	return out
}

// New creates an empty record instance of this schema.
func (s *Schema) New() *Record {
	fields := make([]Field, len(s.specs))
	for i, spec := range s.specs {
		fields[i] = newField(spec.Kind, spec.Constraints)
	}
	return &Record{schema: s, fields: fields}
}

// Record is one instance of a schema: a fixed, ordered set of optional
// field values. Records are request-scoped; they move through validation,
// authorization and SQL synthesis and are never persisted as objects.
type Record struct {
	schema *Schema
	fields []Field
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema { return r.schema }

// Field returns the field at position i.
func (r *Record) Field(i int) *Field { return &r.fields[i] }

// Has reports whether the named field exists and is set.
func (r *Record) Has(name string) bool {
	i := r.schema.FieldIndex(name)
	return i >= 0 && r.fields[i].HasValue()
}

// Get returns the named field's value. The second result is false when the
// name is unknown or the field is unset.
func (r *Record) Get(name string) (any, bool) {
	i := r.schema.FieldIndex(name)
	if i < 0 || !r.fields[i].HasValue() {
		return nil, false
	}
	return r.fields[i].Value(), true
}

// Int returns the named field's value as int64. The second result is false
// when the field is unset, unknown or not an int.
func (r *Record) Int(name string) (int64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// Set stores a value into the named field with kind coercion. Unknown names
// and failed coercions return an error.
func (r *Record) Set(name string, v any) error {
	i := r.schema.FieldIndex(name)
	if i < 0 {
		return fmt.Errorf("unknown field %q", name)
	}
	return r.fields[i].Set(v)
}

// Erase clears the named field. Unknown names are ignored; the caller is
// the authorization layer, which works from the schema's own field list.
func (r *Record) Erase(name string) {
	if i := r.schema.FieldIndex(name); i >= 0 {
		r.fields[i].Clear()
	}
}

// EraseAt clears the field at position i.
func (r *Record) EraseAt(i int) { r.fields[i].Clear() }

// FromJSON populates the record from a JSON object. Unknown keys are
// ignored; null and empty-string values do not set the field; a value that
// cannot be coerced leaves its field unset rather than failing the record.
func (r *Record) FromJSON(data []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	for name, v := range payload {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		_ = r.Set(name, v) // coercion failure leaves the field unset
	}
	return nil
}

// JSON returns the set fields as a plain map ready for encoding. Unset
// fields are omitted.
func (r *Record) JSON() map[string]any {
	out := make(map[string]any, len(r.fields))
	for i, spec := range r.schema.specs {
		if r.fields[i].HasValue() {
			out[spec.Name] = r.fields[i].Value()
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.JSON())
}

// FromRow populates the record from a storage row as produced by sqlx
// MapScan. A column whose value cannot be coerced (unexpected null, type
// mismatch) leaves that field unset instead of aborting the record.
func (r *Record) FromRow(row map[string]any) {
	for name, v := range row {
		if v == nil {
			continue
		}
		_ = r.Set(name, v)
	}
}

// Values returns one entry per schema field in declaration order, nil for
// unset fields. INSERT synthesis binds every column so arity stays aligned,
// writing NULL for absent optionals.
func (r *Record) Values() []any {
	out := make([]any, len(r.fields))
	for i := range r.fields {
		out[i] = r.fields[i].Value()
	}
	return out
}

// SetFields returns the names and values of only the fields that carry a
// value, in declaration order. UPDATE and DELETE synthesis work from this.
func (r *Record) SetFields() ([]string, []any) {
	var names []string
	var values []any
	for i, spec := range r.schema.specs {
		if r.fields[i].HasValue() {
			names = append(names, spec.Name)
			values = append(values, r.fields[i].Value())
		}
	}
	return names, values
}

// Validate aggregates per-field validation. An empty map means the record
// is valid. Running it twice yields the same result.
func (r *Record) Validate() map[string][]ValidationError {
	out := make(map[string][]ValidationError)
	for i, spec := range r.schema.specs {
		if errs := r.fields[i].Validate(); len(errs) > 0 {
			out[spec.Name] = errs
		}
	}
	return out
}

// UniqueFields returns the stringified values of fields that are flagged
// Unique and currently set, keyed by field name.
func (r *Record) UniqueFields() map[string]string {
	out := make(map[string]string)
	for i, spec := range r.schema.specs {
		if r.fields[i].Unique() && r.fields[i].HasValue() {
			out[spec.Name] = r.fields[i].String()
		}
	}
	return out
}
