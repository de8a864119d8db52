package record

import (
	"encoding/json"
	"reflect"
	"testing"
)

func testSchema() *Schema {
	return NewSchema("things",
		FieldSpec{Name: "id", Kind: KindInt, Constraints: []Constraint{Unique()}},
		FieldSpec{Name: "name", Kind: KindString, Constraints: []Constraint{Unique(), Length(1, 10), Required()}},
		FieldSpec{Name: "note", Kind: KindString, Constraints: []Constraint{Length(2, 5)}},
		FieldSpec{Name: "count", Kind: KindInt, Constraints: []Constraint{Between(0, 100)}},
	)
}

func TestSetCoercion(t *testing.T) {
	rec := testSchema().New()

	tests := []struct {
		field string
		value any
		want  any
	}{
		{"id", float64(7), int64(7)},     // JSON numbers arrive as float64
		{"id", "42", int64(42)},          // numeric strings coerce
		{"count", int(3), int64(3)},
		{"name", []byte("bytes"), "bytes"},
	}
	for _, tt := range tests {
		if err := rec.Set(tt.field, tt.value); err != nil {
			t.Fatalf("Set(%s, %v): %v", tt.field, tt.value, err)
		}
		got, _ := rec.Get(tt.field)
		if got != tt.want {
			t.Errorf("Set(%s, %v) stored %v (%T), want %v (%T)", tt.field, tt.value, got, got, tt.want, tt.want)
		}
	}

	if err := rec.Set("count", "not a number"); err == nil {
		t.Error("coercing a non-numeric string into an int field should fail")
	}
	if err := rec.Set("missing", 1); err == nil {
		t.Error("setting an unknown field should fail")
	}
}

func TestRequiredPrecedence(t *testing.T) {
	rec := testSchema().New()

	// name is unset: exactly one Required error, and the length constraint
	// must not fire against the absent value.
	errs := rec.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() reported %d fields, want 1: %v", len(errs), errs)
	}
	nameErrs := errs["name"]
	if len(nameErrs) != 1 || nameErrs[0].Constraint != "Required" {
		t.Errorf("unset required field: got %v, want single Required error", nameErrs)
	}

	// An unset optional field is valid even with constraints declared.
	if _, ok := errs["note"]; ok {
		t.Error("unset optional field should not report errors")
	}
}

func TestValidateIdempotent(t *testing.T) {
	rec := testSchema().New()
	rec.Set("name", "this name is way too long")
	rec.Set("count", int64(500))

	first := rec.Validate()
	second := rec.Validate()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate changed its result between runs: %v then %v", first, second)
	}
	if len(first["name"]) != 1 || len(first["count"]) != 1 {
		t.Errorf("unexpected validation result: %v", first)
	}
}

func TestFromJSON(t *testing.T) {
	rec := testSchema().New()
	err := rec.FromJSON([]byte(`{"name":"ok","note":"","count":5,"unknown":"x","id":null}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got, _ := rec.Get("name"); got != "ok" {
		t.Errorf("name = %v, want ok", got)
	}
	if rec.Has("note") {
		t.Error("empty-string value should leave the field unset")
	}
	if rec.Has("id") {
		t.Error("null value should leave the field unset")
	}
	if n, ok := rec.Int("count"); !ok || n != 5 {
		t.Errorf("count = %v, %v, want 5, true", n, ok)
	}

	if err := rec.FromJSON([]byte(`{broken`)); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestFromJSONBadCoercionLeavesUnset(t *testing.T) {
	rec := testSchema().New()
	if err := rec.FromJSON([]byte(`{"count":"many"}`)); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if rec.Has("count") {
		t.Error("uncoercible value should leave the field unset, not fail the record")
	}
}

func TestMarshalJSONOmitsUnset(t *testing.T) {
	rec := testSchema().New()
	rec.Set("name", "x")

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	json.Unmarshal(data, &out)
	if len(out) != 1 || out["name"] != "x" {
		t.Errorf("marshaled %v, want only name", out)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	schema := testSchema()
	rec := schema.New()
	rec.Set("id", int64(7))
	rec.Set("name", "alpha")
	rec.Set("note", "abc")
	rec.Set("count", int64(42))

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	back := schema.New()
	if err := back.FromJSON(data); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !reflect.DeepEqual(back.Values(), rec.Values()) {
		t.Errorf("round trip changed the record:\n got %v\nwant %v", back.Values(), rec.Values())
	}
}

func TestValuesAndSetFields(t *testing.T) {
	rec := testSchema().New()
	rec.Set("name", "x")
	rec.Set("count", int64(1))

	values := rec.Values()
	if len(values) != 4 {
		t.Fatalf("Values() len = %d, want full column arity 4", len(values))
	}
	if values[0] != nil || values[2] != nil {
		t.Errorf("unset columns should be nil: %v", values)
	}

	names, set := rec.SetFields()
	wantNames := []string{"name", "count"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("SetFields names = %v, want %v (declaration order)", names, wantNames)
	}
	if len(set) != 2 || set[0] != "x" || set[1] != int64(1) {
		t.Errorf("SetFields values = %v", set)
	}
}

func TestEraseAndUniqueFields(t *testing.T) {
	rec := testSchema().New()
	rec.Set("id", int64(9))
	rec.Set("name", "x")
	rec.Set("note", "abc")

	uniques := rec.UniqueFields()
	want := map[string]string{"id": "9", "name": "x"}
	if !reflect.DeepEqual(uniques, want) {
		t.Errorf("UniqueFields = %v, want %v", uniques, want)
	}

	rec.Erase("id")
	if rec.Has("id") {
		t.Error("Erase should unset the field")
	}
	if _, ok := rec.UniqueFields()["id"]; ok {
		t.Error("erased field should not appear in UniqueFields")
	}
	rec.Erase("no such field") // must not panic
}

func TestFromRow(t *testing.T) {
	rec := testSchema().New()
	rec.FromRow(map[string]any{
		"id":    int64(3),
		"name":  []byte("fromdb"),
		"note":  nil,
		"count": "11",
	})
	if n, _ := rec.Int("id"); n != 3 {
		t.Errorf("id = %d, want 3", n)
	}
	if got, _ := rec.Get("name"); got != "fromdb" {
		t.Errorf("name = %v", got)
	}
	if rec.Has("note") {
		t.Error("null column should leave the field unset")
	}
	if n, _ := rec.Int("count"); n != 11 {
		t.Errorf("count = %d, want 11", n)
	}
}

func TestDescribe(t *testing.T) {
	desc := testSchema().Describe()
	name, ok := desc["name"]
	if !ok {
		t.Fatal("Describe missing name field")
	}
	if name.Type != "string" {
		t.Errorf("name type = %q, want string", name.Type)
	}
	wantConstraints := []string{"Unique", "Length(1,10)", "Required"}
	if !reflect.DeepEqual(name.Constraints, wantConstraints) {
		t.Errorf("name constraints = %v, want %v", name.Constraints, wantConstraints)
	}
}

func TestRegisteredSchemas(t *testing.T) {
	tables := Tables()
	if _, ok := tables["users"]; !ok {
		t.Error("users schema not registered")
	}
	if _, ok := tables["photos"]; !ok {
		t.Error("photos schema not registered")
	}
	if Users.FieldIndex("password") < 0 {
		t.Error("users schema missing password field")
	}
	if Photos.FieldIndex("uploaded_by") < 0 {
		t.Error("photos schema missing uploaded_by field")
	}
}
