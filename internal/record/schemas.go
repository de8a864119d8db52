package record

// Registered schemas. Built once at package init; every layer that needs
// field enumeration, marshaling or permission-column alignment walks these
// descriptor lists.
var (
	// Users describes one account row.
	Users = NewSchema("users",
		FieldSpec{Name: "id", Kind: KindInt, Constraints: []Constraint{Unique()}},
		FieldSpec{Name: "username", Kind: KindString, Constraints: []Constraint{Unique(), Length(1, 20), Required()}},
		FieldSpec{Name: "password", Kind: KindString, Constraints: []Constraint{Required(), ValidPassword()}},
		FieldSpec{Name: "email", Kind: KindString, Constraints: []Constraint{Unique(), Required(), ValidEmail()}},
		FieldSpec{Name: "firstname", Kind: KindString, Constraints: []Constraint{Length(2, 64)}},
		FieldSpec{Name: "lastname", Kind: KindString, Constraints: []Constraint{Length(2, 64)}},
		FieldSpec{Name: "born", Kind: KindString, Constraints: []Constraint{ISODate()}},
		FieldSpec{Name: "gender", Kind: KindString, Constraints: []Constraint{ValidGender()}},
		FieldSpec{Name: "biography", Kind: KindString, Constraints: []Constraint{Length(0, 8192)}},
		FieldSpec{Name: "join_date", Kind: KindString, Constraints: []Constraint{ISODate()}},
		FieldSpec{Name: "permission_group", Kind: KindInt},
	)

	// Photos describes one photo metadata row. The binary itself lives with
	// an external collaborator; only metadata is modeled here.
	Photos = NewSchema("photos",
		FieldSpec{Name: "id", Kind: KindInt, Constraints: []Constraint{Unique()}},
		FieldSpec{Name: "extension", Kind: KindString, Constraints: []Constraint{Required(), ValidImageExtension()}},
		FieldSpec{Name: "title", Kind: KindString, Constraints: []Constraint{Length(1, 255), Required()}},
		FieldSpec{Name: "category", Kind: KindString, Constraints: []Constraint{Length(0, 255), Required(), ValidCategory()}},
		FieldSpec{Name: "description", Kind: KindString, Constraints: []Constraint{Length(0, 4096)}},
		FieldSpec{Name: "uploaded_by", Kind: KindInt, Constraints: []Constraint{Unique()}},
		FieldSpec{Name: "upload_time", Kind: KindString},
		FieldSpec{Name: "is_private", Kind: KindInt, Constraints: []Constraint{Required(), Between(0, 1)}},
	)

	// Credentials describes a login request body. It is a request-parameter
	// schema, not a table.
	Credentials = NewSchema("credentials",
		FieldSpec{Name: "username", Kind: KindString, Constraints: []Constraint{Unique(), Length(1, 20), Required()}},
		FieldSpec{Name: "password", Kind: KindString, Constraints: []Constraint{Required(), ValidPassword()}},
	)

	// RefreshRequest describes a token refresh request body.
	RefreshRequest = NewSchema("refresh_request",
		FieldSpec{Name: "refresh_token", Kind: KindString, Constraints: []Constraint{Required()}},
	)
)

// Tables lists the schemas that are backed by database tables, keyed by
// table name. The schema introspection endpoint and the migration layer
// both walk this map.
func Tables() map[string]*Schema {
	return map[string]*Schema{
		Users.Name():  Users,
		Photos.Name(): Photos,
	}
}
