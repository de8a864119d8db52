package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
)

// Migrate creates the resource tables, the token tables and one permission
// side table per registered schema. The DDL targets SQLite, the default
// deployment store; other backends are expected to be provisioned
// externally.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			firstname TEXT,
			lastname TEXT,
			born TEXT,
			gender TEXT,
			biography TEXT,
			join_date TEXT,
			permission_group INTEGER NOT NULL DEFAULT 3
		)`,

		`CREATE TABLE IF NOT EXISTS photos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			extension TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			uploaded_by INTEGER REFERENCES users(id) ON DELETE CASCADE,
			upload_time TEXT,
			is_private INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS auth_tokens (
			user_id INTEGER PRIMARY KEY,
			auth_token TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			user_id INTEGER PRIMARY KEY,
			refresh_token TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_photos_uploaded_by ON photos(uploaded_by)`,
	}

	// One "<table>_permissions" side table per registered schema, with an
	// instance column plus one integer mask column per field, generated
	// from the descriptor lists so the columns never drift from the models.
	for name, schema := range record.Tables() {
		cols := make([]string, 0, schema.Len()+2)
		cols = append(cols, "group_id INTEGER PRIMARY KEY", "instance INTEGER NOT NULL DEFAULT 0")
		for _, field := range schema.FieldNames() {
			cols = append(cols, field+" INTEGER NOT NULL DEFAULT 0")
		}
		migrations = append(migrations, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s_permissions (%s)", name, strings.Join(cols, ", ")))
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// PermissionsSeeded reports whether the users permission table already
// holds grant rows. Startup uses it to seed defaults exactly once without
// clobbering manual matrix edits on later runs.
func PermissionsSeeded(ctx context.Context, db *sqlx.DB) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users_permissions"); err != nil {
		return false, fmt.Errorf("check permission seeds: %w", err)
	}
	return count > 0, nil
}

// permissionRow is one seed row of a permission side table.
type permissionRow struct {
	group    authz.Group
	instance authz.Mask
	fields   map[string]authz.Mask
}

// SeedPermissions installs the default grant tables. Existing rows are
// replaced, so re-seeding resets any manual matrix edits.
func SeedPermissions(ctx context.Context, db *sqlx.DB) error {
	const (
		c  = authz.Create
		r  = authz.Read
		u  = authz.Update
		d  = authz.Delete
		cr = c | r
		ru = r | u
	)

	seeds := map[string][]permissionRow{
		"users": {
			// Unauthenticated callers can register and browse public profile
			// fields. Server-stamped columns need the create bit too.
			{authz.GroupOther, cr, map[string]authz.Mask{
				"id": r, "username": cr, "password": c, "email": c,
				"firstname": cr, "lastname": cr, "born": c, "gender": c,
				"biography": cr, "join_date": cr, "permission_group": c,
			}},
			// Owners manage their own profile. Password hashes are writable
			// but never readable.
			{authz.GroupOwner, ru | d, map[string]authz.Mask{
				"id": r | d, "username": ru, "password": u, "email": ru,
				"firstname": ru, "lastname": ru, "born": ru, "gender": ru,
				"biography": ru, "join_date": r, "permission_group": r,
			}},
			{authz.GroupGuest, r, map[string]authz.Mask{
				"id": r, "username": r, "firstname": r, "lastname": r,
				"biography": r, "join_date": r,
			}},
			{authz.GroupUser, r, map[string]authz.Mask{
				"id": r, "username": r, "firstname": r, "lastname": r,
				"born": r, "gender": r, "biography": r, "join_date": r,
			}},
			{authz.GroupAdmin, c | r | u | d, map[string]authz.Mask{
				"id": c | r | u | d, "username": c | r | u | d, "password": c | u,
				"email": c | r | u | d, "firstname": c | r | u | d, "lastname": c | r | u | d,
				"born": c | r | u | d, "gender": c | r | u | d, "biography": c | r | u | d,
				"join_date": c | r | u | d, "permission_group": c | r | u | d,
			}},
		},
		"photos": {
			{authz.GroupOther, r, map[string]authz.Mask{
				"id": r, "extension": r, "title": r, "category": r,
				"description": r, "uploaded_by": r, "upload_time": r,
			}},
			{authz.GroupOwner, ru | d, map[string]authz.Mask{
				"id": r | d, "extension": r, "title": ru, "category": ru,
				"description": ru, "uploaded_by": r | d, "upload_time": r,
				"is_private": ru,
			}},
			{authz.GroupGuest, r, map[string]authz.Mask{
				"id": r, "extension": r, "title": r, "category": r,
				"description": r, "uploaded_by": r, "upload_time": r,
			}},
			{authz.GroupUser, cr, map[string]authz.Mask{
				"id": r, "extension": cr, "title": cr, "category": cr,
				"description": cr, "uploaded_by": cr, "upload_time": cr,
				"is_private": cr,
			}},
			{authz.GroupAdmin, c | r | u | d, map[string]authz.Mask{
				"id": c | r | u | d, "extension": c | r | u | d, "title": c | r | u | d,
				"category": c | r | u | d, "description": c | r | u | d,
				"uploaded_by": c | r | u | d, "upload_time": c | r | u | d,
				"is_private": c | r | u | d,
			}},
		},
	}

	for table, rows := range seeds {
		schema, ok := record.Tables()[table]
		if !ok {
			return fmt.Errorf("seed: unknown table %q", table)
		}
		for _, row := range rows {
			cols := []string{"group_id", "instance"}
			vals := []any{int(row.group), int(row.instance)}
			for _, field := range schema.FieldNames() {
				cols = append(cols, field)
				vals = append(vals, int(row.fields[field]))
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
			q := fmt.Sprintf("INSERT OR REPLACE INTO %s_permissions (%s) VALUES (%s)",
				table, strings.Join(cols, ", "), placeholders)
			if _, err := db.ExecContext(ctx, db.Rebind(q), vals...); err != nil {
				return fmt.Errorf("seed %s permissions: %w", table, err)
			}
		}
	}
	return nil
}
