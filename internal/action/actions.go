// Package action holds the only code paths that execute SQL against the
// resource tables. Every action validates authorization through the authz
// pipeline first and synthesizes parameterized statements from registered
// schema metadata; neither table nor column names ever come from the wire.
package action

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
)

// Actions executes authorized CRUD against the relational store.
type Actions struct {
	db       *sqlx.DB
	verifier authz.TokenVerifier
	matrices *authz.MatrixLoader
}

// New wires the actions with their collaborators. The store handle is an
// explicit dependency; nothing here reaches for shared globals.
func New(db *sqlx.DB, verifier authz.TokenVerifier, matrices *authz.MatrixLoader) *Actions {
	return &Actions{db: db, verifier: verifier, matrices: matrices}
}

// Get reads records with READ authorization and applies field filtering to
// every returned record. projection and filter are SQL fragments owned by
// the calling route (built from typed path params, never from raw client
// input); filter placeholders use ? and are rebound per driver.
func (a *Actions) Get(ctx context.Context, token string, params authz.Params, schema *record.Schema, projection, filter string, args ...any) ([]*record.Record, error) {
	access, err := authz.Open(ctx, a.verifier, a.matrices, authz.Read, token, params, schema)
	if err != nil {
		return nil, err
	}

	if projection == "" {
		projection = "*"
	}
	q := fmt.Sprintf("SELECT %s FROM %s", projection, schema.Name())
	if filter != "" {
		q += " WHERE " + filter
	}

	rows, err := a.db.QueryxContext(ctx, a.db.Rebind(q), args...)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("select from %s: %w", schema.Name(), err))
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, apierr.Store(fmt.Errorf("scan %s row: %w", schema.Name(), err))
		}
		rec := schema.New()
		rec.FromRow(row)
		if err := access.Filter(rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Store(fmt.Errorf("read %s rows: %w", schema.Name(), err))
	}
	return out, nil
}

// Insert writes one record with CREATE authorization. Fields the caller is
// not permitted to create are redacted before synthesis; the statement
// binds every schema column, writing NULL for unset ones, to keep
// column/value arity aligned.
func (a *Actions) Insert(ctx context.Context, token string, params authz.Params, rec *record.Record) error {
	access, err := authz.Open(ctx, a.verifier, a.matrices, authz.Create, token, params, rec.Schema())
	if err != nil {
		return err
	}
	if err := access.Filter(rec); err != nil {
		return err
	}

	schema := rec.Schema()
	names := schema.FieldNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Name(), strings.Join(names, ", "), placeholders)

	if _, err := a.db.ExecContext(ctx, a.db.Rebind(q), rec.Values()...); err != nil {
		return apierr.Store(fmt.Errorf("insert into %s: %w", schema.Name(), err))
	}
	return nil
}

// Update rewrites rows matching filter with UPDATE authorization. Only
// fields that survive filtering and carry a value enter the SET clause; if
// none remain the request is rejected rather than issuing a no-op.
func (a *Actions) Update(ctx context.Context, token string, params authz.Params, rec *record.Record, filter string, args ...any) error {
	access, err := authz.Open(ctx, a.verifier, a.matrices, authz.Update, token, params, rec.Schema())
	if err != nil {
		return err
	}
	if err := access.Filter(rec); err != nil {
		return err
	}

	names, values := rec.SetFields()
	if len(names) == 0 {
		return apierr.InvalidParams("No valid parameters to modify")
	}
	assignments := make([]string, len(names))
	for i, name := range names {
		assignments[i] = name + " = ?"
	}
	q := fmt.Sprintf("UPDATE %s SET %s", rec.Schema().Name(), strings.Join(assignments, ", "))
	if filter != "" {
		q += " WHERE " + filter
		values = append(values, args...)
	}

	if _, err := a.db.ExecContext(ctx, a.db.Rebind(q), values...); err != nil {
		return apierr.Store(fmt.Errorf("update %s: %w", rec.Schema().Name(), err))
	}
	return nil
}

// Delete removes the rows matching the record's set fields with DELETE
// authorization. The match conditions are the fields that survive
// filtering; with none left the request is rejected to avoid an
// unconstrained delete.
func (a *Actions) Delete(ctx context.Context, token string, params authz.Params, rec *record.Record) error {
	access, err := authz.Open(ctx, a.verifier, a.matrices, authz.Delete, token, params, rec.Schema())
	if err != nil {
		return err
	}
	if err := access.Filter(rec); err != nil {
		return err
	}

	names, values := rec.SetFields()
	if len(names) == 0 {
		return apierr.InvalidParams("No valid filter parameters")
	}
	conditions := make([]string, len(names))
	for i, name := range names {
		conditions[i] = name + " = ?"
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s", rec.Schema().Name(), strings.Join(conditions, " AND "))

	if _, err := a.db.ExecContext(ctx, a.db.Rebind(q), values...); err != nil {
		return apierr.Store(fmt.Errorf("delete from %s: %w", rec.Schema().Name(), err))
	}
	return nil
}

// Owner reads the declared owner column of one stored row by id. The bool
// reports whether the row exists at all; a nil owner on an existing row
// means the column is NULL. Handlers use it to let the owner tier match an
// instance whose owner is not part of the request payload.
func (a *Actions) Owner(ctx context.Context, schema *record.Schema, ownerField string, id int64) (*int64, bool, error) {
	if schema.FieldIndex(ownerField) < 0 {
		return nil, false, fmt.Errorf("unknown owner field %q on %s", ownerField, schema.Name())
	}
	q := a.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", ownerField, schema.Name()))
	var owner sql.NullInt64
	err := a.db.GetContext(ctx, &owner, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apierr.Store(fmt.Errorf("lookup owner of %s %d: %w", schema.Name(), id, err))
	}
	if !owner.Valid {
		return nil, true, nil
	}
	return &owner.Int64, true, nil
}

// CheckUnique runs one COUNT(*) per set Unique field and returns the names
// of fields whose value already exists, mapped to a client-facing message.
// An empty map means no duplicates.
func (a *Actions) CheckUnique(ctx context.Context, rec *record.Record) (map[string]string, error) {
	schema := rec.Schema()
	uniques := rec.UniqueFields()
	duplicates := make(map[string]string)

	for _, name := range schema.FieldNames() {
		if _, ok := uniques[name]; !ok {
			continue
		}
		value, _ := rec.Get(name)
		q := a.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", schema.Name(), name))
		var count int
		if err := a.db.GetContext(ctx, &count, q, value); err != nil {
			return nil, apierr.Store(fmt.Errorf("uniqueness check on %s.%s: %w", schema.Name(), name, err))
		}
		if count > 0 {
			duplicates[name] = "Already exist in db"
		}
	}
	return duplicates, nil
}
