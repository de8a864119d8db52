package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/record"
)

// Matrix is the full grant table for one resource type: per group, one
// instance-level mask plus one mask per schema field, aligned with the
// schema's declaration order.
type Matrix struct {
	schema   *record.Schema
	instance [NumGroups]Mask
	fields   [NumGroups][]Mask
}

// NewMatrix returns an all-zero matrix for the schema. Tests and seeds
// populate it through SetRow.
func NewMatrix(schema *record.Schema) *Matrix {
	m := &Matrix{schema: schema}
	for g := range m.fields {
		m.fields[g] = make([]Mask, schema.Len())
	}
	return m
}

// SetRow replaces one group's instance mask and field masks. Fields not
// named in perms keep a zero mask.
func (m *Matrix) SetRow(g Group, instance Mask, perms map[string]Mask) {
	m.instance[g] = instance
	for name, mask := range perms {
		if i := m.schema.FieldIndex(name); i >= 0 {
			m.fields[g][i] = mask
		}
	}
}

// Instance returns the instance-level mask for a group.
func (m *Matrix) Instance(g Group) Mask { return m.instance[g] }

// FieldAt returns the mask for the field at schema position i.
func (m *Matrix) FieldAt(g Group, i int) Mask { return m.fields[g][i] }

// LoadMatrix reads the "<table>_permissions" side table. Each row holds a
// group_id, an instance column and one integer column per schema field;
// field columns absent from the side table stay at zero.
func LoadMatrix(ctx context.Context, db *sqlx.DB, schema *record.Schema) (*Matrix, error) {
	m := NewMatrix(schema)

	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s_permissions", schema.Name()))
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load permission matrix for %s: %w", schema.Name(), err))
	}
	defer rows.Close()

	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, apierr.Store(fmt.Errorf("scan permission row: %w", err))
		}
		g, ok := intColumn(row, "group_id")
		if !ok || g < 0 || g >= NumGroups {
			continue
		}
		group := Group(g)
		if inst, ok := intColumn(row, "instance"); ok {
			m.instance[group] = Mask(inst)
		}
		for i, name := range schema.FieldNames() {
			if v, ok := intColumn(row, name); ok {
				m.fields[group][i] = Mask(v)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Store(fmt.Errorf("read permission rows: %w", err))
	}
	return m, nil
}

func intColumn(row map[string]any, name string) (int64, bool) {
	switch v := row[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case []byte:
		var n int64
		if _, err := fmt.Sscanf(string(v), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// MatrixLoader loads permission matrices, optionally through a short-TTL
// read-through cache keyed by table name. A zero TTL disables caching and
// reloads the matrix on every authorized access, which is the baseline
// behavior.
type MatrixLoader struct {
	db    *sqlx.DB
	cache *gocache.Cache
}

// NewMatrixLoader builds a loader. ttl <= 0 disables the cache.
func NewMatrixLoader(db *sqlx.DB, ttl time.Duration) *MatrixLoader {
	l := &MatrixLoader{db: db}
	if ttl > 0 {
		l.cache = gocache.New(ttl, 2*ttl)
	}
	return l
}

// Load returns the matrix for the schema's table.
func (l *MatrixLoader) Load(ctx context.Context, schema *record.Schema) (*Matrix, error) {
	if l.cache != nil {
		if cached, ok := l.cache.Get(schema.Name()); ok {
			return cached.(*Matrix), nil
		}
	}
	m, err := LoadMatrix(ctx, l.db, schema)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.SetDefault(schema.Name(), m)
	}
	return m, nil
}

// Invalidate drops the cached matrix for a table. Callers that write to a
// permission side table invalidate here.
func (l *MatrixLoader) Invalidate(table string) {
	if l.cache != nil {
		l.cache.Delete(table)
	}
}
