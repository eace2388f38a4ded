package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// metaColumns are the change-tracking columns shared by every entity table.
var metaColumns = []string{"id", "created_at", "updated_at", "local_updated_at", "deleted_at", "is_synced"}

// table maps one entity kind to its SQLite table. columns, values and dest
// cover the domain columns in the same order; load and save handle data kept
// outside the row, such as task tag membership.
type table struct {
	kind    types.Kind
	columns []string
	values  func(e types.Entity) []any
	dest    func(e types.Entity) []any
	load    func(ctx context.Context, q dbtx, e types.Entity) error
	save    func(ctx context.Context, q dbtx, e types.Entity) error
}

// tables is populated by each *_table.go file.
var tables = map[types.Kind]*table{}

func register(t *table) { tables[t.kind] = t }

func tableFor(kind types.Kind) (*table, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownKind, kind)
	}
	return t, nil
}

func (t *table) allColumns() []string {
	return append(append([]string{}, metaColumns...), t.columns...)
}

func (t *table) selectSQL() string {
	return "SELECT " + strings.Join(t.allColumns(), ", ") + " FROM " + string(t.kind)
}

func metaValues(m *types.SyncMeta) []any {
	return []any{
		m.ID,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
		formatTime(m.LocalUpdatedAt),
		formatNullTime(m.DeletedAt),
		m.IsSynced,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (t *table) scan(row rowScanner) (types.Entity, error) {
	e, err := types.NewEntity(t.kind)
	if err != nil {
		return nil, err
	}
	m := e.Meta()
	dest := []any{
		&m.ID,
		timeCol{&m.CreatedAt},
		timeCol{&m.UpdatedAt},
		timeCol{&m.LocalUpdatedAt},
		nullTimeCol{&m.DeletedAt},
		&m.IsSynced,
	}
	dest = append(dest, t.dest(e)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return e, nil
}

// get fetches one row by id. Tombstoned rows are returned only when
// withDeleted is set.
func (s *Store) get(ctx context.Context, kind types.Kind, id string, withDeleted bool) (types.Entity, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := t.selectSQL() + " WHERE id = ?"
	if !withDeleted {
		query += " AND deleted_at IS NULL"
	}
	e, err := t.scan(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %s: %w", kind, id, err)
	}
	if t.load != nil {
		if err := t.load(ctx, s.q, e); err != nil {
			return nil, fmt.Errorf("loading %s %s: %w", kind, id, err)
		}
	}
	return e, nil
}

// list runs a filtered select. where and order are SQL fragments without
// their keywords; an empty where selects live rows.
func (s *Store) list(ctx context.Context, kind types.Kind, where, order string, args ...any) ([]types.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if where == "" {
		where = "deleted_at IS NULL"
	}
	query := t.selectSQL() + " WHERE " + where
	if order != "" {
		query += " ORDER BY " + order
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	var out []types.Entity
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		out = append(out, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	// Rows are closed before loading extras; the pool has one connection.
	if t.load != nil {
		for _, e := range out {
			if err := t.load(ctx, s.q, e); err != nil {
				return nil, fmt.Errorf("loading %s %s: %w", kind, e.Meta().ID, err)
			}
		}
	}
	return out, nil
}

func (s *Store) insert(ctx context.Context, e types.Entity) error {
	t, err := tableFor(e.Kind())
	if err != nil {
		return err
	}
	cols := t.allColumns()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.kind, strings.Join(cols, ", "), placeholders(len(cols)))
	args := append(metaValues(e.Meta()), t.values(e)...)
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting %s: %w", t.kind, err)
	}
	if t.save != nil {
		if err := t.save(ctx, s.q, e); err != nil {
			return fmt.Errorf("saving %s %s: %w", t.kind, e.Meta().ID, err)
		}
	}
	return nil
}

// update rewrites every column of an existing row.
func (s *Store) update(ctx context.Context, e types.Entity) error {
	t, err := tableFor(e.Kind())
	if err != nil {
		return err
	}
	cols := t.allColumns()[1:]
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.kind, strings.Join(sets, ", "))
	args := append(metaValues(e.Meta())[1:], t.values(e)...)
	args = append(args, e.Meta().ID)
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", t.kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	if t.save != nil {
		if err := t.save(ctx, s.q, e); err != nil {
			return fmt.Errorf("saving %s %s: %w", t.kind, e.Meta().ID, err)
		}
	}
	return nil
}

// upsert inserts e or replaces the existing row with the same id.
func (s *Store) upsert(ctx context.Context, e types.Entity) error {
	t, err := tableFor(e.Kind())
	if err != nil {
		return err
	}
	cols := t.allColumns()
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		t.kind, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(sets, ", "))
	args := append(metaValues(e.Meta()), t.values(e)...)
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting %s: %w", t.kind, err)
	}
	if t.save != nil {
		if err := t.save(ctx, s.q, e); err != nil {
			return fmt.Errorf("saving %s %s: %w", t.kind, e.Meta().ID, err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// write runs fn in a transaction, joining the current one if any.
func (s *Store) write(ctx context.Context, fn func(tx *Store) error) error {
	return s.InTx(ctx, fn)
}

// create stamps and inserts a new entity.
func (s *Store) create(ctx context.Context, e types.Entity) error {
	return s.write(ctx, func(tx *Store) error {
		if err := tx.trackCreate(e); err != nil {
			return err
		}
		return tx.insert(ctx, e)
	})
}

// modify loads a live entity, applies fn, stamps the change and saves it.
func (s *Store) modify(ctx context.Context, kind types.Kind, id string, fn func(e types.Entity) error) (types.Entity, error) {
	var out types.Entity
	err := s.write(ctx, func(tx *Store) error {
		e, err := tx.get(ctx, kind, id, false)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		tx.trackUpdate(e)
		if err := tx.update(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// remove tombstones a live entity. It reports false when no live row exists.
func (s *Store) remove(ctx context.Context, kind types.Kind, id string) (bool, error) {
	if id == "" {
		return false, types.ErrInvalidID
	}
	removed := false
	err := s.write(ctx, func(tx *Store) error {
		e, err := tx.get(ctx, kind, id, false)
		if errors.Is(err, types.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		tx.trackDelete(e)
		if err := tx.update(ctx, e); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

func fetch[T types.Entity](ctx context.Context, s *Store, kind types.Kind, id string) (T, error) {
	var zero T
	e, err := s.get(ctx, kind, id, false)
	if err != nil {
		return zero, err
	}
	return e.(T), nil
}

func fetchAll[T types.Entity](ctx context.Context, s *Store, kind types.Kind, where, order string, args ...any) ([]T, error) {
	es, err := s.list(ctx, kind, where, order, args...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(es))
	for _, e := range es {
		out = append(out, e.(T))
	}
	return out, nil
}
