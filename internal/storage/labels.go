package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

// LabelFilter widens a listing beyond the picker default of visible, active
// labels.
type LabelFilter struct {
	IncludeHidden   bool
	IncludeArchived bool
}

type labelSQL struct {
	table string
	count string
}

var labelTables = map[core.LabelKind]labelSQL{
	core.KindCategory: {
		table: "categories",
		count: "(SELECT COUNT(*) FROM transactions t WHERE t.category_id = l.id)",
	},
	core.KindTag: {
		table: "tags",
		count: "(SELECT COUNT(*) FROM transaction_tags tt WHERE tt.tag_id = l.id)",
	},
}

func labelSQLFor(kind core.LabelKind) (labelSQL, error) {
	s, ok := labelTables[kind]
	if !ok {
		return labelSQL{}, fmt.Errorf("unknown label kind %q", kind)
	}
	return s, nil
}

func (s labelSQL) selectPrefix() string {
	return `SELECT l.id, l.user_id, l.name, l.icon, l.color, l.is_visible, l.state, l.created_at, l.updated_at, ` +
		s.count + ` FROM ` + s.table + ` l`
}

func scanLabel(row interface{ Scan(...any) error }, kind core.LabelKind) (core.Label, error) {
	var (
		l                core.Label
		state            string
		created, updated int64
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Icon, &l.Color, &l.IsVisible, &state, &created, &updated, &l.TransactionCount); err != nil {
		return core.Label{}, err
	}
	l.Kind = kind
	l.State = core.LabelState(state)
	l.CreatedAt = unixTime(created)
	l.UpdatedAt = unixTime(updated)
	return l, nil
}

func (q *Queries) ListLabels(ctx context.Context, kind core.LabelKind, userID string, f LabelFilter) ([]core.Label, error) {
	s, err := labelSQLFor(kind)
	if err != nil {
		return nil, err
	}
	query := s.selectPrefix() + ` WHERE l.user_id = ?`
	args := []any{userID}
	if !f.IncludeArchived {
		query += ` AND l.state = ?`
		args = append(args, string(core.StateActive))
	}
	if !f.IncludeHidden {
		query += ` AND l.is_visible = ?`
		args = append(args, true)
	}
	query += ` ORDER BY l.name`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	out := []core.Label{}
	for rows.Next() {
		l, err := scanLabel(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetLabel returns the label only when userID owns it, whatever its state.
func (q *Queries) GetLabel(ctx context.Context, kind core.LabelKind, id, userID string) (core.Label, error) {
	s, err := labelSQLFor(kind)
	if err != nil {
		return core.Label{}, err
	}
	l, err := scanLabel(q.queryRow(ctx, s.selectPrefix()+` WHERE l.id = ? AND l.user_id = ?`, id, userID), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Label{}, &core.NotFoundError{Resource: string(kind)}
	}
	if err != nil {
		return core.Label{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return l, nil
}

// GetLabelsByIDs returns the subset of ids owned by userID, keyed by id.
func (q *Queries) GetLabelsByIDs(ctx context.Context, kind core.LabelKind, userID string, ids []string) (map[string]core.Label, error) {
	out := make(map[string]core.Label, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	s, err := labelSQLFor(kind)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q.query(ctx, s.selectPrefix()+` WHERE l.user_id = ? AND l.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s by ids: %w", s.table, err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLabel(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

// LabelNameTaken reports whether another label of the same kind already uses
// name (case-insensitive) for this user.
func (q *Queries) LabelNameTaken(ctx context.Context, kind core.LabelKind, userID, name, excludeID string) (bool, error) {
	s, err := labelSQLFor(kind)
	if err != nil {
		return false, err
	}
	var n int64
	err = q.queryRow(ctx,
		`SELECT COUNT(*) FROM `+s.table+` WHERE user_id = ? AND LOWER(name) = LOWER(?) AND id <> ?`,
		userID, name, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s name: %w", kind, err)
	}
	return n > 0, nil
}

func (q *Queries) InsertLabel(ctx context.Context, l core.Label) error {
	s, err := labelSQLFor(l.Kind)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx, `
INSERT INTO `+s.table+` (id, user_id, name, icon, color, is_visible, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, l.Icon, l.Color, l.IsVisible, string(l.State), l.CreatedAt.Unix(), l.UpdatedAt.Unix())
	if isUniqueViolation(err) {
		return &core.ConflictError{Resource: string(l.Kind), Field: "name"}
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", l.Kind, err)
	}
	return nil
}

// InsertLabelIfAbsent skips labels whose name the user already has and
// reports whether a row was written.
func (q *Queries) InsertLabelIfAbsent(ctx context.Context, l core.Label) (bool, error) {
	s, err := labelSQLFor(l.Kind)
	if err != nil {
		return false, err
	}
	res, err := q.exec(ctx, `
INSERT INTO `+s.table+` (id, user_id, name, icon, color, is_visible, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		l.ID, l.UserID, l.Name, l.Icon, l.Color, l.IsVisible, string(l.State), l.CreatedAt.Unix(), l.UpdatedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", l.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) UpdateLabel(ctx context.Context, l core.Label) error {
	s, err := labelSQLFor(l.Kind)
	if err != nil {
		return err
	}
	res, err := q.exec(ctx, `
UPDATE `+s.table+` SET name = ?, icon = ?, color = ?, is_visible = ?, state = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		l.Name, l.Icon, l.Color, l.IsVisible, string(l.State), l.UpdatedAt.Unix(), l.ID, l.UserID)
	if isUniqueViolation(err) {
		return &core.ConflictError{Resource: string(l.Kind), Field: "name"}
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", l.Kind, err)
	}
	return requireAffected(res, &core.NotFoundError{Resource: string(l.Kind)})
}
