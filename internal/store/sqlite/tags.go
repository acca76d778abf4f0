package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"inkwell/internal/store"
)

func (s *Store) CreateTag(ctx context.Context, tag *store.Tag) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, tag.Name, tag.Slug)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	tag.ID = id
	return id, nil
}

func (s *Store) GetTag(ctx context.Context, id int64) (store.Tag, error) {
	var t store.Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name, slug FROM tags WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Tag{}, store.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTags(ctx context.Context) ([]store.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []store.Tag{}
	for rows.Next() {
		var t store.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) UpdateTag(ctx context.Context, tag *store.Tag) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tags SET name = ?, slug = ? WHERE id = ?`,
		tag.Name, tag.Slug, tag.ID)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
