package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopfront/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns the flat category rows ordered by id. Tree assembly happens
// in the service.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	const op = "categories.list"
	rows, err := queryRows(ctx, r.db, op, `
  SELECT id, name, parent_id
  FROM categories
  ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, rw := range rows {
		c, err := mapCategory(rw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
