package repos

import (
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"shopfront/internal/apperr"
	"shopfront/internal/domain"
)

// row is one generic relational row keyed by column name. Values are
// whatever the driver produced: sqlite, pgx and lib/pq disagree on the
// Go types for integers, numerics and text, so the column readers below
// accept every representation of the right SQL type and nothing else.
type row map[string]any

// scanRows drains rows into generic rows. rows is closed.
func scanRows(op string, rows *sqlx.Rows) ([]row, error) {
	defer rows.Close()
	var out []row
	for rows.Next() {
		r := row{}
		if err := rows.MapScan(r); err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func mapFailed(op, col, format string, args ...any) error {
	return apperr.E(op, apperr.MappingFailed, &apperr.MappingError{Column: col, Reason: fmt.Sprintf(format, args...)})
}

func (r row) value(op, col string) (any, error) {
	v, ok := r[col]
	if !ok {
		return nil, mapFailed(op, col, "missing")
	}
	return v, nil
}

func (r row) integer(op, col string) (int64, error) {
	v, err := r.value(op, col)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case nil:
		return 0, mapFailed(op, col, "unexpected NULL")
	}
	return 0, mapFailed(op, col, "want integer, got %T", v)
}

func (r row) nullInteger(op, col string) (*int64, error) {
	v, err := r.value(op, col)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	n, err := r.integer(op, col)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r row) text(op, col string) (string, error) {
	v, err := r.value(op, col)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case nil:
		return "", mapFailed(op, col, "unexpected NULL")
	}
	return "", mapFailed(op, col, "want text, got %T", v)
}

func (r row) numeric(op, col string) (decimal.Decimal, error) {
	v, err := r.value(op, col)
	if err != nil {
		return decimal.Zero, err
	}
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return parseDecimal(op, col, t)
	case []byte:
		return parseDecimal(op, col, string(t))
	case nil:
		return decimal.Zero, mapFailed(op, col, "unexpected NULL")
	}
	return decimal.Zero, mapFailed(op, col, "want numeric, got %T", v)
}

func parseDecimal(op, col, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, mapFailed(op, col, "not a decimal: %s", strconv.Quote(s))
	}
	return d, nil
}

// mapProduct consumes id, name, price. Assets are filled in by the store.
func mapProduct(r row) (domain.Product, error) {
	const op = "repos.map_product"
	var (
		p   domain.Product
		err error
	)
	if p.ID, err = r.integer(op, "id"); err != nil {
		return domain.Product{}, err
	}
	if p.Name, err = r.text(op, "name"); err != nil {
		return domain.Product{}, err
	}
	if p.Price, err = r.numeric(op, "price"); err != nil {
		return domain.Product{}, err
	}
	p.Assets = []domain.Asset{}
	return p, nil
}

func mapAsset(r row) (domain.Asset, error) {
	const op = "repos.map_asset"
	var (
		a   domain.Asset
		err error
	)
	if a.ID, err = r.integer(op, "id"); err != nil {
		return domain.Asset{}, err
	}
	if a.ProductID, err = r.integer(op, "product_id"); err != nil {
		return domain.Asset{}, err
	}
	if a.Filename, err = r.text(op, "filename"); err != nil {
		return domain.Asset{}, err
	}
	return a, nil
}

func mapCategory(r row) (domain.Category, error) {
	const op = "repos.map_category"
	var (
		c   domain.Category
		err error
	)
	if c.ID, err = r.integer(op, "id"); err != nil {
		return domain.Category{}, err
	}
	if c.Name, err = r.text(op, "name"); err != nil {
		return domain.Category{}, err
	}
	if c.ParentID, err = r.nullInteger(op, "parent_id"); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}
