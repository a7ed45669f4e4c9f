package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"shopfront/internal/apperr"
	"shopfront/internal/domain"
	applog "shopfront/internal/log"
)

// ProductStore persists the Product aggregate (a product plus its assets).
// Absence is reported as ok == false, never as an error.
type ProductStore interface {
	GetAll(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (p domain.Product, ok bool, err error)
	Insert(ctx context.Context, in domain.NewProduct) (domain.Product, error)
	Update(ctx context.Context, id int64, in domain.NewProduct) (p domain.Product, ok bool, err error)
	// DeleteByID removes the product row only. Deleting an absent id is a no-op.
	DeleteByID(ctx context.Context, id int64) error
	// DeleteWithAssets removes the asset rows and the product in one
	// transaction and returns the filenames the rows referenced. ok reports
	// whether the product row existed.
	DeleteWithAssets(ctx context.Context, id int64) (names []string, ok bool, err error)
	// AddAsset records filename for productID. The caller must have written
	// the file to asset storage first.
	AddAsset(ctx context.Context, productID int64, filename string) (domain.Asset, error)
	AssetFilenames(ctx context.Context) ([]string, error)
}

type SQLProductStore struct{ db *sqlx.DB }

func NewProductStore(db *sqlx.DB) *SQLProductStore { return &SQLProductStore{db: db} }

var _ ProductStore = (*SQLProductStore)(nil)

// assetBatch bounds the IN list when loading assets for many products.
const assetBatch = 500

// conn checks out one pooled connection for the whole operation.
func (s *SQLProductStore) conn(ctx context.Context, op string) (*sqlx.Conn, error) {
	c, err := s.db.Connx(ctx)
	if err != nil {
		return nil, connFailed(op, err)
	}
	return c, nil
}

// inTx runs fn in a transaction on a dedicated connection, committing on
// success and rolling back before returning fn's error.
func (s *SQLProductStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	c, err := s.conn(ctx, op)
	if err != nil {
		return err
	}
	defer c.Close()

	tx, err := c.BeginTxx(ctx, nil)
	if err != nil {
		return connFailed(op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			applog.ErrorCtx(ctx, "store.rollback.fail", rbErr, map[string]any{"op": op})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func queryRows(ctx context.Context, q sqlx.QueryerContext, op, query string, args ...any) ([]row, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return scanRows(op, rows)
}

// attachAssets loads the assets of products inside tx and assigns them in
// place, preserving product order.
func attachAssets(ctx context.Context, tx *sqlx.Tx, op string, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[int64]int, len(products))
	ids := make([]int64, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids[i] = p.ID
	}

	for start := 0; start < len(ids); start += assetBatch {
		end := min(start+assetBatch, len(ids))
		query, args, err := sqlx.In(`SELECT id, product_id, filename FROM assets WHERE product_id IN (?) ORDER BY id`, ids[start:end])
		if err != nil {
			return storeErr(op, err)
		}
		rows, err := queryRows(ctx, tx, op, tx.Rebind(query), args...)
		if err != nil {
			return err
		}
		for _, r := range rows {
			a, err := mapAsset(r)
			if err != nil {
				return err
			}
			i, ok := index[a.ProductID]
			if !ok {
				return apperr.E(op, apperr.MappingFailed, &apperr.MappingError{Column: "product_id", Reason: "asset for unrequested product"})
			}
			products[i].Assets = append(products[i].Assets, a)
		}
	}
	return nil
}

func (s *SQLProductStore) GetAll(ctx context.Context) ([]domain.Product, error) {
	const op = "store.get_all"
	var out []domain.Product
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		rows, err := queryRows(ctx, tx, op, `SELECT id, name, price FROM products ORDER BY id`)
		if err != nil {
			return err
		}
		products := make([]domain.Product, 0, len(rows))
		for _, r := range rows {
			p, err := mapProduct(r)
			if err != nil {
				return err
			}
			products = append(products, p)
		}
		if err := attachAssets(ctx, tx, op, products); err != nil {
			return err
		}
		out = products
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLProductStore) GetByID(ctx context.Context, id int64) (domain.Product, bool, error) {
	const op = "store.get_by_id"
	var (
		out   domain.Product
		found bool
	)
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		rows, err := queryRows(ctx, tx, op, tx.Rebind(`SELECT id, name, price FROM products WHERE id = ?`), id)
		if err != nil || len(rows) == 0 {
			return err
		}
		p, err := mapProduct(rows[0])
		if err != nil {
			return err
		}
		products := []domain.Product{p}
		if err := attachAssets(ctx, tx, op, products); err != nil {
			return err
		}
		out, found = products[0], true
		return nil
	})
	if err != nil {
		return domain.Product{}, false, err
	}
	return out, found, nil
}

func (s *SQLProductStore) Insert(ctx context.Context, in domain.NewProduct) (domain.Product, error) {
	const op = "store.insert"
	c, err := s.conn(ctx, op)
	if err != nil {
		return domain.Product{}, err
	}
	defer c.Close()

	rows, err := queryRows(ctx, c, op,
		c.Rebind(`INSERT INTO products (name, price) VALUES (?, ?) RETURNING id, name, price`),
		in.Name, in.Price)
	if err != nil {
		return domain.Product{}, err
	}
	if len(rows) != 1 {
		return domain.Product{}, apperr.E(op, apperr.QueryFailed, errors.New("insert returned no row"))
	}
	return mapProduct(rows[0])
}

func (s *SQLProductStore) Update(ctx context.Context, id int64, in domain.NewProduct) (domain.Product, bool, error) {
	const op = "store.update"
	var (
		out   domain.Product
		found bool
	)
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		rows, err := queryRows(ctx, tx, op,
			tx.Rebind(`UPDATE products SET name = ?, price = ? WHERE id = ? RETURNING id, name, price`),
			in.Name, in.Price, id)
		if err != nil || len(rows) == 0 {
			return err
		}
		p, err := mapProduct(rows[0])
		if err != nil {
			return err
		}
		products := []domain.Product{p}
		if err := attachAssets(ctx, tx, op, products); err != nil {
			return err
		}
		out, found = products[0], true
		return nil
	})
	if err != nil {
		return domain.Product{}, false, err
	}
	return out, found, nil
}

func (s *SQLProductStore) DeleteByID(ctx context.Context, id int64) error {
	const op = "store.delete_by_id"
	c, err := s.conn(ctx, op)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.ExecContext(ctx, c.Rebind(`DELETE FROM products WHERE id = ?`), id); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *SQLProductStore) DeleteWithAssets(ctx context.Context, id int64) ([]string, bool, error) {
	const op = "store.delete_with_assets"
	var (
		filenames []string
		found     bool
	)
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		var names []string
		if err := tx.SelectContext(ctx, &names, tx.Rebind(`SELECT filename FROM assets WHERE product_id = ? ORDER BY id`), id); err != nil {
			return storeErr(op, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM assets WHERE product_id = ?`), id); err != nil {
			return storeErr(op, err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM products WHERE id = ?`), id)
		if err != nil {
			return storeErr(op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeErr(op, err)
		}
		filenames, found = names, n > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return filenames, found, nil
}

func (s *SQLProductStore) AddAsset(ctx context.Context, productID int64, filename string) (domain.Asset, error) {
	const op = "store.add_asset"
	c, err := s.conn(ctx, op)
	if err != nil {
		return domain.Asset{}, err
	}
	defer c.Close()

	rows, err := queryRows(ctx, c, op,
		c.Rebind(`INSERT INTO assets (product_id, filename) VALUES (?, ?) RETURNING id, product_id, filename`),
		productID, filename)
	if err != nil {
		return domain.Asset{}, err
	}
	if len(rows) != 1 {
		return domain.Asset{}, apperr.E(op, apperr.QueryFailed, errors.New("insert returned no row"))
	}
	return mapAsset(rows[0])
}

func (s *SQLProductStore) AssetFilenames(ctx context.Context) ([]string, error) {
	const op = "store.asset_filenames"
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT filename FROM assets ORDER BY id`); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}
