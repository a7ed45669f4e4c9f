package repos

import (
	"context"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // registers "postgres"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// OpenDB opens the pool for driver (sqlite | pgx | postgres), applies the
// schema and seeds demo categories on an empty database.
func OpenDB(ctx context.Context, driver, dsn string, maxConns int) (*sqlx.DB, error) {
	if driver == "sqlite" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// One connection keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	} else if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := seedIfEmpty(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN adds the foreign_keys pragma so every new connection enforces
// the asset -> product reference, not only the first one.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "pgx" || db.DriverName() == "postgres"
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL
);

-- No ON DELETE CASCADE: deleting a product with assets must go through
-- the transactional DeleteWithAssets path.
CREATE TABLE IF NOT EXISTS assets(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL REFERENCES products(id),
  filename TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_assets_product ON assets(product_id);

CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  parent_id INTEGER NULL REFERENCES categories(id)
);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);
`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products(
  id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC(12,2) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS assets(
  id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
  product_id BIGINT NOT NULL REFERENCES products(id),
  filename TEXT NOT NULL UNIQUE
)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_product ON assets(product_id)`,
	`CREATE TABLE IF NOT EXISTS categories(
  id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
  name TEXT NOT NULL,
  parent_id BIGINT NULL REFERENCES categories(id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id)`,
}

// EnsureSchema creates the tables if missing. Not a migration tool.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if !isPostgres(db) {
		_, err := db.ExecContext(ctx, sqliteSchema)
		return err
	}
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedIfEmpty(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories")

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insert := tx.Rebind(`INSERT INTO categories(name, parent_id) VALUES (?, ?) RETURNING id`)
	var clothing, footwear int64
	if err := tx.GetContext(ctx, &clothing, insert, "Clothing", nil); err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &footwear, insert, "Footwear", clothing); err != nil {
		return err
	}
	for _, name := range []string{"Sneakers", "Boots"} {
		if _, err := tx.ExecContext(ctx, insert, name, footwear); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, insert, "Accessories", nil); err != nil {
		return err
	}
	return tx.Commit()
}
