package postgres

import (
	"context"
	"database/sql"

	"demoapi/internal/model"
	"demoapi/internal/repository"
)

// ProductPostgres is a PostgreSQL implementation of repository.ProductRepository.
type ProductPostgres struct {
	db *sql.DB
}

// NewProductPostgres creates a new ProductPostgres repository.
func NewProductPostgres(db *sql.DB) *ProductPostgres {
	return &ProductPostgres{db: db}
}

var _ repository.ProductRepository = (*ProductPostgres)(nil)

// List returns the catalog ordered by id.
func (r *ProductPostgres) List(ctx context.Context) ([]model.Product, error) {
	const q = `SELECT id, name, price, stock FROM products ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
