package pgrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadora-backend/internal/domain"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) domain.CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	q := db(ctx, r.pool)

	var p domain.Product
	err := q.QueryRow(ctx, `
		SELECT id, name, slug, base_price, publish, image, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Slug, &p.BasePrice, &p.Publish, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT size, stock, price_adjust
		FROM product_sizes WHERE product_id = $1
		ORDER BY size`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.ProductSize
		if err := rows.Scan(&s.Size, &s.Stock, &s.PriceAdjust); err != nil {
			return nil, err
		}
		p.Sizes = append(p.Sizes, s)
	}
	return &p, rows.Err()
}

func (r *catalogRepository) GetBundleByID(ctx context.Context, id string) (*domain.Bundle, error) {
	var b domain.Bundle
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, price, stock, is_active, image, start_date, end_date, created_at, updated_at
		FROM bundles WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Price, &b.Stock, &b.IsActive, &b.Image, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DecrementSizeStock is the conditional write the whole placement path
// leans on: the stock threshold check and the decrement are one
// statement, so concurrent checkouts cannot both pass it.
func (r *catalogRepository) DecrementSizeStock(ctx context.Context, productID, size string, qty int) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE product_sizes
		SET stock = stock - $3
		WHERE product_id = $1 AND size = $2 AND stock >= $3`,
		productID, size, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *catalogRepository) IncrementSizeStock(ctx context.Context, productID, size string, qty int) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE product_sizes
		SET stock = stock + $3
		WHERE product_id = $1 AND size = $2`,
		productID, size, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "product size", ID: productID + "/" + size}
	}
	return nil
}

func (r *catalogRepository) DecrementBundleStock(ctx context.Context, bundleID string, qty int) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE bundles
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`,
		bundleID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *catalogRepository) IncrementBundleStock(ctx context.Context, bundleID string, qty int) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE bundles
		SET stock = stock + $2
		WHERE id = $1`,
		bundleID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "bundle", ID: bundleID}
	}
	return nil
}
