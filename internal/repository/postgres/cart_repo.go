package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadora-backend/internal/domain"
)

type cartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) domain.CartRepository {
	return &cartRepository{pool: pool}
}

const cartLineColumns = `id, user_id, kind, product_id, size, bundle_id, quantity, unit_price, created_at, updated_at`

func scanCartLines(rows pgx.Rows) ([]domain.CartLine, error) {
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		var productID, size, bundleID *string
		if err := rows.Scan(&l.ID, &l.UserID, &l.Kind, &productID, &size, &bundleID, &l.Quantity, &l.UnitPrice, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if productID != nil {
			l.ProductID = *productID
		}
		if size != nil {
			l.Size = *size
		}
		if bundleID != nil {
			l.BundleID = *bundleID
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *cartRepository) GetLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_lines WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	return scanCartLines(rows)
}

func (r *cartRepository) GetLinesByIDs(ctx context.Context, userID string, lineIDs []string) ([]domain.CartLine, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+cartLineColumns+`
		FROM cart_lines WHERE user_id = $1 AND id = ANY($2)
		ORDER BY created_at`, userID, lineIDs)
	if err != nil {
		return nil, err
	}
	return scanCartLines(rows)
}

func (r *cartRepository) FindLine(ctx context.Context, userID string, kind domain.ItemKind, refID, size string) (*domain.CartLine, error) {
	var query string
	var args []any
	if kind == domain.ItemKindBundle {
		query = `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE user_id = $1 AND kind = $2 AND bundle_id = $3`
		args = []any{userID, kind, refID}
	} else {
		query = `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE user_id = $1 AND kind = $2 AND product_id = $3 AND size = $4`
		args = []any{userID, kind, refID, size}
	}

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	lines, err := scanCartLines(rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return &lines[0], nil
}

func (r *cartRepository) CreateLine(ctx context.Context, line *domain.CartLine) error {
	return db(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO cart_lines (id, user_id, kind, product_id, size, bundle_id, quantity, unit_price)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING created_at, updated_at`,
		line.ID, line.UserID, line.Kind, line.ProductID, line.Size, line.BundleID, line.Quantity, line.UnitPrice).
		Scan(&line.CreatedAt, &line.UpdatedAt)
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE cart_lines SET quantity = $2, updated_at = now()
		WHERE id = $1`, lineID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "cart line", ID: lineID}
	}
	return nil
}

func (r *cartRepository) DeleteLine(ctx context.Context, userID, lineID string) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`, userID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "cart line", ID: lineID}
	}
	return nil
}

func (r *cartRepository) DeleteLines(ctx context.Context, userID string, lineIDs []string) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2)`, userID, lineIDs)
	if err != nil {
		return err
	}
	return nil
}
