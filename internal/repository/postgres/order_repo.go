package pgrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadora-backend/internal/domain"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) domain.OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := db(ctx, r.pool)

	err := q.QueryRow(ctx, `
		INSERT INTO orders (id, code, user_id, status, payment_status, payment_method,
			total_amount, address_id, placed_at, estimated_delivery_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		order.ID, order.Code, order.UserID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.TotalAmount, order.AddressID, order.PlacedAt, order.EstimatedDeliveryAt).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		_, err := q.Exec(ctx, `
			INSERT INTO order_items (id, order_id, kind, product_id, size, bundle_id,
				name, image, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11)`,
			item.ID, order.ID, item.Kind, item.ProductID, item.Size, item.BundleID,
			item.Name, item.Image, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, code, user_id, status, payment_status, payment_method, total_amount,
	address_id, placed_at, estimated_delivery_at, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.Code, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.TotalAmount, &o.AddressID, &o.PlacedAt, &o.EstimatedDeliveryAt, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, kind, product_id, size, bundle_id, name, image, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var productID, size, bundleID *string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Kind, &productID, &size, &bundleID,
			&it.Name, &it.Image, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		if productID != nil {
			it.ProductID = *productID
		}
		if size != nil {
			it.Size = *size
		}
		if bundleID != nil {
			it.BundleID = *bundleID
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil || order == nil {
		return order, err
	}
	order.Items, err = r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 ORDER BY placed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items, err = r.getItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Code, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
			&o.TotalAmount, &o.AddressID, &o.PlacedAt, &o.EstimatedDeliveryAt, &o.DeliveredAt,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var status, paymentStatus, userID *string
	if filter.Status != "" {
		status = &filter.Status
	}
	if filter.PaymentStatus != "" {
		paymentStatus = &filter.PaymentStatus
	}
	if filter.UserID != "" {
		userID = &filter.UserID
	}

	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR payment_status = $2)
		  AND ($3::text IS NULL OR user_id = $3)
		ORDER BY placed_at DESC
		LIMIT $4 OFFSET $5`, status, paymentStatus, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	err = db(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR payment_status = $2)
		  AND ($3::text IS NULL OR user_id = $3)`, status, paymentStatus, userID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	for i := range orders {
		orders[i].Items, err = r.getItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return orders, count, nil
}

// UpdateStatus is a compare-and-set: the previous-status predicate is
// what serializes concurrent transitions, so stock restoration and the
// other transition side effects in the surrounding transaction cannot
// run twice for the same edge.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	q := db(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current domain.OrderStatus
		err := q.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if err != nil {
			return err
		}
		return domain.NewStateError("order", current, to)
	}
	return nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}

func (r *orderRepository) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET delivered_at = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

func (r *orderRepository) CreateEvent(ctx context.Context, event *domain.OrderEvent) error {
	return db(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO order_events (order_id, previous_status, new_status, note, actor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		event.OrderID, event.PreviousStatus, event.NewStatus, event.Note, event.ActorID).
		Scan(&event.ID, &event.CreatedAt)
}

func (r *orderRepository) GetEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, previous_status, new_status, note, actor_id, created_at
		FROM order_events WHERE order_id = $1
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var e domain.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.PreviousStatus, &e.NewStatus, &e.Note, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
