package pgrepo

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"threadora-backend/internal/domain"
)

type returnRepository struct {
	pool *pgxpool.Pool
}

func NewReturnRepository(pool *pgxpool.Pool) domain.ReturnRepository {
	return &returnRepository{pool: pool}
}

func (r *returnRepository) Create(ctx context.Context, req *domain.ReturnRequest) error {
	q := db(ctx, r.pool)

	refund, err := json.Marshal(req.Refund)
	if err != nil {
		return err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO return_requests (id, order_id, user_id, status, refund_details, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING updated_at`,
		req.ID, req.OrderID, req.UserID, req.Status, refund, req.RequestedAt).
		Scan(&req.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range req.Items {
		item := &req.Items[i]
		_, err := q.Exec(ctx, `
			INSERT INTO return_items (id, return_id, order_item_id, reason, comment, quantity, refund_base)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, req.ID, item.OrderItemID, item.Reason, item.Comment, item.Quantity, item.RefundBase)
		if err != nil {
			return err
		}
	}
	return nil
}

const returnColumns = `id, order_id, user_id, status, admin_comment, resubmissions,
	refund_details, requested_at, updated_at`

func scanReturn(row pgx.Row) (*domain.ReturnRequest, error) {
	var req domain.ReturnRequest
	var refund []byte
	err := row.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Status, &req.AdminComment,
		&req.Resubmissions, &refund, &req.RequestedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(refund) > 0 {
		if err := json.Unmarshal(refund, &req.Refund); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

func (r *returnRepository) getItems(ctx context.Context, returnID string) ([]domain.ReturnItem, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, return_id, order_item_id, reason, comment, quantity, refund_base
		FROM return_items WHERE return_id = $1`, returnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ReturnItem
	for rows.Next() {
		var it domain.ReturnItem
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.OrderItemID, &it.Reason, &it.Comment,
			&it.Quantity, &it.RefundBase); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *returnRepository) GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	req, err := scanReturn(db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+returnColumns+` FROM return_requests WHERE id = $1`, id))
	if err != nil || req == nil {
		return req, err
	}
	req.Items, err = r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *returnRepository) scanReturns(rows pgx.Rows) ([]domain.ReturnRequest, error) {
	defer rows.Close()

	var reqs []domain.ReturnRequest
	for rows.Next() {
		var req domain.ReturnRequest
		var refund []byte
		if err := rows.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Status, &req.AdminComment,
			&req.Resubmissions, &refund, &req.RequestedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		if len(refund) > 0 {
			if err := json.Unmarshal(refund, &req.Refund); err != nil {
				return nil, err
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *returnRepository) GetByUserID(ctx context.Context, userID string) ([]domain.ReturnRequest, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+returnColumns+` FROM return_requests
		WHERE user_id = $1 ORDER BY requested_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	reqs, err := r.scanReturns(rows)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i].Items, err = r.getItems(ctx, reqs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

func (r *returnRepository) GetAll(ctx context.Context, filter domain.ReturnFilter) ([]domain.ReturnRequest, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var status, userID *string
	if filter.Status != "" {
		status = &filter.Status
	}
	if filter.UserID != "" {
		userID = &filter.UserID
	}

	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+returnColumns+` FROM return_requests
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR user_id = $2)
		ORDER BY requested_at DESC
		LIMIT $3 OFFSET $4`, status, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	reqs, err := r.scanReturns(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	err = db(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM return_requests
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR user_id = $2)`, status, userID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	for i := range reqs {
		reqs[i].Items, err = r.getItems(ctx, reqs[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return reqs, count, nil
}

// UpdateStatus is a compare-and-set on the previous status. Two
// concurrent refund completions cannot both pass it, so a refund is
// never settled or announced twice.
func (r *returnRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReturnStatus) error {
	q := db(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE return_requests SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current domain.ReturnStatus
		err := q.QueryRow(ctx, `SELECT status FROM return_requests WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Entity: "return request", ID: id}
		}
		if err != nil {
			return err
		}
		return domain.NewStateError("return", current, to)
	}
	return nil
}

func (r *returnRepository) UpdateAdminComment(ctx context.Context, id string, comment string) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE return_requests SET admin_comment = $2, updated_at = now() WHERE id = $1`, id, comment)
	return err
}

func (r *returnRepository) IncrementResubmissions(ctx context.Context, id string) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE return_requests SET resubmissions = resubmissions + 1, updated_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *returnRepository) UpdateRefund(ctx context.Context, id string, refund domain.RefundDetails) error {
	payload, err := json.Marshal(refund)
	if err != nil {
		return err
	}
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE return_requests SET refund_details = $2, updated_at = now() WHERE id = $1`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "return request", ID: id}
	}
	return nil
}

// BlockedItemIDs excludes only the statuses that genuinely free an item
// up again: rejection and withdrawal. COMPLETED stays blocking, since
// its refund has been paid out and a second request for the same item
// would credit it twice.
func (r *returnRepository) BlockedItemIDs(ctx context.Context, orderID string) (map[string]bool, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT ri.order_item_id
		FROM return_items ri
		JOIN return_requests rr ON rr.id = ri.return_id
		WHERE rr.order_id = $1 AND rr.status NOT IN ($2, $3)`,
		orderID, domain.ReturnStatusRejected, domain.ReturnStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		blocked[id] = true
	}
	return blocked, rows.Err()
}

func (r *returnRepository) CreateEvent(ctx context.Context, event *domain.ReturnEventRecord) error {
	return db(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO return_events (return_id, previous_status, new_status, note, actor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		event.ReturnID, event.PreviousStatus, event.NewStatus, event.Note, event.ActorID).
		Scan(&event.ID, &event.CreatedAt)
}

func (r *returnRepository) GetEvents(ctx context.Context, returnID string) ([]domain.ReturnEventRecord, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, return_id, previous_status, new_status, note, actor_id, created_at
		FROM return_events WHERE return_id = $1
		ORDER BY created_at`, returnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ReturnEventRecord
	for rows.Next() {
		var e domain.ReturnEventRecord
		if err := rows.Scan(&e.ID, &e.ReturnID, &e.PreviousStatus, &e.NewStatus, &e.Note, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
