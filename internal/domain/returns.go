package domain

import (
	"context"
	"time"
)

// ReturnRequest tracks one user-submitted return selection from
// submission through inspection to refund completion. Requests are never
// deleted; rejection and withdrawal are statuses.
type ReturnRequest struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"orderId"`
	UserID        string        `json:"userId"`
	Status        ReturnStatus  `json:"status"`
	Items         []ReturnItem  `json:"items"`
	AdminComment  *string       `json:"adminComment"`
	Resubmissions int           `json:"resubmissions"`
	Refund        RefundDetails `json:"refundDetails"`
	RequestedAt   time.Time     `json:"requestedAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ReturnItem selects one delivered order item for return. RefundBase is
// the paid line total captured at submission; the actual refund amount is
// a policy percentage of the sum of bases, decided at processing time.
type ReturnItem struct {
	ID          string       `json:"id"`
	ReturnID    string       `json:"returnId"`
	OrderItemID string       `json:"orderItemId"`
	Reason      ReturnReason `json:"reason"`
	Comment     string       `json:"comment,omitempty"`
	Quantity    int          `json:"quantity"`
	RefundBase  float64      `json:"refundBase"`
}

// RefundDetails is the nested refund sub-record on a return request.
type RefundDetails struct {
	Status        RefundStatus `json:"status"`
	Method        string       `json:"method,omitempty"`
	TransactionID string       `json:"transactionId,omitempty"`
	Percent       float64      `json:"percent,omitempty"`
	Amount        float64      `json:"amount,omitempty"`
	ProcessedAt   *time.Time   `json:"processedAt,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
}

// RefundableTotal sums the captured bases of all selected items.
func (r *ReturnRequest) RefundableTotal() float64 {
	var total float64
	for _, it := range r.Items {
		total += it.RefundBase
	}
	return total
}

// ReturnEventRecord is one row of the return audit trail.
type ReturnEventRecord struct {
	ID             string    `json:"id"`
	ReturnID       string    `json:"returnId"`
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Note           *string   `json:"note"`
	ActorID        *string   `json:"actorId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReturnableItem is a delivered order item still eligible for a return
// request. Blocked marks items on an open return or one whose refund
// already completed.
type ReturnableItem struct {
	Item         OrderItem `json:"item"`
	ReturnByDate time.Time `json:"returnByDate"`
	Blocked      bool      `json:"blocked"`
}

type ReturnFilter struct {
	Page   int
	Limit  int
	Status string
	UserID string
}

type ReturnRepository interface {
	Create(ctx context.Context, req *ReturnRequest) error
	GetByID(ctx context.Context, id string) (*ReturnRequest, error)
	GetByUserID(ctx context.Context, userID string) ([]ReturnRequest, error)
	GetAll(ctx context.Context, filter ReturnFilter) ([]ReturnRequest, int64, error)
	// UpdateStatus writes the status conditionally on the expected
	// previous status; losing a concurrent transition is a StateError.
	UpdateStatus(ctx context.Context, id string, from, to ReturnStatus) error
	UpdateAdminComment(ctx context.Context, id string, comment string) error
	IncrementResubmissions(ctx context.Context, id string) error
	UpdateRefund(ctx context.Context, id string, refund RefundDetails) error
	// BlockedItemIDs returns order-item ids of the order that cannot go
	// on a new return request: items on an open return, and items whose
	// return already completed with a paid refund.
	BlockedItemIDs(ctx context.Context, orderID string) (map[string]bool, error)
	CreateEvent(ctx context.Context, event *ReturnEventRecord) error
	GetEvents(ctx context.Context, returnID string) ([]ReturnEventRecord, error)
}
