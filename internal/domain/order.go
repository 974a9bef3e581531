package domain

import (
	"context"
	"time"
)

type OrderFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	UserID        string
}

// Order is created atomically with its stock decrement and never hard
// deleted; cancellation is a status, not a deletion. Item snapshots are
// immutable after placement, only the status and delivery fields mutate.
type Order struct {
	ID                  string        `json:"id"`
	Code                string        `json:"code"`
	UserID              string        `json:"userId"`
	Status              OrderStatus   `json:"orderStatus"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	PaymentMethod       string        `json:"paymentMethod"`
	TotalAmount         float64       `json:"totalAmount"`
	AddressID           string        `json:"addressId"`
	Items               []OrderItem   `json:"items"`
	PlacedAt            time.Time     `json:"placedAt"`
	EstimatedDeliveryAt *time.Time    `json:"estimatedDeliveryAt"`
	DeliveredAt         *time.Time    `json:"deliveredAt"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// OrderItem is an immutable snapshot of one ordered line captured at
// commit time. Display fields stay frozen even if the catalog record
// changes later.
type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"orderId"`
	Kind      ItemKind `json:"kind"`
	ProductID string   `json:"productId,omitempty"`
	Size      string   `json:"size,omitempty"`
	BundleID  string   `json:"bundleId,omitempty"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unitPrice"`
	LineTotal float64  `json:"lineTotal"`
}

// RefID returns the catalog id the item snapshot points at.
func (i *OrderItem) RefID() string {
	if i.Kind == ItemKindBundle {
		return i.BundleID
	}
	return i.ProductID
}

// OrderEvent is one row of the status audit trail.
type OrderEvent struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Note           *string   `json:"note"`
	ActorID        *string   `json:"actorId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BulkTransitionResult collects per-order outcomes of a bulk status
// update; the batch is never all-or-nothing.
type BulkTransitionResult struct {
	Updated []string          `json:"updated"`
	Errors  map[string]string `json:"errors"`
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	// UpdateStatus writes the status conditionally on the expected
	// previous status. A concurrent transition that got there first
	// surfaces as a StateError, so transition side effects run at most
	// once.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) error
	SetDeliveredAt(ctx context.Context, id string, at time.Time) error
	CreateEvent(ctx context.Context, event *OrderEvent) error
	GetEvents(ctx context.Context, orderID string) ([]OrderEvent, error)
}
