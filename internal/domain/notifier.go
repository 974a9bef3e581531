package domain

import "context"

// Notification event types published after commits.
const (
	EventOrderConfirmed      = "order.confirmed"
	EventOrderStatusChanged  = "order.status_changed"
	EventReturnStatusChanged = "return.status_changed"
	EventRefundCompleted     = "refund.completed"
)

// StockRestoration itemizes one counter restored during cancellation, for
// inclusion in the cancellation notification.
type StockRestoration struct {
	Kind     ItemKind `json:"kind"`
	RefID    string   `json:"refId"`
	Size     string   `json:"size,omitempty"`
	Quantity int      `json:"quantity"`
}

// Notifier publishes fire-and-forget notifications. Implementations must
// never fail the primary operation: errors are logged and swallowed by
// the caller.
type Notifier interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}
