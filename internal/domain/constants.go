package domain

// OrderStatus is the single lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "ORDER_PLACED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// orderTransitions is the closed transition table for order statuses.
// DELIVERED and CANCELLED are terminal. CANCELLED is reachable from every
// non-terminal state, which also guards stock restoration against
// double-cancellation.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusProcessing, OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// CanTransition reports whether s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// PaymentStatus tracks money state independently from delivery state.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment Methods
const (
	PaymentMethodCOD  = "cod"
	PaymentMethodCard = "card"
)

// ReturnStatus is the status of a return request. It runs independently
// from the status of the order it references.
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "REQUESTED"
	ReturnStatusApproved        ReturnStatus = "APPROVED"
	ReturnStatusRejected        ReturnStatus = "REJECTED"
	ReturnStatusPickupScheduled ReturnStatus = "PICKUP_SCHEDULED"
	ReturnStatusPickedUp        ReturnStatus = "PICKED_UP"
	ReturnStatusInspected       ReturnStatus = "INSPECTED"
	ReturnStatusRefundProcessed ReturnStatus = "REFUND_PROCESSED"
	ReturnStatusCompleted       ReturnStatus = "COMPLETED"
	ReturnStatusCancelled       ReturnStatus = "CANCELLED"
)

// returnTransitions is the closed transition table for return requests.
// REJECTED -> REQUESTED is a resubmission, tracked on the request rather
// than as a new entity. CANCELLED is a manual withdrawal, legal from any
// state before the refund is processed.
var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested:       {ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCancelled},
	ReturnStatusApproved:        {ReturnStatusPickupScheduled, ReturnStatusCancelled},
	ReturnStatusRejected:        {ReturnStatusRequested, ReturnStatusCancelled},
	ReturnStatusPickupScheduled: {ReturnStatusPickedUp, ReturnStatusCancelled},
	ReturnStatusPickedUp:        {ReturnStatusInspected, ReturnStatusCancelled},
	ReturnStatusInspected:       {ReturnStatusRefundProcessed},
	ReturnStatusRefundProcessed: {ReturnStatusCompleted},
	ReturnStatusCompleted:       {},
	ReturnStatusCancelled:       {},
}

func (s ReturnStatus) CanTransition(next ReturnStatus) bool {
	for _, t := range returnTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s ReturnStatus) Terminal() bool {
	return len(returnTransitions[s]) == 0
}

func (s ReturnStatus) Valid() bool {
	_, ok := returnTransitions[s]
	return ok
}

// RefundStatus is the sub-status of the refund nested inside a return
// request. FAILED refunds may be retried.
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusCompleted  RefundStatus = "COMPLETED"
	RefundStatusFailed     RefundStatus = "FAILED"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:    {RefundStatusProcessing, RefundStatusFailed},
	RefundStatusProcessing: {RefundStatusCompleted, RefundStatusFailed},
	RefundStatusCompleted:  {},
	RefundStatusFailed:     {RefundStatusProcessing},
}

func (s RefundStatus) CanTransition(next RefundStatus) bool {
	for _, t := range refundTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s RefundStatus) Valid() bool {
	_, ok := refundTransitions[s]
	return ok
}

// ReturnReason is the closed set of reasons a user may give for returning
// an item. Every selected item must carry exactly one.
type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "DEFECTIVE"
	ReturnReasonWrongItem      ReturnReason = "WRONG_ITEM"
	ReturnReasonWrongSize      ReturnReason = "WRONG_SIZE"
	ReturnReasonNotAsDescribed ReturnReason = "NOT_AS_DESCRIBED"
	ReturnReasonChangedMind    ReturnReason = "CHANGED_MIND"
	ReturnReasonOther          ReturnReason = "OTHER"
)

var ReturnReasons = []ReturnReason{
	ReturnReasonDefective,
	ReturnReasonWrongItem,
	ReturnReasonWrongSize,
	ReturnReasonNotAsDescribed,
	ReturnReasonChangedMind,
	ReturnReasonOther,
}

func (r ReturnReason) Valid() bool {
	for _, v := range ReturnReasons {
		if v == r {
			return true
		}
	}
	return false
}

// ReturnEvent names the admin-driven logistics actions between approval
// and inspection.
type ReturnEvent string

const (
	ReturnEventSchedulePickup ReturnEvent = "schedule_pickup"
	ReturnEventConfirmPickup  ReturnEvent = "confirm_pickup"
	ReturnEventConfirmReceipt ReturnEvent = "confirm_receipt"
)

// LogisticsTarget maps a logistics event to the status it advances to.
var LogisticsTarget = map[ReturnEvent]ReturnStatus{
	ReturnEventSchedulePickup: ReturnStatusPickupScheduled,
	ReturnEventConfirmPickup:  ReturnStatusPickedUp,
	ReturnEventConfirmReceipt: ReturnStatusInspected,
}

// List exports for the enums API.
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusProcessing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var ReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusPickupScheduled,
	ReturnStatusPickedUp,
	ReturnStatusInspected,
	ReturnStatusRefundProcessed,
	ReturnStatusCompleted,
	ReturnStatusCancelled,
}

var RefundStatuses = []RefundStatus{
	RefundStatusPending,
	RefundStatusProcessing,
	RefundStatusCompleted,
	RefundStatusFailed,
}

var PaymentMethods = []string{
	PaymentMethodCOD,
	PaymentMethodCard,
}
