package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"placed to processing", OrderStatusPlaced, OrderStatusProcessing, true},
		{"placed to out for delivery", OrderStatusPlaced, OrderStatusOutForDelivery, true},
		{"placed to delivered", OrderStatusPlaced, OrderStatusDelivered, true},
		{"placed to cancelled", OrderStatusPlaced, OrderStatusCancelled, true},
		{"processing to out for delivery", OrderStatusProcessing, OrderStatusOutForDelivery, true},
		{"processing to cancelled", OrderStatusProcessing, OrderStatusCancelled, true},
		{"out for delivery to delivered", OrderStatusOutForDelivery, OrderStatusDelivered, true},
		{"out for delivery to cancelled", OrderStatusOutForDelivery, OrderStatusCancelled, true},
		{"delivered to cancelled", OrderStatusDelivered, OrderStatusCancelled, false},
		{"delivered to processing", OrderStatusDelivered, OrderStatusProcessing, false},
		{"cancelled to placed", OrderStatusCancelled, OrderStatusPlaced, false},
		{"cancelled to cancelled", OrderStatusCancelled, OrderStatusCancelled, false},
		{"backwards delivery", OrderStatusOutForDelivery, OrderStatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusDelivered.Terminal() {
		t.Error("DELIVERED should be terminal")
	}
	if !OrderStatusCancelled.Terminal() {
		t.Error("CANCELLED should be terminal")
	}
	if OrderStatusPlaced.Terminal() {
		t.Error("ORDER_PLACED should not be terminal")
	}
}

func TestOrderStatusValid(t *testing.T) {
	if !OrderStatusProcessing.Valid() {
		t.Error("PROCESSING should be valid")
	}
	if OrderStatus("SHIPPED").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestReturnStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from ReturnStatus
		to   ReturnStatus
		want bool
	}{
		{"requested to approved", ReturnStatusRequested, ReturnStatusApproved, true},
		{"requested to rejected", ReturnStatusRequested, ReturnStatusRejected, true},
		{"requested to cancelled", ReturnStatusRequested, ReturnStatusCancelled, true},
		{"rejected to requested resubmission", ReturnStatusRejected, ReturnStatusRequested, true},
		{"approved to pickup scheduled", ReturnStatusApproved, ReturnStatusPickupScheduled, true},
		{"pickup scheduled to picked up", ReturnStatusPickupScheduled, ReturnStatusPickedUp, true},
		{"picked up to inspected", ReturnStatusPickedUp, ReturnStatusInspected, true},
		{"inspected to refund processed", ReturnStatusInspected, ReturnStatusRefundProcessed, true},
		{"refund processed to completed", ReturnStatusRefundProcessed, ReturnStatusCompleted, true},
		{"picked up to completed skips inspection", ReturnStatusPickedUp, ReturnStatusCompleted, false},
		{"approved to inspected skips pickup", ReturnStatusApproved, ReturnStatusInspected, false},
		{"requested to refund processed", ReturnStatusRequested, ReturnStatusRefundProcessed, false},
		{"completed anywhere", ReturnStatusCompleted, ReturnStatusRequested, false},
		{"cancelled anywhere", ReturnStatusCancelled, ReturnStatusRequested, false},
		{"inspected cannot be withdrawn", ReturnStatusInspected, ReturnStatusCancelled, false},
		{"picked up can be withdrawn", ReturnStatusPickedUp, ReturnStatusCancelled, true},
		{"approved to requested", ReturnStatusApproved, ReturnStatusRequested, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRefundStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from RefundStatus
		to   RefundStatus
		want bool
	}{
		{"pending to processing", RefundStatusPending, RefundStatusProcessing, true},
		{"pending to failed", RefundStatusPending, RefundStatusFailed, true},
		{"processing to completed", RefundStatusProcessing, RefundStatusCompleted, true},
		{"processing to failed", RefundStatusProcessing, RefundStatusFailed, true},
		{"failed retry", RefundStatusFailed, RefundStatusProcessing, true},
		{"pending straight to completed", RefundStatusPending, RefundStatusCompleted, false},
		{"completed to processing", RefundStatusCompleted, RefundStatusProcessing, false},
		{"completed to failed", RefundStatusCompleted, RefundStatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestReturnReasonValid(t *testing.T) {
	for _, r := range ReturnReasons {
		if !r.Valid() {
			t.Errorf("reason %s should be valid", r)
		}
	}
	if ReturnReason("BORED").Valid() {
		t.Error("unknown reason should not be valid")
	}
	if ReturnReason("").Valid() {
		t.Error("empty reason should not be valid")
	}
}

func TestLogisticsTargets(t *testing.T) {
	if LogisticsTarget[ReturnEventSchedulePickup] != ReturnStatusPickupScheduled {
		t.Error("schedule_pickup should target PICKUP_SCHEDULED")
	}
	if LogisticsTarget[ReturnEventConfirmPickup] != ReturnStatusPickedUp {
		t.Error("confirm_pickup should target PICKED_UP")
	}
	if LogisticsTarget[ReturnEventConfirmReceipt] != ReturnStatusInspected {
		t.Error("confirm_receipt should target INSPECTED")
	}
}
