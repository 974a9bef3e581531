package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Machine-readable reasons attached to invalid cart/checkout lines.
type LineReason string

const (
	LineReasonNotFound           LineReason = "not_found"
	LineReasonUnpublished        LineReason = "unpublished"
	LineReasonBundleInactive     LineReason = "bundle_inactive"
	LineReasonBundleExpired      LineReason = "bundle_not_in_window"
	LineReasonInsufficientStock  LineReason = "insufficient_stock"
	LineReasonProductStockTotals LineReason = "insufficient_product_stock"
)

// InvalidLine describes one cart/checkout line that failed validation,
// with requested-vs-available detail where it applies.
type InvalidLine struct {
	LineID    string     `json:"lineId"`
	Reason    LineReason `json:"reason"`
	Requested int        `json:"requested,omitempty"`
	Available int        `json:"available,omitempty"`
}

// AvailabilityError rejects an entire batch because one or more lines
// reference unavailable catalog state. No mutation happened.
type AvailabilityError struct {
	Lines []InvalidLine
}

func (e *AvailabilityError) Error() string {
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = fmt.Sprintf("%s: %s", l.LineID, l.Reason)
	}
	return "unavailable lines: " + strings.Join(parts, ", ")
}

// ValidationError rejects malformed input before any mutation. Fields
// names the offending sub-items, e.g. order items missing a return reason.
type ValidationError struct {
	Msg    string   `json:"message"`
	Fields []string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.Fields, ", ")
}

// StateError rejects an illegal state-machine transition.
type StateError struct {
	Entity    string `json:"entity"`
	Current   string `json:"current"`
	Requested string `json:"requested"`
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Entity, e.Current, e.Requested)
}

// NotFoundError marks an absent order/return/product/bundle reference.
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrInsufficientStock is returned by conditional stock decrements when
// the write would drive a counter negative.
var ErrInsufficientStock = errors.New("insufficient stock")

func NewStateError(entity string, current, requested fmt.Stringer) *StateError {
	return &StateError{Entity: entity, Current: current.String(), Requested: requested.String()}
}

func (s OrderStatus) String() string  { return string(s) }
func (s ReturnStatus) String() string { return string(s) }
func (s RefundStatus) String() string { return string(s) }
