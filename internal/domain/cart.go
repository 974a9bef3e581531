package domain

import (
	"context"
	"time"
)

// ItemKind tags a cart or order line as referencing a product+size or a
// bundle. The kind is decided once, at line creation, and carried
// explicitly everywhere after that.
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindBundle  ItemKind = "bundle"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindProduct || k == ItemKindBundle
}

// CartLine is one entry in a user's cart. Product lines carry a size and
// the size-adjusted unit price captured at add time; bundle lines carry
// only the bundle reference.
type CartLine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      ItemKind  `json:"kind"`
	ProductID string    `json:"productId,omitempty"`
	Size      string    `json:"size,omitempty"`
	BundleID  string    `json:"bundleId,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RefID returns the catalog id the line points at.
func (l *CartLine) RefID() string {
	if l.Kind == ItemKindBundle {
		return l.BundleID
	}
	return l.ProductID
}

// PricedLine is a cart line re-priced against authoritative catalog state
// during validation.
type PricedLine struct {
	Line      CartLine `json:"line"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	UnitPrice float64  `json:"unitPrice"`
	LineTotal float64  `json:"lineTotal"`
}

// CartReview is the result of validating a batch of cart lines. OK is
// false when any line is invalid; the caller must not check out a
// partially valid batch. Valid lines are still returned for display.
type CartReview struct {
	OK       bool          `json:"ok"`
	Valid    []PricedLine  `json:"validLines"`
	Invalid  []InvalidLine `json:"invalidLines"`
	Subtotal float64       `json:"subtotal"`
}

type CartRepository interface {
	GetLines(ctx context.Context, userID string) ([]CartLine, error)
	GetLinesByIDs(ctx context.Context, userID string, lineIDs []string) ([]CartLine, error)
	// FindLine locates an existing line for the same product+size or
	// bundle, for duplicate detection. Returns nil when absent.
	FindLine(ctx context.Context, userID string, kind ItemKind, refID, size string) (*CartLine, error)
	CreateLine(ctx context.Context, line *CartLine) error
	UpdateQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, userID, lineID string) error
	// DeleteLines removes exactly the given lines; lines not listed
	// (saved for later) survive checkout.
	DeleteLines(ctx context.Context, userID string, lineIDs []string) error
}
