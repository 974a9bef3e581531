package domain

import (
	"context"
	"time"
)

// --- Interfaces ---

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// --- Catalog Entities ---

// Product carries per-size stock counters. The core only reads catalog
// display fields and reads/writes the stock counters.
type Product struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	BasePrice float64       `json:"basePrice"`
	Publish   bool          `json:"publish"`
	Image     string        `json:"image"`
	Sizes     []ProductSize `json:"sizes"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type ProductSize struct {
	Size        string  `json:"size"`
	Stock       int     `json:"stock"`
	PriceAdjust float64 `json:"priceAdjust"` // added to BasePrice for this size
}

// SizeStock returns the stock for one size and whether the size exists.
func (p *Product) SizeStock(size string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// TotalStock sums remaining stock across all sizes.
func (p *Product) TotalStock() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}

// SizePrice returns the size-adjusted unit price and whether the size exists.
func (p *Product) SizePrice(size string) (float64, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return p.BasePrice + s.PriceAdjust, true
		}
	}
	return 0, false
}

// Bundle is a fixed-price grouping with a single stock counter and an
// optional sale time window.
type Bundle struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Stock     int        `json:"stock"`
	IsActive  bool       `json:"isActive"`
	Image     string     `json:"image"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// InWindow reports whether the bundle is purchasable at t. A bundle with
// no window set is always in window.
func (b *Bundle) InWindow(t time.Time) bool {
	if b.StartDate != nil && t.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && t.After(*b.EndDate) {
		return false
	}
	return true
}

// CatalogRepository is the catalog collaborator surface the core needs:
// authoritative reads plus conditional stock writes. The conditional
// mutators must return ErrInsufficientStock when the write would drive a
// counter negative, and must respect a transaction carried in ctx.
type CatalogRepository interface {
	GetProductByID(ctx context.Context, id string) (*Product, error)
	GetBundleByID(ctx context.Context, id string) (*Bundle, error)

	// DecrementSizeStock atomically runs
	//   stock = stock - qty WHERE product/size matches AND stock >= qty.
	DecrementSizeStock(ctx context.Context, productID, size string, qty int) error
	IncrementSizeStock(ctx context.Context, productID, size string, qty int) error
	DecrementBundleStock(ctx context.Context, bundleID string, qty int) error
	IncrementBundleStock(ctx context.Context, bundleID string, qty int) error
}
