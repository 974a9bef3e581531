package usecase

import (
	"context"
	"fmt"
	"time"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type CartUsecase struct {
	cartRepo    domain.CartRepository
	catalogRepo domain.CatalogRepository
}

func NewCartUsecase(cartRepo domain.CartRepository, catalogRepo domain.CatalogRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
	}
}

func (u *CartUsecase) GetCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	return u.cartRepo.GetLines(ctx, userID)
}

// AddToCart creates a new cart line. The item kind is decided here, once,
// and carried on the line from then on. The stock check at add time is
// advisory; checkout re-validates authoritatively.
func (u *CartUsecase) AddToCart(ctx context.Context, userID string, kind domain.ItemKind, refID, size string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Msg: "quantity must be at least 1"}
	}
	if !kind.Valid() {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown item kind %q", kind)}
	}

	existing, err := u.cartRepo.FindLine(ctx, userID, kind, refID, size)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ValidationError{Msg: "item already in cart", Fields: []string{existing.ID}}
	}

	line := &domain.CartLine{
		ID:       utils.GenerateUUID(),
		UserID:   userID,
		Kind:     kind,
		Quantity: quantity,
	}

	switch kind {
	case domain.ItemKindProduct:
		product, err := u.catalogRepo.GetProductByID(ctx, refID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &domain.NotFoundError{Entity: "product", ID: refID}
		}
		if !product.Publish {
			return nil, &domain.ValidationError{Msg: "product is not published", Fields: []string{refID}}
		}
		price, ok := product.SizePrice(size)
		if !ok {
			return nil, &domain.ValidationError{Msg: fmt.Sprintf("size %q not offered", size), Fields: []string{refID}}
		}
		stock, _ := product.SizeStock(size)
		if stock < quantity {
			return nil, fmt.Errorf("%w: size %s has %d left", domain.ErrInsufficientStock, size, stock)
		}
		line.ProductID = refID
		line.Size = size
		line.UnitPrice = price

	case domain.ItemKindBundle:
		bundle, err := u.catalogRepo.GetBundleByID(ctx, refID)
		if err != nil {
			return nil, err
		}
		if bundle == nil {
			return nil, &domain.NotFoundError{Entity: "bundle", ID: refID}
		}
		if !bundle.IsActive {
			return nil, &domain.ValidationError{Msg: "bundle is not active", Fields: []string{refID}}
		}
		if !bundle.InWindow(time.Now()) {
			return nil, &domain.ValidationError{Msg: "bundle is not currently on sale", Fields: []string{refID}}
		}
		if bundle.Stock < quantity {
			return nil, fmt.Errorf("%w: bundle has %d left", domain.ErrInsufficientStock, bundle.Stock)
		}
		line.BundleID = refID
		line.UnitPrice = bundle.Price
	}

	if err := u.cartRepo.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLineQuantity mutates a cart line's quantity, revalidating against
// current stock.
func (u *CartUsecase) UpdateLineQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Msg: "quantity must be at least 1"}
	}

	lines, err := u.cartRepo.GetLinesByIDs(ctx, userID, []string{lineID})
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &domain.NotFoundError{Entity: "cart line", ID: lineID}
	}
	line := lines[0]
	line.Quantity = quantity

	review, err := reviewLines(ctx, u.catalogRepo, []domain.CartLine{line}, time.Now())
	if err != nil {
		return nil, err
	}
	if !review.OK {
		return nil, &domain.AvailabilityError{Lines: review.Invalid}
	}

	if err := u.cartRepo.UpdateQuantity(ctx, lineID, quantity); err != nil {
		return nil, err
	}
	return &line, nil
}

func (u *CartUsecase) RemoveLine(ctx context.Context, userID, lineID string) error {
	return u.cartRepo.DeleteLine(ctx, userID, lineID)
}

// ValidateCart re-fetches authoritative catalog state for the given cart
// lines (all of the user's lines when lineIDs is empty) and reviews the
// batch as a whole. The review fails if any single line is invalid.
func (u *CartUsecase) ValidateCart(ctx context.Context, userID string, lineIDs []string) (*domain.CartReview, error) {
	var lines []domain.CartLine
	var err error
	if len(lineIDs) == 0 {
		lines, err = u.cartRepo.GetLines(ctx, userID)
	} else {
		lines, err = u.cartRepo.GetLinesByIDs(ctx, userID, lineIDs)
		if err == nil && len(lines) != len(lineIDs) {
			found := make(map[string]bool, len(lines))
			for _, l := range lines {
				found[l.ID] = true
			}
			var missing []string
			for _, id := range lineIDs {
				if !found[id] {
					missing = append(missing, id)
				}
			}
			return nil, &domain.ValidationError{Msg: "unknown cart lines", Fields: missing}
		}
	}
	if err != nil {
		return nil, err
	}

	review, err := reviewLines(ctx, u.catalogRepo, lines, time.Now())
	if err != nil {
		return nil, err
	}
	if !review.OK {
		logger.WithContext(ctx).Warn().
			Str("user_id", userID).
			Int("invalid_lines", len(review.Invalid)).
			Msg("cart validation failed")
	}
	return review, nil
}

// reviewLines is the single validation pass shared by cart validation and
// order placement. It accumulates per-line results instead of bailing out
// on the first failure, so callers can report every offending line.
//
// Checks per line: referenced record exists; products must be published
// with per-size stock >= quantity; bundles must be active, inside their
// sale window, with stock >= quantity. Product lines are additionally
// checked in aggregate: the summed quantity across all of a product's
// sizes in the batch must not exceed the product's summed remaining stock.
func reviewLines(ctx context.Context, catalog domain.CatalogRepository, lines []domain.CartLine, now time.Time) (*domain.CartReview, error) {
	review := &domain.CartReview{OK: true}

	products := make(map[string]*domain.Product)
	bundles := make(map[string]*domain.Bundle)
	productRequested := make(map[string]int)

	for _, line := range lines {
		switch line.Kind {
		case domain.ItemKindProduct:
			if _, seen := products[line.ProductID]; !seen {
				p, err := catalog.GetProductByID(ctx, line.ProductID)
				if err != nil {
					return nil, err
				}
				products[line.ProductID] = p
			}
			productRequested[line.ProductID] += line.Quantity
		case domain.ItemKindBundle:
			if _, seen := bundles[line.BundleID]; !seen {
				b, err := catalog.GetBundleByID(ctx, line.BundleID)
				if err != nil {
					return nil, err
				}
				bundles[line.BundleID] = b
			}
		}
	}

	for _, line := range lines {
		invalid := checkLine(line, products, bundles, productRequested, now)
		if invalid != nil {
			review.OK = false
			review.Invalid = append(review.Invalid, *invalid)
			continue
		}

		priced := priceLine(line, products, bundles)
		review.Valid = append(review.Valid, priced)
		review.Subtotal += priced.LineTotal
	}

	return review, nil
}

func checkLine(line domain.CartLine, products map[string]*domain.Product, bundles map[string]*domain.Bundle, productRequested map[string]int, now time.Time) *domain.InvalidLine {
	switch line.Kind {
	case domain.ItemKindBundle:
		bundle := bundles[line.BundleID]
		if bundle == nil {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonNotFound}
		}
		if !bundle.IsActive {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonBundleInactive}
		}
		if !bundle.InWindow(now) {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonBundleExpired}
		}
		if bundle.Stock < line.Quantity {
			return &domain.InvalidLine{
				LineID:    line.ID,
				Reason:    domain.LineReasonInsufficientStock,
				Requested: line.Quantity,
				Available: bundle.Stock,
			}
		}

	default:
		product := products[line.ProductID]
		if product == nil {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonNotFound}
		}
		if !product.Publish {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonUnpublished}
		}
		stock, ok := product.SizeStock(line.Size)
		if !ok {
			return &domain.InvalidLine{LineID: line.ID, Reason: domain.LineReasonNotFound}
		}
		if stock < line.Quantity {
			return &domain.InvalidLine{
				LineID:    line.ID,
				Reason:    domain.LineReasonInsufficientStock,
				Requested: line.Quantity,
				Available: stock,
			}
		}
		if requested := productRequested[line.ProductID]; requested > product.TotalStock() {
			return &domain.InvalidLine{
				LineID:    line.ID,
				Reason:    domain.LineReasonProductStockTotals,
				Requested: requested,
				Available: product.TotalStock(),
			}
		}
	}
	return nil
}

func priceLine(line domain.CartLine, products map[string]*domain.Product, bundles map[string]*domain.Bundle) domain.PricedLine {
	priced := domain.PricedLine{Line: line}
	switch line.Kind {
	case domain.ItemKindBundle:
		bundle := bundles[line.BundleID]
		priced.Name = bundle.Name
		priced.Image = bundle.Image
		priced.UnitPrice = bundle.Price
	default:
		product := products[line.ProductID]
		priced.Name = product.Name
		priced.Image = product.Image
		priced.UnitPrice, _ = product.SizePrice(line.Size)
	}
	priced.LineTotal = priced.UnitPrice * float64(line.Quantity)
	return priced
}
