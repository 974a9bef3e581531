package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type OrderUsecase struct {
	orderRepo   domain.OrderRepository
	cartRepo    domain.CartRepository
	catalogRepo domain.CatalogRepository
	txManager   domain.TransactionManager
	notifier    domain.Notifier

	deliveryEstimateDays int
}

func NewOrderUsecase(orderRepo domain.OrderRepository, cartRepo domain.CartRepository, catalogRepo domain.CatalogRepository, txManager domain.TransactionManager, notifier domain.Notifier, deliveryEstimateDays int) *OrderUsecase {
	return &OrderUsecase{
		orderRepo:            orderRepo,
		cartRepo:             cartRepo,
		catalogRepo:          catalogRepo,
		txManager:            txManager,
		notifier:             notifier,
		deliveryEstimateDays: deliveryEstimateDays,
	}
}

// CheckoutLine is one client-declared checkout line. The cached display
// fields are fallback values only; availability and pricing always come
// from the catalog inside the placement transaction.
type CheckoutLine struct {
	LineID      string          `json:"lineId"`
	Kind        domain.ItemKind `json:"kind"`
	ProductID   string          `json:"productId,omitempty"`
	Size        string          `json:"size,omitempty"`
	BundleID    string          `json:"bundleId,omitempty"`
	Quantity    int             `json:"quantity"`
	CachedName  string          `json:"cachedName,omitempty"`
	CachedImage string          `json:"cachedImage,omitempty"`
	CachedPrice float64         `json:"cachedPrice,omitempty"`
}

type PlaceOrderReq struct {
	Lines         []CheckoutLine `json:"lines"`
	AddressID     string         `json:"addressId"`
	PaymentMethod string         `json:"paymentMethod"`
	DeclaredTotal float64        `json:"declaredTotal"`
}

// PlaceOrder commits stock decrement, order creation and cart purge as a
// single transaction. Validation failures on any line abort the whole
// transaction: no partial order, no stock touched.
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID string, req PlaceOrderReq) (*domain.Order, error) {
	if len(req.Lines) == 0 {
		return nil, &domain.ValidationError{Msg: "no lines to order"}
	}
	if req.AddressID == "" {
		return nil, &domain.ValidationError{Msg: "address is required"}
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 {
			return nil, &domain.ValidationError{Msg: "quantity must be at least 1", Fields: []string{l.LineID}}
		}
		if !l.Kind.Valid() {
			return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown item kind %q", l.Kind), Fields: []string{l.LineID}}
		}
	}

	now := time.Now()
	var order *domain.Order

	err := u.txManager.Do(ctx, func(txCtx context.Context) error {
		// Re-validate against catalog state visible to this transaction.
		// The earlier validation call is advisory only.
		lines := make([]domain.CartLine, len(req.Lines))
		for i, l := range req.Lines {
			lines[i] = domain.CartLine{
				ID:        l.LineID,
				UserID:    userID,
				Kind:      l.Kind,
				ProductID: l.ProductID,
				Size:      l.Size,
				BundleID:  l.BundleID,
				Quantity:  l.Quantity,
			}
		}

		review, err := reviewLines(txCtx, u.catalogRepo, lines, now)
		if err != nil {
			return err
		}
		if !review.OK {
			return &domain.AvailabilityError{Lines: review.Invalid}
		}

		// Conditional decrements. A concurrent checkout that slipped in
		// between the review and this write surfaces here and aborts.
		for _, priced := range review.Valid {
			line := priced.Line
			switch line.Kind {
			case domain.ItemKindBundle:
				err = u.catalogRepo.DecrementBundleStock(txCtx, line.BundleID, line.Quantity)
			default:
				err = u.catalogRepo.DecrementSizeStock(txCtx, line.ProductID, line.Size, line.Quantity)
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				return &domain.AvailabilityError{Lines: []domain.InvalidLine{{
					LineID:    line.ID,
					Reason:    domain.LineReasonInsufficientStock,
					Requested: line.Quantity,
				}}}
			}
			if err != nil {
				return err
			}
		}

		estimated := now.AddDate(0, 0, u.deliveryEstimateDays)
		order = &domain.Order{
			ID:                  utils.GenerateUUID(),
			Code:                utils.GenerateOrderCode(now),
			UserID:              userID,
			Status:              domain.OrderStatusPlaced,
			PaymentStatus:       domain.PaymentStatusPending,
			PaymentMethod:       req.PaymentMethod,
			AddressID:           req.AddressID,
			PlacedAt:            now,
			EstimatedDeliveryAt: &estimated,
		}

		cachedByLine := make(map[string]CheckoutLine, len(req.Lines))
		for _, l := range req.Lines {
			cachedByLine[l.LineID] = l
		}

		for _, priced := range review.Valid {
			item := domain.OrderItem{
				ID:        utils.GenerateUUID(),
				OrderID:   order.ID,
				Kind:      priced.Line.Kind,
				ProductID: priced.Line.ProductID,
				Size:      priced.Line.Size,
				BundleID:  priced.Line.BundleID,
				Name:      priced.Name,
				Image:     priced.Image,
				Quantity:  priced.Line.Quantity,
				UnitPrice: priced.UnitPrice,
				LineTotal: priced.LineTotal,
			}
			// Snapshot display details at commit time; client cache only
			// fills gaps left by the catalog record.
			if cached, ok := cachedByLine[priced.Line.ID]; ok {
				if item.Name == "" {
					item.Name = cached.CachedName
				}
				if item.Image == "" {
					item.Image = cached.CachedImage
				}
			}
			order.Items = append(order.Items, item)
			order.TotalAmount += item.LineTotal
		}
		order.TotalAmount = round2(order.TotalAmount)

		if req.DeclaredTotal != 0 && math.Abs(req.DeclaredTotal-order.TotalAmount) > 0.01 {
			logger.WithContext(txCtx).Warn().
				Str("order_code", order.Code).
				Float64("declared", req.DeclaredTotal).
				Float64("computed", order.TotalAmount).
				Msg("client-declared total differs from server total")
		}

		if err := u.orderRepo.Create(txCtx, order); err != nil {
			return err
		}

		// Purge exactly the ordered lines; saved-for-later lines survive.
		lineIDs := make([]string, 0, len(req.Lines))
		for _, l := range req.Lines {
			if l.LineID != "" {
				lineIDs = append(lineIDs, l.LineID)
			}
		}
		if len(lineIDs) > 0 {
			if err := u.cartRepo.DeleteLines(txCtx, userID, lineIDs); err != nil {
				return err
			}
		}

		status := string(order.Status)
		return u.orderRepo.CreateEvent(txCtx, &domain.OrderEvent{
			OrderID:   order.ID,
			NewStatus: status,
			ActorID:   &userID,
		})
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, domain.EventOrderConfirmed, map[string]interface{}{
		"orderId":   order.ID,
		"orderCode": order.Code,
		"userId":    order.UserID,
		"total":     order.TotalAmount,
	})

	return order, nil
}

func (u *OrderUsecase) GetMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return u.orderRepo.GetByUserID(ctx, userID)
}

func (u *OrderUsecase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return order, nil
}

// GetUserOrder fetches an order and enforces ownership.
func (u *OrderUsecase) GetUserOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	order, err := u.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return order, nil
}

func (u *OrderUsecase) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	return u.orderRepo.GetAll(ctx, filter)
}

func (u *OrderUsecase) GetOrderEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	return u.orderRepo.GetEvents(ctx, orderID)
}

// CancelMyOrder is the only user-triggered transition.
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	if _, err := u.GetUserOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return u.TransitionOrderStatus(ctx, orderID, domain.OrderStatusCancelled, userID, "cancelled by customer")
}

// TransitionOrderStatus applies one edge of the order state machine.
// Transitions into CANCELLED restore stock in the same transaction as the
// status write; the write is conditional on the status the edge starts
// from, so a racing second cancellation fails it and restoration happens
// exactly once. Transitions into DELIVERED stamp the actual delivery
// time and settle cash-on-delivery payment.
func (u *OrderUsecase) TransitionOrderStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, actorID, note string) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown order status %q", newStatus)}
	}

	order, err := u.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransition(newStatus) {
		return nil, domain.NewStateError("order", order.Status, newStatus)
	}

	now := time.Now()
	var restored []domain.StockRestoration

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		// Claim the edge first. The conditional write loses against a
		// concurrent transition from the same status, so the side
		// effects below, stock restoration above all, run at most once.
		if err := u.orderRepo.UpdateStatus(txCtx, orderID, order.Status, newStatus); err != nil {
			return err
		}

		if newStatus == domain.OrderStatusCancelled {
			for _, item := range order.Items {
				var err error
				switch item.Kind {
				case domain.ItemKindBundle:
					err = u.catalogRepo.IncrementBundleStock(txCtx, item.BundleID, item.Quantity)
				default:
					err = u.catalogRepo.IncrementSizeStock(txCtx, item.ProductID, item.Size, item.Quantity)
				}
				if err != nil {
					return fmt.Errorf("restore stock for item %s: %w", item.ID, err)
				}
				restored = append(restored, domain.StockRestoration{
					Kind:     item.Kind,
					RefID:    item.RefID(),
					Size:     item.Size,
					Quantity: item.Quantity,
				})
			}
		}

		if newStatus == domain.OrderStatusDelivered {
			if err := u.orderRepo.SetDeliveredAt(txCtx, orderID, now); err != nil {
				return err
			}
			if order.PaymentMethod == domain.PaymentMethodCOD && order.PaymentStatus != domain.PaymentStatusPaid {
				if err := u.orderRepo.UpdatePaymentStatus(txCtx, orderID, domain.PaymentStatusPaid); err != nil {
					return err
				}
			}
		}

		prev := string(order.Status)
		event := &domain.OrderEvent{
			OrderID:        orderID,
			PreviousStatus: &prev,
			NewStatus:      string(newStatus),
		}
		if note != "" {
			event.Note = &note
		}
		if actorID != "" {
			event.ActorID = &actorID
		}
		return u.orderRepo.CreateEvent(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"orderId":   order.ID,
		"orderCode": order.Code,
		"userId":    order.UserID,
		"from":      order.Status,
		"to":        newStatus,
	}
	if len(restored) > 0 {
		payload["restoredStock"] = restored
	}
	u.publish(ctx, domain.EventOrderStatusChanged, payload)

	order.Status = newStatus
	if newStatus == domain.OrderStatusDelivered {
		order.DeliveredAt = &now
		if order.PaymentMethod == domain.PaymentMethodCOD {
			order.PaymentStatus = domain.PaymentStatusPaid
		}
	}
	return order, nil
}

// BulkTransitionOrderStatus applies the same transition independently per
// order, collecting per-order outcomes. One failing order never rolls
// back the others.
func (u *OrderUsecase) BulkTransitionOrderStatus(ctx context.Context, orderIDs []string, newStatus domain.OrderStatus, actorID, note string) *domain.BulkTransitionResult {
	result := &domain.BulkTransitionResult{Errors: make(map[string]string)}
	for _, id := range orderIDs {
		if _, err := u.TransitionOrderStatus(ctx, id, newStatus, actorID, note); err != nil {
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result
}

// publish sends a best-effort notification. Failures never propagate.
func (u *OrderUsecase) publish(ctx context.Context, eventType string, payload interface{}) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Publish(ctx, eventType, payload); err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("event", eventType).Msg("notification publish failed")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
