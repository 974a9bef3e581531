package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type ReturnUsecase struct {
	returnRepo domain.ReturnRepository
	orderRepo  domain.OrderRepository
	orderUC    *OrderUsecase
	txManager  domain.TransactionManager
	notifier   domain.Notifier

	returnWindowDays     int
	defaultRefundPercent float64
}

func NewReturnUsecase(returnRepo domain.ReturnRepository, orderRepo domain.OrderRepository, orderUC *OrderUsecase, txManager domain.TransactionManager, notifier domain.Notifier, returnWindowDays int, defaultRefundPercent float64) *ReturnUsecase {
	return &ReturnUsecase{
		returnRepo:           returnRepo,
		orderRepo:            orderRepo,
		orderUC:              orderUC,
		txManager:            txManager,
		notifier:             notifier,
		returnWindowDays:     returnWindowDays,
		defaultRefundPercent: defaultRefundPercent,
	}
}

type ReturnItemInput struct {
	OrderItemID string              `json:"orderItemId"`
	Reason      domain.ReturnReason `json:"reason"`
	Comment     string              `json:"comment,omitempty"`
	Quantity    int                 `json:"quantity"`
}

// ListReturnable reports which items of a delivered order are still
// eligible for a return request.
func (u *ReturnUsecase) ListReturnable(ctx context.Context, userID, orderID string) ([]domain.ReturnableItem, error) {
	order, err := u.orderUC.GetUserOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDelivered || order.DeliveredAt == nil {
		return nil, domain.NewStateError("order", order.Status, domain.OrderStatusDelivered)
	}

	blocked, err := u.returnRepo.BlockedItemIDs(ctx, orderID)
	if err != nil {
		return nil, err
	}

	deadline := order.DeliveredAt.AddDate(0, 0, u.returnWindowDays)
	items := make([]domain.ReturnableItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.ReturnableItem{
			Item:         item,
			ReturnByDate: deadline,
			Blocked:      blocked[item.ID],
		})
	}
	return items, nil
}

// SubmitReturnRequest creates a return request for a selection of
// delivered items. Every selected item must carry a valid reason; the
// rejection names every item missing one so the user can correct and
// resubmit the whole selection.
func (u *ReturnUsecase) SubmitReturnRequest(ctx context.Context, userID, orderID string, items []ReturnItemInput) (*domain.ReturnRequest, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Msg: "no items selected"}
	}

	order, err := u.orderUC.GetUserOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDelivered || order.DeliveredAt == nil {
		return nil, domain.NewStateError("order", order.Status, domain.OrderStatusDelivered)
	}

	now := time.Now()
	if now.After(order.DeliveredAt.AddDate(0, 0, u.returnWindowDays)) {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("return window of %d days has elapsed", u.returnWindowDays)}
	}

	// Single pass over the selection accumulating every violation;
	// reason completeness must name each offending item.
	var missingReasons []string
	var badItems []string
	orderItems := make(map[string]domain.OrderItem, len(order.Items))
	for _, it := range order.Items {
		orderItems[it.ID] = it
	}

	blocked, err := u.returnRepo.BlockedItemIDs(ctx, orderID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	for _, in := range items {
		if !in.Reason.Valid() {
			missingReasons = append(missingReasons, in.OrderItemID)
		}
		ordered, ok := orderItems[in.OrderItemID]
		switch {
		case !ok:
			badItems = append(badItems, in.OrderItemID)
		case seen[in.OrderItemID]:
			badItems = append(badItems, in.OrderItemID)
		case blocked[in.OrderItemID]:
			badItems = append(badItems, in.OrderItemID)
		case in.Quantity < 1 || in.Quantity > ordered.Quantity:
			badItems = append(badItems, in.OrderItemID)
		}
		seen[in.OrderItemID] = true
	}
	if len(missingReasons) > 0 {
		return nil, &domain.ValidationError{Msg: "return reason required for every selected item", Fields: missingReasons}
	}
	if len(badItems) > 0 {
		return nil, &domain.ValidationError{Msg: "items not eligible for return", Fields: badItems}
	}

	req := &domain.ReturnRequest{
		ID:          utils.GenerateUUID(),
		OrderID:     orderID,
		UserID:      userID,
		Status:      domain.ReturnStatusRequested,
		Refund:      domain.RefundDetails{Status: domain.RefundStatusPending},
		RequestedAt: now,
	}
	for _, in := range items {
		ordered := orderItems[in.OrderItemID]
		req.Items = append(req.Items, domain.ReturnItem{
			ID:          utils.GenerateUUID(),
			ReturnID:    req.ID,
			OrderItemID: in.OrderItemID,
			Reason:      in.Reason,
			Comment:     in.Comment,
			Quantity:    in.Quantity,
			RefundBase:  round2(ordered.UnitPrice * float64(in.Quantity)),
		})
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.returnRepo.Create(txCtx, req); err != nil {
			return err
		}
		return u.returnRepo.CreateEvent(txCtx, &domain.ReturnEventRecord{
			ReturnID:  req.ID,
			NewStatus: string(domain.ReturnStatusRequested),
			ActorID:   &userID,
		})
	})
	if err != nil {
		return nil, err
	}

	u.publishStatus(ctx, req, "", domain.ReturnStatusRequested)
	return req, nil
}

func (u *ReturnUsecase) GetReturn(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	req, err := u.returnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &domain.NotFoundError{Entity: "return request", ID: id}
	}
	return req, nil
}

func (u *ReturnUsecase) GetMyReturns(ctx context.Context, userID string) ([]domain.ReturnRequest, error) {
	return u.returnRepo.GetByUserID(ctx, userID)
}

func (u *ReturnUsecase) GetAllReturns(ctx context.Context, filter domain.ReturnFilter) ([]domain.ReturnRequest, int64, error) {
	return u.returnRepo.GetAll(ctx, filter)
}

func (u *ReturnUsecase) GetReturnEvents(ctx context.Context, returnID string) ([]domain.ReturnEventRecord, error) {
	return u.returnRepo.GetEvents(ctx, returnID)
}

// DecideReturnRequest resolves a REQUESTED return to APPROVED or REJECTED.
func (u *ReturnUsecase) DecideReturnRequest(ctx context.Context, returnID string, approve bool, comment, actorID string) (*domain.ReturnRequest, error) {
	target := domain.ReturnStatusRejected
	if approve {
		target = domain.ReturnStatusApproved
	}
	return u.transition(ctx, returnID, target, comment, actorID, nil)
}

// ResubmitReturnRequest moves a REJECTED return back to REQUESTED. It is
// tracked as a re-request on the same entity, preserving history.
func (u *ReturnUsecase) ResubmitReturnRequest(ctx context.Context, userID, returnID, comment string) (*domain.ReturnRequest, error) {
	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "return request", ID: returnID}
	}
	return u.transition(ctx, returnID, domain.ReturnStatusRequested, comment, userID, func(txCtx context.Context) error {
		return u.returnRepo.IncrementResubmissions(txCtx, returnID)
	})
}

// CancelReturn is a manual withdrawal by the owning user.
func (u *ReturnUsecase) CancelReturn(ctx context.Context, userID, returnID string) (*domain.ReturnRequest, error) {
	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "return request", ID: returnID}
	}
	return u.transition(ctx, returnID, domain.ReturnStatusCancelled, "withdrawn by customer", userID, nil)
}

// AdvanceReturnLogistics walks the approved path one step:
// APPROVED -> PICKUP_SCHEDULED -> PICKED_UP -> INSPECTED.
func (u *ReturnUsecase) AdvanceReturnLogistics(ctx context.Context, returnID string, event domain.ReturnEvent, actorID string) (*domain.ReturnRequest, error) {
	target, ok := domain.LogisticsTarget[event]
	if !ok {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown logistics event %q", event)}
	}
	return u.transition(ctx, returnID, target, "", actorID, nil)
}

// ProcessRefund computes the refund from an admin- or policy-supplied
// percentage and moves the return to REFUND_PROCESSED. The percentage is
// a policy input decided now, not a constant.
func (u *ReturnUsecase) ProcessRefund(ctx context.Context, returnID string, percent *float64, actorID string) (*domain.ReturnRequest, error) {
	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	pct := u.defaultRefundPercent
	if percent != nil {
		pct = *percent
	}
	if pct <= 0 || pct > 100 {
		return nil, &domain.ValidationError{Msg: "refund percent must be in (0, 100]"}
	}

	if !req.Status.CanTransition(domain.ReturnStatusRefundProcessed) {
		return nil, domain.NewStateError("return", req.Status, domain.ReturnStatusRefundProcessed)
	}
	if !req.Refund.Status.CanTransition(domain.RefundStatusProcessing) {
		return nil, domain.NewStateError("refund", req.Refund.Status, domain.RefundStatusProcessing)
	}

	now := time.Now()
	refund := req.Refund
	refund.Status = domain.RefundStatusProcessing
	refund.Percent = pct
	refund.Amount = round2(req.RefundableTotal() * pct / 100)
	refund.ProcessedAt = &now

	note := fmt.Sprintf("refund of %.2f (%.0f%%) processing", refund.Amount, pct)
	return u.transition(ctx, returnID, domain.ReturnStatusRefundProcessed, note, actorID, func(txCtx context.Context) error {
		return u.returnRepo.UpdateRefund(txCtx, returnID, refund)
	})
}

// CompleteRefund finalizes the refund and the return. Completing an
// already-completed refund fails the state check rather than crediting
// twice. On success the related order is marked cancelled best-effort, as
// a cross-component consistency step outside this transaction.
func (u *ReturnUsecase) CompleteRefund(ctx context.Context, returnID, txnID, method, comment, actorID string) (*domain.ReturnRequest, error) {
	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if !req.Status.CanTransition(domain.ReturnStatusCompleted) {
		return nil, domain.NewStateError("return", req.Status, domain.ReturnStatusCompleted)
	}
	if !req.Refund.Status.CanTransition(domain.RefundStatusCompleted) {
		return nil, domain.NewStateError("refund", req.Refund.Status, domain.RefundStatusCompleted)
	}

	now := time.Now()
	refund := req.Refund
	refund.Status = domain.RefundStatusCompleted
	refund.TransactionID = txnID
	refund.Method = method
	refund.CompletedAt = &now

	updated, err := u.transition(ctx, returnID, domain.ReturnStatusCompleted, comment, actorID, func(txCtx context.Context) error {
		return u.returnRepo.UpdateRefund(txCtx, returnID, refund)
	})
	if err != nil {
		return nil, err
	}

	u.markOrderAfterRefund(ctx, req, actorID)

	u.publish(ctx, domain.EventRefundCompleted, map[string]interface{}{
		"returnId": returnID,
		"orderId":  req.OrderID,
		"userId":   req.UserID,
		"amount":   refund.Amount,
	})
	return updated, nil
}

// UpdateRefundStatus edits the refund sub-status directly, respecting the
// refund state machine. Setting the current status again is a no-op.
func (u *ReturnUsecase) UpdateRefundStatus(ctx context.Context, returnID string, status domain.RefundStatus, txnID, method, actorID string) (*domain.ReturnRequest, error) {
	if !status.Valid() {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown refund status %q", status)}
	}

	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if req.Refund.Status == status {
		return req, nil
	}
	if !req.Refund.Status.CanTransition(status) {
		return nil, domain.NewStateError("refund", req.Refund.Status, status)
	}

	refund := req.Refund
	refund.Status = status
	if txnID != "" {
		refund.TransactionID = txnID
	}
	if method != "" {
		refund.Method = method
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.returnRepo.UpdateRefund(txCtx, returnID, refund); err != nil {
			return err
		}
		prev := string(req.Status)
		note := fmt.Sprintf("refund status %s -> %s", req.Refund.Status, status)
		return u.returnRepo.CreateEvent(txCtx, &domain.ReturnEventRecord{
			ReturnID:       returnID,
			PreviousStatus: &prev,
			NewStatus:      string(req.Status),
			Note:           &note,
			ActorID:        &actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	req.Refund = refund
	return req, nil
}

// transition applies one edge of the return state machine plus an
// optional extra mutation inside the same transaction, and records the
// audit event.
func (u *ReturnUsecase) transition(ctx context.Context, returnID string, target domain.ReturnStatus, note, actorID string, extra func(ctx context.Context) error) (*domain.ReturnRequest, error) {
	req, err := u.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if !req.Status.CanTransition(target) {
		return nil, domain.NewStateError("return", req.Status, target)
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		// Claim the edge first; a racing transition from the same
		// status loses the conditional write, so the mutations below
		// (refund settlement included) never run twice.
		if err := u.returnRepo.UpdateStatus(txCtx, returnID, req.Status, target); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(txCtx); err != nil {
				return err
			}
		}
		if note != "" && (target == domain.ReturnStatusApproved || target == domain.ReturnStatusRejected) {
			if err := u.returnRepo.UpdateAdminComment(txCtx, returnID, note); err != nil {
				return err
			}
		}

		prev := string(req.Status)
		event := &domain.ReturnEventRecord{
			ReturnID:       returnID,
			PreviousStatus: &prev,
			NewStatus:      string(target),
		}
		if note != "" {
			event.Note = &note
		}
		if actorID != "" {
			event.ActorID = &actorID
		}
		return u.returnRepo.CreateEvent(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	u.publishStatus(ctx, req, req.Status, target)

	prev := req.Status
	req.Status = target
	if note != "" && (target == domain.ReturnStatusApproved || target == domain.ReturnStatusRejected) {
		req.AdminComment = &note
	}
	if target == domain.ReturnStatusRequested && prev == domain.ReturnStatusRejected {
		req.Resubmissions++
	}
	return req, nil
}

// markOrderAfterRefund nudges the related order toward CANCELLED once a
// refund completes. It is deliberately outside the return transaction;
// when the order state machine forbids cancellation (delivered orders) an
// audit event is recorded instead. Failures are logged and swallowed.
func (u *ReturnUsecase) markOrderAfterRefund(ctx context.Context, req *domain.ReturnRequest, actorID string) {
	note := fmt.Sprintf("refund completed for return %s", req.ID)
	_, err := u.orderUC.TransitionOrderStatus(ctx, req.OrderID, domain.OrderStatusCancelled, actorID, note)
	if err == nil {
		return
	}

	var stateErr *domain.StateError
	if errors.As(err, &stateErr) {
		event := &domain.OrderEvent{
			OrderID:   req.OrderID,
			NewStatus: stateErr.Current,
			Note:      &note,
			ActorID:   &actorID,
		}
		if evErr := u.orderRepo.CreateEvent(ctx, event); evErr != nil {
			logger.WithContext(ctx).Error().Err(evErr).Str("order_id", req.OrderID).Msg("failed to record refund note on order")
		}
		return
	}
	logger.WithContext(ctx).Error().Err(err).Str("order_id", req.OrderID).Msg("failed to mark order after refund")
}

func (u *ReturnUsecase) publishStatus(ctx context.Context, req *domain.ReturnRequest, from, to domain.ReturnStatus) {
	payload := map[string]interface{}{
		"returnId": req.ID,
		"orderId":  req.OrderID,
		"userId":   req.UserID,
		"to":       to,
	}
	if from != "" {
		payload["from"] = from
	}
	u.publish(ctx, domain.EventReturnStatusChanged, payload)
}

func (u *ReturnUsecase) publish(ctx context.Context, eventType string, payload interface{}) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Publish(ctx, eventType, payload); err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("event", eventType).Msg("notification publish failed")
	}
}
