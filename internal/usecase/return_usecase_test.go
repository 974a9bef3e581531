package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"threadora-backend/internal/domain"
)

type returnFixture struct {
	returnUC *ReturnUsecase
	orderUC  *OrderUsecase
	returns  *fakeReturnRepo
	orders   *fakeOrderRepo
	catalog  *fakeCatalog
	notifier *recordingNotifier
}

func newReturnFixture() *returnFixture {
	catalog := newFakeCatalog()
	cartRepo := newFakeCartRepo()
	orders := newFakeOrderRepo()
	returns := newFakeReturnRepo()
	notifier := &recordingNotifier{}
	orderUC := NewOrderUsecase(orders, cartRepo, catalog, fakeTxManager{}, notifier, 5)
	returnUC := NewReturnUsecase(returns, orders, orderUC, fakeTxManager{}, notifier, 7, 100)
	return &returnFixture{
		returnUC: returnUC,
		orderUC:  orderUC,
		returns:  returns,
		orders:   orders,
		catalog:  catalog,
		notifier: notifier,
	}
}

// seedDeliveredOrder stores an order for u1 with items i1 (2 x 100) and
// i2 (1 x 50), delivered at the given time.
func (f *returnFixture) seedDeliveredOrder(t *testing.T, deliveredAt time.Time) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:            "o1",
		Code:          "TRD-20250810-ABCDEF",
		UserID:        "u1",
		Status:        domain.OrderStatusDelivered,
		PaymentStatus: domain.PaymentStatusPaid,
		PaymentMethod: domain.PaymentMethodCard,
		TotalAmount:   250,
		AddressID:     "addr-1",
		PlacedAt:      deliveredAt.AddDate(0, 0, -3),
		DeliveredAt:   &deliveredAt,
		Items: []domain.OrderItem{
			{ID: "i1", OrderID: "o1", Kind: domain.ItemKindProduct, ProductID: "p1", Size: "M", Name: "Tee", Quantity: 2, UnitPrice: 100, LineTotal: 200},
			{ID: "i2", OrderID: "o1", Kind: domain.ItemKindBundle, BundleID: "b1", Name: "Box", Quantity: 1, UnitPrice: 50, LineTotal: 50},
		},
	}
	if err := f.orders.Create(context.Background(), order); err != nil {
		t.Fatal(err)
	}
	return order
}

func TestSubmitReturnReasonCompleteness(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	_, err := f.returnUC.SubmitReturnRequest(context.Background(), "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
		{OrderItemID: "i2", Quantity: 1},
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(valErr.Fields) != 1 || valErr.Fields[0] != "i2" {
		t.Errorf("fields = %v, want exactly the item missing a reason [i2]", valErr.Fields)
	}

	// Nothing was created; the user corrects and resubmits the selection.
	if reqs, _ := f.returnUC.GetMyReturns(context.Background(), "u1"); len(reqs) != 0 {
		t.Errorf("returns created = %d, want 0", len(reqs))
	}
}

func TestSubmitReturnHappyPath(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	req, err := f.returnUC.SubmitReturnRequest(context.Background(), "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonWrongSize, Comment: "too small", Quantity: 2},
		{OrderItemID: "i2", Reason: domain.ReturnReasonChangedMind, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("SubmitReturnRequest: %v", err)
	}
	if req.Status != domain.ReturnStatusRequested {
		t.Errorf("status = %s, want REQUESTED", req.Status)
	}
	if req.Refund.Status != domain.RefundStatusPending {
		t.Errorf("refund status = %s, want PENDING", req.Refund.Status)
	}
	if req.RefundableTotal() != 250 {
		t.Errorf("refundable total = %v, want 250", req.RefundableTotal())
	}
	if got := f.notifier.byType(domain.EventReturnStatusChanged); len(got) != 1 {
		t.Errorf("return.status_changed events = %d, want 1", len(got))
	}
	events, _ := f.returnUC.GetReturnEvents(context.Background(), req.ID)
	if len(events) != 1 || events[0].NewStatus != string(domain.ReturnStatusRequested) {
		t.Errorf("audit events = %+v, want single REQUESTED entry", events)
	}
}

func TestSubmitReturnRequiresDelivery(t *testing.T) {
	f := newReturnFixture()
	order := f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))
	order.Status = domain.OrderStatusOutForDelivery
	order.DeliveredAt = nil
	if err := f.orders.Create(context.Background(), order); err != nil {
		t.Fatal(err)
	}

	_, err := f.returnUC.SubmitReturnRequest(context.Background(), "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	var stateErr *domain.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error = %v, want StateError", err)
	}
}

func TestSubmitReturnWindowElapsed(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -10))

	_, err := f.returnUC.SubmitReturnRequest(context.Background(), "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestSubmitReturnIneligibleItems(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	if _, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i2", Reason: domain.ReturnReasonOther, Quantity: 1},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "ghost", Reason: domain.ReturnReasonDefective, Quantity: 1},
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 5},
		{OrderItemID: "i2", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	// ghost: not in the order; i1: quantity above what was ordered;
	// i2: already on an open return.
	if len(valErr.Fields) != 3 {
		t.Errorf("fields = %v, want ghost, i1 and i2", valErr.Fields)
	}
}

func TestRejectAndResubmit(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := f.returnUC.DecideReturnRequest(ctx, req.ID, false, "blurry photos", "admin-1")
	if err != nil {
		t.Fatalf("DecideReturnRequest: %v", err)
	}
	if rejected.Status != domain.ReturnStatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
	if rejected.AdminComment == nil || *rejected.AdminComment != "blurry photos" {
		t.Errorf("admin comment = %v, want rejection note", rejected.AdminComment)
	}

	// Only the owner can resubmit.
	var nfErr *domain.NotFoundError
	if _, err := f.returnUC.ResubmitReturnRequest(ctx, "u2", req.ID, ""); !errors.As(err, &nfErr) {
		t.Errorf("foreign resubmit error = %v, want NotFoundError", err)
	}

	resubmitted, err := f.returnUC.ResubmitReturnRequest(ctx, "u1", req.ID, "added photos")
	if err != nil {
		t.Fatalf("ResubmitReturnRequest: %v", err)
	}
	if resubmitted.Status != domain.ReturnStatusRequested {
		t.Errorf("status = %s, want REQUESTED again", resubmitted.Status)
	}
	if resubmitted.Resubmissions != 1 {
		t.Errorf("resubmissions = %d, want 1", resubmitted.Resubmissions)
	}
}

func TestFullReturnProgressionAndRefund(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 2},
		{OrderItemID: "i2", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.returnUC.DecideReturnRequest(ctx, req.ID, true, "ok", "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Jumping straight to receipt confirmation skips pickup and fails.
	var stateErr *domain.StateError
	if _, err := f.returnUC.AdvanceReturnLogistics(ctx, req.ID, domain.ReturnEventConfirmReceipt, "admin-1"); !errors.As(err, &stateErr) {
		t.Fatalf("skipping pickup error = %v, want StateError", err)
	}

	for _, ev := range []domain.ReturnEvent{domain.ReturnEventSchedulePickup, domain.ReturnEventConfirmPickup, domain.ReturnEventConfirmReceipt} {
		if _, err := f.returnUC.AdvanceReturnLogistics(ctx, req.ID, ev, "admin-1"); err != nil {
			t.Fatalf("logistics %s: %v", ev, err)
		}
	}

	pct := 80.0
	processed, err := f.returnUC.ProcessRefund(ctx, req.ID, &pct, "admin-1")
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	if processed.Status != domain.ReturnStatusRefundProcessed {
		t.Errorf("status = %s, want REFUND_PROCESSED", processed.Status)
	}
	stored, _ := f.returnUC.GetReturn(ctx, req.ID)
	if stored.Refund.Status != domain.RefundStatusProcessing {
		t.Errorf("refund status = %s, want PROCESSING", stored.Refund.Status)
	}
	if stored.Refund.Percent != 80 || stored.Refund.Amount != 200 {
		t.Errorf("refund percent/amount = %v/%v, want 80/200 (80%% of 250)", stored.Refund.Percent, stored.Refund.Amount)
	}

	completed, err := f.returnUC.CompleteRefund(ctx, req.ID, "txn-42", "card", "done", "admin-1")
	if err != nil {
		t.Fatalf("CompleteRefund: %v", err)
	}
	if completed.Status != domain.ReturnStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", completed.Status)
	}
	stored, _ = f.returnUC.GetReturn(ctx, req.ID)
	if stored.Refund.Status != domain.RefundStatusCompleted || stored.Refund.TransactionID != "txn-42" {
		t.Errorf("refund = %+v, want COMPLETED with txn-42", stored.Refund)
	}
	if got := f.notifier.byType(domain.EventRefundCompleted); len(got) != 1 {
		t.Errorf("refund.completed events = %d, want 1", len(got))
	}

	// The delivered order cannot be cancelled, so the refund leaves an
	// audit note on it instead.
	orderEvents, _ := f.orders.GetEvents(ctx, "o1")
	foundNote := false
	for _, e := range orderEvents {
		if e.Note != nil && strings.Contains(*e.Note, "refund completed") {
			foundNote = true
		}
	}
	if !foundNote {
		t.Error("expected a refund note event on the order")
	}

	// Completing twice must not credit twice.
	if _, err := f.returnUC.CompleteRefund(ctx, req.ID, "txn-43", "card", "", "admin-1"); !errors.As(err, &stateErr) {
		t.Fatalf("second complete error = %v, want StateError", err)
	}
	if got := f.notifier.byType(domain.EventRefundCompleted); len(got) != 1 {
		t.Errorf("refund.completed events after retry = %d, want still 1", len(got))
	}
}

func TestProcessRefundGuards(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Refund processing only follows inspection.
	var stateErr *domain.StateError
	if _, err := f.returnUC.ProcessRefund(ctx, req.ID, nil, "admin-1"); !errors.As(err, &stateErr) {
		t.Fatalf("refund from REQUESTED error = %v, want StateError", err)
	}

	if _, err := f.returnUC.DecideReturnRequest(ctx, req.ID, true, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	for _, ev := range []domain.ReturnEvent{domain.ReturnEventSchedulePickup, domain.ReturnEventConfirmPickup, domain.ReturnEventConfirmReceipt} {
		if _, err := f.returnUC.AdvanceReturnLogistics(ctx, req.ID, ev, "admin-1"); err != nil {
			t.Fatal(err)
		}
	}

	var valErr *domain.ValidationError
	zero, over := 0.0, 150.0
	if _, err := f.returnUC.ProcessRefund(ctx, req.ID, &zero, "admin-1"); !errors.As(err, &valErr) {
		t.Errorf("percent 0 error = %v, want ValidationError", err)
	}
	if _, err := f.returnUC.ProcessRefund(ctx, req.ID, &over, "admin-1"); !errors.As(err, &valErr) {
		t.Errorf("percent 150 error = %v, want ValidationError", err)
	}

	// nil percent falls back to the configured default (100 here).
	processed, err := f.returnUC.ProcessRefund(ctx, req.ID, nil, "admin-1")
	if err != nil {
		t.Fatalf("ProcessRefund default percent: %v", err)
	}
	stored, _ := f.returnUC.GetReturn(ctx, processed.ID)
	if stored.Refund.Percent != 100 || stored.Refund.Amount != 100 {
		t.Errorf("refund percent/amount = %v/%v, want defaults 100/100", stored.Refund.Percent, stored.Refund.Amount)
	}
}

func TestUpdateRefundStatusRespectsStateMachine(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// PENDING cannot complete directly.
	var stateErr *domain.StateError
	if _, err := f.returnUC.UpdateRefundStatus(ctx, req.ID, domain.RefundStatusCompleted, "", "", "admin-1"); !errors.As(err, &stateErr) {
		t.Fatalf("pending->completed error = %v, want StateError", err)
	}

	// PENDING -> PROCESSING -> FAILED -> PROCESSING retry.
	for _, s := range []domain.RefundStatus{domain.RefundStatusProcessing, domain.RefundStatusFailed, domain.RefundStatusProcessing} {
		if _, err := f.returnUC.UpdateRefundStatus(ctx, req.ID, s, "", "", "admin-1"); err != nil {
			t.Fatalf("update to %s: %v", s, err)
		}
	}

	// Same-state update is a no-op, not an error.
	got, err := f.returnUC.UpdateRefundStatus(ctx, req.ID, domain.RefundStatusProcessing, "", "", "admin-1")
	if err != nil {
		t.Fatalf("same-state update: %v", err)
	}
	if got.Refund.Status != domain.RefundStatusProcessing {
		t.Errorf("refund status = %s, want PROCESSING", got.Refund.Status)
	}

	var uErr *domain.ValidationError
	if _, err := f.returnUC.UpdateRefundStatus(ctx, req.ID, "REVERSED", "", "", "admin-1"); !errors.As(err, &uErr) {
		t.Errorf("unknown refund status error = %v, want ValidationError", err)
	}
}

func TestCancelReturnOnlyBeforeRefund(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.returnUC.DecideReturnRequest(ctx, req.ID, true, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	for _, ev := range []domain.ReturnEvent{domain.ReturnEventSchedulePickup, domain.ReturnEventConfirmPickup, domain.ReturnEventConfirmReceipt} {
		if _, err := f.returnUC.AdvanceReturnLogistics(ctx, req.ID, ev, "admin-1"); err != nil {
			t.Fatal(err)
		}
	}

	// Once inspected the withdrawal path is closed.
	var stateErr *domain.StateError
	if _, err := f.returnUC.CancelReturn(ctx, "u1", req.ID); !errors.As(err, &stateErr) {
		t.Errorf("cancel after inspection error = %v, want StateError", err)
	}
}

func TestListReturnableFlagsBlockedItems(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	if _, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	}); err != nil {
		t.Fatal(err)
	}

	items, err := f.returnUC.ListReturnable(ctx, "u1", "o1")
	if err != nil {
		t.Fatalf("ListReturnable: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	byID := make(map[string]domain.ReturnableItem)
	for _, it := range items {
		byID[it.Item.ID] = it
	}
	if !byID["i1"].Blocked {
		t.Error("i1 should be flagged as already on an open return")
	}
	if byID["i2"].Blocked {
		t.Error("i2 should remain returnable")
	}
}

func TestCompletedReturnBlocksSecondRequest(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))
	ctx := context.Background()

	// i1 has already been returned and refunded in full.
	settled := &domain.ReturnRequest{
		ID:      "r-settled",
		OrderID: "o1",
		UserID:  "u1",
		Status:  domain.ReturnStatusCompleted,
		Refund:  domain.RefundDetails{Status: domain.RefundStatusCompleted, Percent: 100, Amount: 200},
		Items: []domain.ReturnItem{
			{ID: "ri1", ReturnID: "r-settled", OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 2, RefundBase: 200},
		},
	}
	if err := f.returns.Create(ctx, settled); err != nil {
		t.Fatal(err)
	}

	_, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ValidationError (item already refunded)", err)
	}
	if len(valErr.Fields) != 1 || valErr.Fields[0] != "i1" {
		t.Errorf("fields = %v, want [i1]", valErr.Fields)
	}

	items, err := f.returnUC.ListReturnable(ctx, "u1", "o1")
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Item.ID == "i1" && !it.Blocked {
			t.Error("i1 should stay blocked after its refund completed")
		}
		if it.Item.ID == "i2" && it.Blocked {
			t.Error("i2 should remain returnable")
		}
	}
}

func TestConcurrentRefundCompletionSettlesOnce(t *testing.T) {
	f := newReturnFixture()
	f.seedDeliveredOrder(t, time.Now().AddDate(0, 0, -1))

	ctx := context.Background()
	req, err := f.returnUC.SubmitReturnRequest(ctx, "u1", "o1", []ReturnItemInput{
		{OrderItemID: "i1", Reason: domain.ReturnReasonDefective, Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.returnUC.DecideReturnRequest(ctx, req.ID, true, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	for _, ev := range []domain.ReturnEvent{domain.ReturnEventSchedulePickup, domain.ReturnEventConfirmPickup, domain.ReturnEventConfirmReceipt} {
		if _, err := f.returnUC.AdvanceReturnLogistics(ctx, req.ID, ev, "admin-1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.returnUC.ProcessRefund(ctx, req.ID, nil, "admin-1"); err != nil {
		t.Fatal(err)
	}

	// Two admins settle the refund at the same time; the conditional
	// status write lets exactly one through.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.returnUC.CompleteRefund(ctx, req.ID, fmt.Sprintf("txn-%d", i), "card", "", "admin-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stateErr *domain.StateError
		if !errors.As(err, &stateErr) {
			t.Errorf("loser error = %v, want StateError", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("successful completions = %d, want exactly 1", succeeded)
	}

	stored, _ := f.returnUC.GetReturn(ctx, req.ID)
	if stored.Refund.Status != domain.RefundStatusCompleted || stored.Refund.TransactionID == "" {
		t.Errorf("refund = %+v, want COMPLETED with the winner's transaction id", stored.Refund)
	}
	if got := f.notifier.byType(domain.EventRefundCompleted); len(got) != 1 {
		t.Errorf("refund.completed events = %d, want exactly 1", len(got))
	}
}

func TestUnknownLogisticsEvent(t *testing.T) {
	f := newReturnFixture()
	var valErr *domain.ValidationError
	if _, err := f.returnUC.AdvanceReturnLogistics(context.Background(), "r1", "teleport", "admin-1"); !errors.As(err, &valErr) {
		t.Errorf("unknown event error = %v, want ValidationError", err)
	}
}
