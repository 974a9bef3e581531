package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"threadora-backend/internal/domain"
)

// In-memory collaborators backing the usecase tests. The catalog fake
// mirrors the conditional-decrement contract: a decrement that would
// drive a counter negative fails with ErrInsufficientStock and mutates
// nothing.

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	bundles  map[string]*domain.Bundle
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[string]*domain.Product),
		bundles:  make(map[string]*domain.Bundle),
	}
}

func (f *fakeCatalog) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Sizes = append([]domain.ProductSize(nil), p.Sizes...)
	return &cp, nil
}

func (f *fakeCatalog) GetBundleByID(ctx context.Context, id string) (*domain.Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeCatalog) DecrementSizeStock(ctx context.Context, productID, size string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrInsufficientStock
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			if p.Sizes[i].Stock < qty {
				return domain.ErrInsufficientStock
			}
			p.Sizes[i].Stock -= qty
			return nil
		}
	}
	return domain.ErrInsufficientStock
}

func (f *fakeCatalog) IncrementSizeStock(ctx context.Context, productID, size string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return &domain.NotFoundError{Entity: "product size", ID: productID}
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			p.Sizes[i].Stock += qty
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "product size", ID: productID}
}

func (f *fakeCatalog) DecrementBundleStock(ctx context.Context, bundleID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[bundleID]
	if !ok || b.Stock < qty {
		return domain.ErrInsufficientStock
	}
	b.Stock -= qty
	return nil
}

func (f *fakeCatalog) IncrementBundleStock(ctx context.Context, bundleID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[bundleID]
	if !ok {
		return &domain.NotFoundError{Entity: "bundle", ID: bundleID}
	}
	b.Stock += qty
	return nil
}

func (f *fakeCatalog) sizeStock(productID, size string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return -1
	}
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock
		}
	}
	return -1
}

func (f *fakeCatalog) bundleStock(bundleID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[bundleID]
	if !ok {
		return -1
	}
	return b.Stock
}

type fakeCartRepo struct {
	mu    sync.Mutex
	lines map[string]domain.CartLine // by line id
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{lines: make(map[string]domain.CartLine)}
}

func (f *fakeCartRepo) GetLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CartLine
	for _, l := range f.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) GetLinesByIDs(ctx context.Context, userID string, lineIDs []string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CartLine
	for _, id := range lineIDs {
		if l, ok := f.lines[id]; ok && l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) FindLine(ctx context.Context, userID string, kind domain.ItemKind, refID, size string) (*domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if l.UserID != userID || l.Kind != kind {
			continue
		}
		if kind == domain.ItemKindBundle && l.BundleID == refID {
			cp := l
			return &cp, nil
		}
		if kind == domain.ItemKindProduct && l.ProductID == refID && l.Size == size {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCartRepo) CreateLine(ctx context.Context, line *domain.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[line.ID] = *line
	return nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lines[lineID]
	if !ok {
		return &domain.NotFoundError{Entity: "cart line", ID: lineID}
	}
	l.Quantity = quantity
	f.lines[lineID] = l
	return nil
}

func (f *fakeCartRepo) DeleteLine(ctx context.Context, userID, lineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, lineID)
	return nil
}

func (f *fakeCartRepo) DeleteLines(ctx context.Context, userID string, lineIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range lineIDs {
		delete(f.lines, id)
	}
	return nil
}

func (f *fakeCartRepo) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.lines {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	events []domain.OrderEvent
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrderRepo) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	if o.Status != from {
		return domain.NewStateError("order", o.Status, to)
	}
	o.Status = to
	return nil
}

func (f *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	o.PaymentStatus = status
	return nil
}

func (f *fakeOrderRepo) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	o.DeliveredAt = &at
	return nil
}

func (f *fakeOrderRepo) CreateEvent(ctx context.Context, event *domain.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = fmt.Sprintf("oe-%d", len(f.events)+1)
	event.CreatedAt = time.Now()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeOrderRepo) GetEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OrderEvent
	for _, e := range f.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeReturnRepo struct {
	mu      sync.Mutex
	returns map[string]*domain.ReturnRequest
	events  []domain.ReturnEventRecord
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{returns: make(map[string]*domain.ReturnRequest)}
}

func (f *fakeReturnRepo) Create(ctx context.Context, req *domain.ReturnRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	cp.Items = append([]domain.ReturnItem(nil), req.Items...)
	f.returns[req.ID] = &cp
	return nil
}

func (f *fakeReturnRepo) GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.Items = append([]domain.ReturnItem(nil), r.Items...)
	return &cp, nil
}

func (f *fakeReturnRepo) GetByUserID(ctx context.Context, userID string) ([]domain.ReturnRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReturnRequest
	for _, r := range f.returns {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReturnRepo) GetAll(ctx context.Context, filter domain.ReturnFilter) ([]domain.ReturnRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReturnRequest
	for _, r := range f.returns {
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeReturnRepo) UpdateStatus(ctx context.Context, id string, from, to domain.ReturnStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return &domain.NotFoundError{Entity: "return request", ID: id}
	}
	if r.Status != from {
		return domain.NewStateError("return", r.Status, to)
	}
	r.Status = to
	return nil
}

func (f *fakeReturnRepo) UpdateAdminComment(ctx context.Context, id string, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return &domain.NotFoundError{Entity: "return request", ID: id}
	}
	r.AdminComment = &comment
	return nil
}

func (f *fakeReturnRepo) IncrementResubmissions(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return &domain.NotFoundError{Entity: "return request", ID: id}
	}
	r.Resubmissions++
	return nil
}

func (f *fakeReturnRepo) UpdateRefund(ctx context.Context, id string, refund domain.RefundDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.returns[id]
	if !ok {
		return &domain.NotFoundError{Entity: "return request", ID: id}
	}
	r.Refund = refund
	return nil
}

func (f *fakeReturnRepo) BlockedItemIDs(ctx context.Context, orderID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blocked := make(map[string]bool)
	for _, r := range f.returns {
		if r.OrderID != orderID {
			continue
		}
		switch r.Status {
		case domain.ReturnStatusRejected, domain.ReturnStatusCancelled:
			continue
		}
		for _, it := range r.Items {
			blocked[it.OrderItemID] = true
		}
	}
	return blocked, nil
}

func (f *fakeReturnRepo) CreateEvent(ctx context.Context, event *domain.ReturnEventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = fmt.Sprintf("re-%d", len(f.events)+1)
	event.CreatedAt = time.Now()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeReturnRepo) GetEvents(ctx context.Context, returnID string) ([]domain.ReturnEventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReturnEventRecord
	for _, e := range f.events {
		if e.ReturnID == returnID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeTxManager runs the closure directly. The fakes mutate shared maps,
// so "rollback" is approximated by the conditional mutators failing
// before any partial effect the tests assert on.
type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(ctx context.Context, eventType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (n *recordingNotifier) byType(eventType string) []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publishedEvent
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
