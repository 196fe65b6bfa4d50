package service

import (
	"context"
	"sync"
	"time"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
	"github.com/kyungseok/storefront-checkout-go/internal/repository"
)

// fakeOrderRepo 메모리 기반 주문 레포지토리
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	outbox []*repository.OutboxEvent
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) CreateWithItems(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.orders[order.ID]; exists {
		return errors.New(errors.ErrCodeInvalidCheckout, "duplicate order id")
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found: "+id)
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	return &clone, nil
}

func (f *fakeOrderRepo) AttachGatewayPayment(ctx context.Context, orderID, gatewayPaymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if order, ok := f.orders[orderID]; ok && order.GatewayPaymentID == "" {
		order.GatewayPaymentID = gatewayPaymentID
	}
	return nil
}

func (f *fakeOrderRepo) TransitionStatus(ctx context.Context, orderID string, next domain.PaymentStatus, outbox *repository.OutboxEvent) (repository.TransitionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return repository.TransitionResult{}, errors.New(errors.ErrCodeOrderNotFound, "order not found: "+orderID)
	}

	previous := order.Status
	if !order.CanTransitionTo(next) {
		return repository.TransitionResult{Applied: false, Previous: previous}, nil
	}

	order.Status = next
	order.UpdatedAt = time.Now()
	if outbox != nil {
		f.outbox = append(f.outbox, outbox)
	}
	return repository.TransitionResult{Applied: true, Previous: previous}, nil
}

// fakeCatalog 메모리 기반 카탈로그
type fakeCatalog struct {
	products map[string]*domain.Product
	bumps    map[string][]domain.OrderBump
	coupons  map[string]*domain.Coupon
	settings map[string]string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[string]*domain.Product),
		bumps:    make(map[string][]domain.OrderBump),
		coupons:  make(map[string]*domain.Coupon),
		settings: make(map[string]string),
	}
}

func (f *fakeCatalog) FindActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, ok := f.products[id]
	if !ok || !product.IsActive {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product not found or inactive: "+id)
	}
	return product, nil
}

func (f *fakeCatalog) FindActiveBumps(ctx context.Context, productID string) ([]domain.OrderBump, error) {
	return f.bumps[productID], nil
}

func (f *fakeCatalog) FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, errors.New(errors.ErrCodeCouponInvalid, "coupon not found: "+code)
	}
	return coupon, nil
}

func (f *fakeCatalog) SettingValue(ctx context.Context, key string) (string, error) {
	return f.settings[key], nil
}

// fakeAttempts 메모리 기반 결제 시도 로그
type fakeAttempts struct {
	mu       sync.Mutex
	attempts []domain.PaymentAttempt
}

func (f *fakeAttempts) Append(ctx context.Context, attempt *domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeAttempts) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.PaymentAttempt
	for _, attempt := range f.attempts {
		if attempt.OrderID == orderID {
			result = append(result, attempt)
		}
	}
	return result, nil
}

// fakeGateway 게이트웨이 스텁
type fakeGateway struct {
	mu          sync.Mutex
	createCalls []gateway.CreatePaymentInput
	getCalls    int
	payment     *gateway.Payment
	createErr   error
	payments    map[string]*gateway.Payment
	getErr      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*gateway.Payment)}
}

func (f *fakeGateway) CreatePayment(ctx context.Context, input gateway.CreatePaymentInput) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, input)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.payment, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	payment, ok := f.payments[paymentID]
	if !ok {
		return nil, errors.New(errors.ErrCodeGatewayError, "payment not found: "+paymentID)
	}
	return payment, nil
}

// fakeIdemStore 메모리 기반 멱등성 저장소
type fakeIdemStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{keys: make(map[string]bool)}
}

func (f *fakeIdemStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdemStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeIdemStore) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}
