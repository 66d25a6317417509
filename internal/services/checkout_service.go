package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	domain "github.com/caphehouse/api/internal/domain"
)

const (
	msgSelectAddress   = "select a delivery address"
	msgFeeLookupFailed = "could not calculate the delivery fee for this address"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates order submission with no cart items.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutAddressRequired indicates delivery was chosen without an address.
	ErrCheckoutAddressRequired = errors.New("checkout: delivery address is required")
	// ErrCheckoutFeeNotReady indicates the delivery fee is unresolved or failed.
	ErrCheckoutFeeNotReady = errors.New("checkout: delivery fee is not ready")
	// ErrCheckoutStoreUnresolved indicates no store could be resolved for the order.
	ErrCheckoutStoreUnresolved = errors.New("checkout: store is not resolved")
	// ErrCheckoutCouponRejected indicates the voucher collaborator rejected the code.
	ErrCheckoutCouponRejected = errors.New("checkout: coupon rejected")
	// ErrCheckoutOrderFailed indicates the order collaborator rejected the submission.
	ErrCheckoutOrderFailed = errors.New("checkout: order submission failed")

	errCheckoutCartRequired     = errors.New("checkout service: cart reader is required")
	errCheckoutShippingRequired = errors.New("checkout service: shipping quoter is required")
	errCheckoutVouchersRequired = errors.New("checkout service: voucher validator is required")
	errCheckoutOrdersRequired   = errors.New("checkout service: order creator is required")
)

// CheckoutServiceDeps wires the cart view and collaborators for checkout.
type CheckoutServiceDeps struct {
	Cart     CartReader
	Shipping ShippingQuoter
	Vouchers VoucherValidator
	Orders   OrderCreator
	Logger   func(context.Context, string, map[string]any)
}

type checkoutService struct {
	cart     CartReader
	shipping ShippingQuoter
	vouchers VoucherValidator
	orders   OrderCreator
	logger   func(context.Context, string, map[string]any)

	mu sync.Mutex

	method  domain.DeliveryMethod
	address *domain.Address

	feeState  FeeState
	feeMsg    string
	fee       int64
	distance  float64
	storeID   string
	storeName string
	// feeSeq identifies the latest issued fee lookup; responses carrying an
	// older sequence are discarded instead of applied.
	feeSeq uint64

	couponCode string
	discount   domain.Discount
	couponSeq  uint64
}

// NewCheckoutService constructs a CheckoutService starting in pickup mode with
// the fee sub-flow ready at zero.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errCheckoutCartRequired
	}
	if deps.Shipping == nil {
		return nil, errCheckoutShippingRequired
	}
	if deps.Vouchers == nil {
		return nil, errCheckoutVouchersRequired
	}
	if deps.Orders == nil {
		return nil, errCheckoutOrdersRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		cart:     deps.Cart,
		shipping: deps.Shipping,
		vouchers: deps.Vouchers,
		orders:   deps.Orders,
		logger:   logger,
		method:   domain.DeliveryMethodPickup,
		feeState: FeeReady,
	}, nil
}

// SetDeliveryMethod switches between pickup and delivery. Pickup forces the
// fee and distance to zero, clears any fee error, and discards the delivery
// destination along with the store resolved from its quote, so a later switch
// back to delivery starts from an address-less state. Delivery re-issues the
// fee lookup when an address is already selected.
func (s *checkoutService) SetDeliveryMethod(ctx context.Context, method domain.DeliveryMethod) error {
	if !domain.ValidDeliveryMethod(method) {
		return fmt.Errorf("%w: unknown delivery method %q", ErrCheckoutInvalidInput, method)
	}

	s.mu.Lock()
	prev := s.method
	s.method = method
	if method == domain.DeliveryMethodPickup {
		s.address = nil
		if prev == domain.DeliveryMethodDelivery {
			s.storeID = ""
			s.storeName = ""
		}
		s.feeSeq++
		s.resetFeeLocked(FeeReady, "")
		s.mu.Unlock()
		return nil
	}
	if s.address == nil {
		s.feeSeq++
		s.resetFeeLocked(FeeError, msgSelectAddress)
		s.mu.Unlock()
		return nil
	}
	address := *s.address
	s.mu.Unlock()

	s.recomputeFee(ctx, address, "")
	return nil
}

// SelectAddress records the delivery destination and issues a fee lookup.
func (s *checkoutService) SelectAddress(ctx context.Context, address domain.Address) error {
	if strings.TrimSpace(address.ID) == "" {
		return fmt.Errorf("%w: address id is required", ErrCheckoutInvalidInput)
	}

	s.mu.Lock()
	dup := address
	s.address = &dup
	if s.method != domain.DeliveryMethodDelivery {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.recomputeFee(ctx, address, "")
	return nil
}

// SelectStore issues a store-scoped fee recompute without changing the
// delivery method. In pickup mode the store is recorded as the collection
// point and the fee stays zero.
func (s *checkoutService) SelectStore(ctx context.Context, storeID string) error {
	store := strings.TrimSpace(storeID)
	if store == "" {
		return fmt.Errorf("%w: store id is required", ErrCheckoutInvalidInput)
	}

	s.mu.Lock()
	if s.method != domain.DeliveryMethodDelivery {
		s.storeID = store
		s.storeName = ""
		s.mu.Unlock()
		return nil
	}
	if s.address == nil {
		s.feeSeq++
		s.resetFeeLocked(FeeError, msgSelectAddress)
		s.mu.Unlock()
		return nil
	}
	address := *s.address
	s.mu.Unlock()

	s.recomputeFee(ctx, address, store)
	return nil
}

// recomputeFee performs one fee lookup guarded by a monotonic sequence token.
// A lookup that resolves after a newer one was issued is discarded, so late
// responses can never overwrite fresher results.
func (s *checkoutService) recomputeFee(ctx context.Context, address domain.Address, storeID string) {
	if !address.HasCoordinates() {
		s.mu.Lock()
		s.feeSeq++
		s.resetFeeLocked(FeeError, msgFeeLookupFailed)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.feeSeq++
	seq := s.feeSeq
	s.feeState = FeeComputing
	s.feeMsg = ""
	s.mu.Unlock()

	var quote domain.ShippingQuote
	var err error
	if storeID != "" {
		quote, err = s.shipping.QuoteShippingForStore(ctx, storeID, address.Latitude, address.Longitude)
		quote.StoreID = storeID
	} else {
		quote, err = s.shipping.QuoteShipping(ctx, address.Latitude, address.Longitude)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.feeSeq {
		// Superseded by a newer lookup while in flight.
		return
	}
	if err != nil {
		s.logger(ctx, "checkout.fee_lookup_failed", map[string]any{
			"addressId": address.ID,
			"storeId":   storeID,
			"error":     err.Error(),
		})
		s.resetFeeLocked(FeeError, collaboratorMessage(err, msgFeeLookupFailed))
		return
	}

	s.feeState = FeeReady
	s.feeMsg = ""
	s.fee = quote.ShippingFee
	s.distance = quote.DistanceKm
	if strings.TrimSpace(quote.StoreID) != "" {
		s.storeID = strings.TrimSpace(quote.StoreID)
	}
	if strings.TrimSpace(quote.StoreName) != "" {
		s.storeName = strings.TrimSpace(quote.StoreName)
	}
}

func (s *checkoutService) resetFeeLocked(state FeeState, message string) {
	s.feeState = state
	s.feeMsg = message
	s.fee = 0
	s.distance = 0
}

// ApplyCoupon validates the code and replaces the stored discount on success.
// A failed validation keeps the previously applied discount untouched.
func (s *checkoutService) ApplyCoupon(ctx context.Context, code string) (domain.Discount, error) {
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return domain.Discount{}, fmt.Errorf("%w: coupon code is required", ErrCheckoutInvalidInput)
	}

	s.mu.Lock()
	s.couponSeq++
	seq := s.couponSeq
	s.mu.Unlock()

	discount, err := s.vouchers.ValidateVoucher(ctx, normalised)
	if err != nil {
		s.logger(ctx, "checkout.coupon_rejected", map[string]any{
			"code":  normalised,
			"error": err.Error(),
		})
		return domain.Discount{}, fmt.Errorf("%w: %s", ErrCheckoutCouponRejected, collaboratorMessage(err, "coupon is not valid"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.couponSeq {
		return s.discount, nil
	}
	s.couponCode = normalised
	s.discount = discount
	return discount, nil
}

// Selection returns the current ephemeral checkout choices.
func (s *checkoutService) Selection() domain.CheckoutSelection {
	s.mu.Lock()
	defer s.mu.Unlock()

	selection := domain.CheckoutSelection{
		DeliveryMethod: s.method,
		StoreID:        s.storeID,
		CouponCode:     s.couponCode,
	}
	if s.address != nil {
		selection.AddressID = s.address.ID
	}
	return selection
}

// FeeStatus returns the observable state of the delivery-fee sub-flow.
func (s *checkoutService) FeeStatus() FeeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FeeStatus{
		State:       s.feeState,
		Message:     s.feeMsg,
		ShippingFee: s.fee,
		DistanceKm:  s.distance,
		StoreID:     s.storeID,
		StoreName:   s.storeName,
	}
}

// Snapshot recomputes the pricing snapshot from the current inputs.
func (s *checkoutService) Snapshot() domain.PricingSnapshot {
	state := s.cart.State()

	s.mu.Lock()
	discount := s.discount.Amount
	fee := s.fee
	distance := s.distance
	method := s.method
	s.mu.Unlock()

	return domain.ComputePricing(state.Items, discount, fee, distance, method)
}

// SubmitOrder checks the submission preconditions in order, then calls the
// order collaborator. The cart and the selection are left untouched in every
// outcome: clearing happens only after payment confirmation elsewhere, and a
// failed submission is safe to retry immediately.
func (s *checkoutService) SubmitOrder(ctx context.Context) (domain.OrderReceipt, error) {
	state := s.cart.State()
	if len(state.Items) == 0 {
		return domain.OrderReceipt{}, ErrCheckoutEmptyCart
	}

	s.mu.Lock()
	method := s.method
	var addressID string
	if s.address != nil {
		addressID = strings.TrimSpace(s.address.ID)
	}
	feeState := s.feeState
	feeMsg := s.feeMsg
	storeID := s.storeID
	couponCode := s.couponCode
	s.mu.Unlock()

	if method == domain.DeliveryMethodDelivery {
		if addressID == "" {
			return domain.OrderReceipt{}, ErrCheckoutAddressRequired
		}
		if feeState != FeeReady {
			if feeMsg != "" {
				return domain.OrderReceipt{}, fmt.Errorf("%w: %s", ErrCheckoutFeeNotReady, feeMsg)
			}
			return domain.OrderReceipt{}, ErrCheckoutFeeNotReady
		}
	}
	if storeID == "" {
		return domain.OrderReceipt{}, ErrCheckoutStoreUnresolved
	}

	items, err := buildOrderItems(state.Items)
	if err != nil {
		return domain.OrderReceipt{}, err
	}

	receipt, err := s.orders.CreateOrder(ctx, CreateOrderCommand{
		Items:          items,
		CouponCode:     couponCode,
		DeliveryMethod: method,
		AddressID:      addressID,
		StoreID:        storeID,
	})
	if err != nil {
		s.logger(ctx, "checkout.order_failed", map[string]any{
			"storeId": storeID,
			"method":  string(method),
			"error":   err.Error(),
		})
		return domain.OrderReceipt{}, fmt.Errorf("%w: %s", ErrCheckoutOrderFailed, collaboratorMessage(err, "could not create the order"))
	}

	return receipt, nil
}

// Reset discards the selection and pricing state after payment confirmation.
func (s *checkoutService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.method = domain.DeliveryMethodPickup
	s.address = nil
	s.feeSeq++
	s.resetFeeLocked(FeeReady, "")
	s.storeID = ""
	s.storeName = ""
	s.couponSeq++
	s.couponCode = ""
	s.discount = domain.Discount{}
}

func buildOrderItems(items []domain.CartItem) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		variantID, err := strconv.Atoi(strings.TrimSpace(item.ProductVariantID))
		if err != nil {
			return nil, fmt.Errorf("%w: item %s has no numeric variant id", ErrCheckoutInvalidInput, item.ID)
		}
		out = append(out, domain.OrderItem{
			ProductVariantID: variantID,
			Quantity:         item.Quantity,
			Price:            item.UnitPriceWithToppings(),
		})
	}
	return out, nil
}

// collaboratorMessage surfaces a server-provided message when the error
// carries one, falling back to the generic text otherwise.
func collaboratorMessage(err error, fallback string) string {
	var userErr interface{ UserMessage() string }
	if errors.As(err, &userErr) {
		if msg := strings.TrimSpace(userErr.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}
