package services

import (
	"context"

	domain "github.com/caphehouse/api/internal/domain"
)

// CartService is the single source of truth for cart contents. Every
// operation is atomic with respect to the in-memory state and returns the
// recomputed snapshot.
type CartService interface {
	State() domain.CartState
	AddItem(ctx context.Context, cmd AddItemCommand) (domain.CartState, error)
	UpdateItem(ctx context.Context, cmd UpdateItemCommand) (domain.CartState, error)
	RemoveItem(ctx context.Context, itemID string) (domain.CartState, error)
	Clear(ctx context.Context) (domain.CartState, error)
	Load(ctx context.Context) (domain.CartState, error)
}

// CartReader is the read-only view the checkout orchestrator holds.
type CartReader interface {
	State() domain.CartState
}

// AddItemCommand describes a candidate line item without id and quantity.
type AddItemCommand struct {
	ProductID        string
	ProductVariantID string
	Name             string
	ImageURL         string
	UnitPrice        int64
	Size             domain.Size
	Toppings         []domain.Topping
}

// UpdateItemCommand patches an existing line item. Nil fields keep the prior
// value. A resulting quantity of zero or below removes the item.
type UpdateItemCommand struct {
	ItemID   string
	Quantity *int
	Size     *domain.Size
	Toppings *[]domain.Topping
}

// CheckoutService composes cart contents with the user's checkout selections
// into a pricing snapshot and an order submission.
type CheckoutService interface {
	SetDeliveryMethod(ctx context.Context, method domain.DeliveryMethod) error
	SelectAddress(ctx context.Context, address domain.Address) error
	SelectStore(ctx context.Context, storeID string) error
	ApplyCoupon(ctx context.Context, code string) (domain.Discount, error)
	Selection() domain.CheckoutSelection
	FeeStatus() FeeStatus
	Snapshot() domain.PricingSnapshot
	SubmitOrder(ctx context.Context) (domain.OrderReceipt, error)
	Reset()
}

// FeeState enumerates the delivery-fee sub-flow states.
type FeeState string

const (
	FeeIdle      FeeState = "idle"
	FeeComputing FeeState = "computing"
	FeeReady     FeeState = "ready"
	FeeError     FeeState = "error"
)

// FeeStatus is the observable outcome of the latest fee lookup.
type FeeStatus struct {
	State       FeeState
	Message     string
	ShippingFee int64
	DistanceKm  float64
	StoreID     string
	StoreName   string
}

// AddressSelector maintains the delivery-method toggle, the chosen address,
// and the debounced autocomplete flow feeding the checkout orchestrator.
type AddressSelector interface {
	SetDeliveryMethod(ctx context.Context, method domain.DeliveryMethod) ([]domain.Address, error)
	SelectAddress(ctx context.Context, addressID string) (domain.Address, error)
	Search(ctx context.Context, query string)
	Suggestions() []domain.Suggestion
	ChooseSuggestion(ctx context.Context, refID string, text string) (domain.Address, error)
	Method() domain.DeliveryMethod
	Selected() (domain.Address, bool)
	Close()
}

// ShippingQuoter resolves delivery fees against the shipping collaborator.
type ShippingQuoter interface {
	QuoteShipping(ctx context.Context, latitude, longitude float64) (domain.ShippingQuote, error)
	QuoteShippingForStore(ctx context.Context, storeID string, latitude, longitude float64) (domain.ShippingQuote, error)
}

// VoucherValidator validates coupon codes against the voucher collaborator.
type VoucherValidator interface {
	ValidateVoucher(ctx context.Context, code string) (domain.Discount, error)
}

// CreateOrderCommand is the order-creation payload sent to the collaborator.
type CreateOrderCommand struct {
	Items          []domain.OrderItem
	CouponCode     string
	DeliveryMethod domain.DeliveryMethod
	AddressID      string
	StoreID        string
}

// OrderCreator submits orders to the order collaborator.
type OrderCreator interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.OrderReceipt, error)
}

// AddressBook exposes the user's saved addresses.
type AddressBook interface {
	ListAddresses(ctx context.Context) ([]domain.Address, error)
	CreateAddress(ctx context.Context, address domain.Address) (domain.Address, error)
	GetAddress(ctx context.Context, addressID string) (domain.Address, error)
}

// LocationResolver performs address autocomplete and detail lookups.
type LocationResolver interface {
	Autocomplete(ctx context.Context, query string) ([]domain.Suggestion, error)
	PlaceDetails(ctx context.Context, refID string) (domain.PlaceDetail, error)
}
