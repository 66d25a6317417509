package domain

// Size enumerates the drink sizes offered by the catalog.
type Size string

const (
	SizeS Size = "S"
	SizeM Size = "M"
	SizeL Size = "L"
)

// ValidSize reports whether the given size is one of the catalog sizes.
func ValidSize(size Size) bool {
	switch size {
	case SizeS, SizeM, SizeL:
		return true
	}
	return false
}

// DeliveryMethod enumerates how an order reaches the customer.
type DeliveryMethod string

const (
	// DeliveryMethodPickup means the customer collects the order at a store.
	DeliveryMethodPickup DeliveryMethod = "pickup"
	// DeliveryMethodDelivery means the order is shipped to an address.
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

// ValidDeliveryMethod reports whether the given method is supported.
func ValidDeliveryMethod(method DeliveryMethod) bool {
	return method == DeliveryMethodPickup || method == DeliveryMethodDelivery
}

// Topping is an immutable add-on priced per unit of the parent item.
type Topping struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// CartItem is a single cart line: a product variant plus size and toppings.
// UnitPrice is the per-unit price excluding toppings, fixed at add time.
type CartItem struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"productId"`
	ProductVariantID string    `json:"productVariantId"`
	Name             string    `json:"name"`
	ImageURL         string    `json:"imageUrl"`
	UnitPrice        int64     `json:"price"`
	Size             Size      `json:"size"`
	Quantity         int       `json:"quantity"`
	Toppings         []Topping `json:"toppings"`
}

// UnitPriceWithToppings returns the effective per-unit price including toppings.
func (i CartItem) UnitPriceWithToppings() int64 {
	price := i.UnitPrice
	for _, topping := range i.Toppings {
		price += topping.Price
	}
	return price
}

// LineTotal returns quantity multiplied by the topping-inclusive unit price.
func (i CartItem) LineTotal() int64 {
	if i.Quantity <= 0 {
		return 0
	}
	return int64(i.Quantity) * i.UnitPriceWithToppings()
}

// CartState is the cart snapshot owned by the cart service. ItemCount and
// Total are derived from Items and never mutated directly.
type CartState struct {
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     int64      `json:"total"`
}

// EmptyCartState returns the canonical empty cart.
func EmptyCartState() CartState {
	return CartState{Items: []CartItem{}}
}

// Address is a saved delivery destination resolved to coordinates.
type Address struct {
	ID          string  `json:"id"`
	AddressText string  `json:"addressText"`
	Label       string  `json:"label"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	IsDefault   bool    `json:"isDefault"`
	Notes       string  `json:"notes,omitempty"`
}

// HasCoordinates reports whether the address resolved to a usable location.
func (a Address) HasCoordinates() bool {
	return a.Latitude != 0 || a.Longitude != 0
}

// Suggestion is one autocomplete candidate from the location collaborator.
type Suggestion struct {
	RefID       string `json:"refId"`
	Description string `json:"description"`
}

// PlaceDetail carries the exact coordinates of a chosen suggestion.
type PlaceDetail struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ShippingQuote is the result of a delivery-fee lookup. StoreID and StoreName
// are populated when the server picks the nearest store.
type ShippingQuote struct {
	ShippingFee int64   `json:"shippingFee"`
	DistanceKm  float64 `json:"distance"`
	StoreID     string  `json:"storeId,omitempty"`
	StoreName   string  `json:"storeName,omitempty"`
}

// Discount is a validated voucher outcome applied against the subtotal.
type Discount struct {
	Amount     int64   `json:"discountAmount"`
	Percentage float64 `json:"discountPercentage"`
}

// CheckoutSelection captures the ephemeral checkout choices. It is never
// persisted and is discarded after a successful order submission.
type CheckoutSelection struct {
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	AddressID      string         `json:"addressId,omitempty"`
	StoreID        string         `json:"storeId,omitempty"`
	CouponCode     string         `json:"couponCode,omitempty"`
}

// OrderItem is one order-creation line sent to the order collaborator.
type OrderItem struct {
	ProductVariantID int   `json:"productVariantId"`
	Quantity         int   `json:"quantity"`
	Price            int64 `json:"price"`
}

// OrderReceipt identifies a created order so the caller can proceed to payment.
type OrderReceipt struct {
	OrderID    string `json:"id"`
	TotalPrice int64  `json:"totalPrice"`
}

// OrderUpdate is one message on the real-time order feed.
type OrderUpdate struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}
