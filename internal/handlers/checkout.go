package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/platform/httpx"
	"github.com/caphehouse/api/internal/services"
)

// OrderNotifier announces a submitted order on the real-time feed. Publish
// failures are the notifier's to log; they never fail the submission.
type OrderNotifier func(ctx context.Context, update domain.OrderUpdate)

// CheckoutHandlers exposes the checkout endpoints: delivery selection,
// coupons, the pricing summary, and order submission.
type CheckoutHandlers struct {
	checkout  services.CheckoutService
	addresses services.AddressSelector
	notify    OrderNotifier
}

// CheckoutOption configures optional checkout handler collaborators.
type CheckoutOption func(*CheckoutHandlers)

// WithOrderNotifier announces every successfully submitted order.
func WithOrderNotifier(notify OrderNotifier) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.notify = notify
	}
}

// NewCheckoutHandlers constructs handlers over the checkout orchestrator and
// the address selector.
func NewCheckoutHandlers(checkout services.CheckoutService, addresses services.AddressSelector, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{checkout: checkout, addresses: addresses}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Put("/delivery-method", h.setDeliveryMethod)
	r.Put("/address", h.selectAddress)
	r.Put("/store", h.selectStore)
	r.Post("/coupon", h.applyCoupon)
	r.Get("/summary", h.getSummary)
	r.Post("/order", h.submitOrder)
	r.Post("/reset", h.reset)
}

type deliveryMethodRequest struct {
	Method domain.DeliveryMethod `json:"method"`
}

type selectAddressRequest struct {
	AddressID string `json:"addressId"`
}

type selectStoreRequest struct {
	StoreID string `json:"storeId"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type summaryResponse struct {
	Selection domain.CheckoutSelection `json:"selection"`
	Fee       feePayload               `json:"fee"`
	Pricing   pricingPayload           `json:"pricing"`
}

type feePayload struct {
	State       services.FeeState `json:"state"`
	Message     string            `json:"message,omitempty"`
	ShippingFee int64             `json:"shippingFee"`
	DistanceKm  float64           `json:"distance"`
	StoreID     string            `json:"storeId,omitempty"`
	StoreName   string            `json:"storeName,omitempty"`
}

type pricingPayload struct {
	Subtotal       int64   `json:"subtotal"`
	DiscountAmount int64   `json:"discountAmount"`
	VATAmount      int64   `json:"vatAmount"`
	ShippingFee    int64   `json:"shippingFee"`
	DistanceKm     float64 `json:"distance"`
	Total          int64   `json:"total"`
	TotalDisplay   string  `json:"totalDisplay"`
}

func (h *CheckoutHandlers) setDeliveryMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req deliveryMethodRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	saved, err := h.addresses.SetDeliveryMethod(ctx, req.Method)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	if err := h.checkout.SetDeliveryMethod(ctx, req.Method); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"method":    req.Method,
		"addresses": saved,
		"fee":       h.feePayload(),
	})
}

func (h *CheckoutHandlers) selectAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req selectAddressRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	address, err := h.addresses.SelectAddress(ctx, req.AddressID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	if err := h.checkout.SelectAddress(ctx, address); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"address": address,
		"fee":     h.feePayload(),
	})
}

func (h *CheckoutHandlers) selectStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req selectStoreRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.checkout.SelectStore(ctx, req.StoreID); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"fee": h.feePayload()})
}

func (h *CheckoutHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req couponRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	discount, err := h.checkout.ApplyCoupon(ctx, req.Code)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"discount": discount,
		"pricing":  h.pricingPayload(),
	})
}

func (h *CheckoutHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, summaryResponse{
		Selection: h.checkout.Selection(),
		Fee:       h.feePayload(),
		Pricing:   h.pricingPayload(),
	})
}

func (h *CheckoutHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.checkout.SubmitOrder(r.Context())
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	if h.notify != nil {
		h.notify(r.Context(), domain.OrderUpdate{
			OrderID:   receipt.OrderID,
			Status:    "created",
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *CheckoutHandlers) reset(w http.ResponseWriter, r *http.Request) {
	h.checkout.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandlers) feePayload() feePayload {
	status := h.checkout.FeeStatus()
	return feePayload{
		State:       status.State,
		Message:     status.Message,
		ShippingFee: status.ShippingFee,
		DistanceKm:  status.DistanceKm,
		StoreID:     status.StoreID,
		StoreName:   status.StoreName,
	}
}

func (h *CheckoutHandlers) pricingPayload() pricingPayload {
	snapshot := h.checkout.Snapshot()
	return pricingPayload{
		Subtotal:       snapshot.Subtotal,
		DiscountAmount: snapshot.DiscountAmount,
		VATAmount:      snapshot.VATAmount,
		ShippingFee:    snapshot.ShippingFee,
		DistanceKm:     snapshot.DistanceKm,
		Total:          snapshot.Total,
		TotalDisplay:   domain.FormatVND(snapshot.Total),
	}
}

func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput), errors.Is(err, services.ErrAddressInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("address_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutAddressRequired):
		httpx.WriteError(ctx, w, httpx.NewError("address_required", "select a delivery address", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutFeeNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("fee_not_ready", "delivery fee could not be resolved", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutStoreUnresolved):
		httpx.WriteError(ctx, w, httpx.NewError("store_unresolved", "no store resolved for this order", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutCouponRejected):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", trimSentinel(err, services.ErrCheckoutCouponRejected), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutOrderFailed):
		httpx.WriteError(ctx, w, httpx.NewError("order_failed", trimSentinel(err, services.ErrCheckoutOrderFailed), http.StatusBadGateway))
	case errors.Is(err, services.ErrAddressUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("addresses_unavailable", "saved addresses are temporarily unavailable", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

// trimSentinel strips the sentinel prefix so only the user-facing part of the
// wrapped message goes out.
func trimSentinel(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
