package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/platform/httpx"
	"github.com/caphehouse/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
}

type addItemRequest struct {
	ProductID        string           `json:"productId"`
	ProductVariantID string           `json:"productVariantId"`
	Name             string           `json:"name"`
	ImageURL         string           `json:"imageUrl"`
	Price            int64            `json:"price"`
	Size             domain.Size      `json:"size"`
	Toppings         []domain.Topping `json:"toppings"`
}

type updateItemRequest struct {
	Quantity *int              `json:"quantity"`
	Size     *domain.Size      `json:"size"`
	Toppings *[]domain.Topping `json:"toppings"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.carts.State())
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	state, err := h.carts.AddItem(ctx, services.AddItemCommand{
		ProductID:        req.ProductID,
		ProductVariantID: req.ProductVariantID,
		Name:             req.Name,
		ImageURL:         req.ImageURL,
		UnitPrice:        req.Price,
		Size:             req.Size,
		Toppings:         req.Toppings,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	state, err := h.carts.UpdateItem(ctx, services.UpdateItemCommand{
		ItemID:   chi.URLParam(r, "itemID"),
		Quantity: req.Quantity,
		Size:     req.Size,
		Toppings: req.Toppings,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	state, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	state, err := h.carts.Clear(r.Context())
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart is temporarily unavailable", http.StatusServiceUnavailable))
	}
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxCartBodySize))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
