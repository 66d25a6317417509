package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caphehouse/api/internal/platform/httpx"
	"github.com/caphehouse/api/internal/services"
)

// AddressHandlers exposes the debounced address search flow.
type AddressHandlers struct {
	addresses services.AddressSelector
}

// NewAddressHandlers constructs handlers over the address selector.
func NewAddressHandlers(addresses services.AddressSelector) *AddressHandlers {
	return &AddressHandlers{addresses: addresses}
}

// Routes wires the /addresses endpoints onto the provided router.
func (h *AddressHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/search", h.search)
	r.Get("/suggestions", h.suggestions)
	r.Post("/choose", h.choose)
}

type searchRequest struct {
	Query string `json:"query"`
}

type chooseRequest struct {
	RefID string `json:"refId"`
	Text  string `json:"text"`
}

// search schedules a debounced autocomplete lookup. The suggestions endpoint
// is polled for the result once the debounce window elapses.
func (h *AddressHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	h.addresses.Search(ctx, req.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (h *AddressHandlers) suggestions(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"suggestions": h.addresses.Suggestions(),
	})
}

func (h *AddressHandlers) choose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req chooseRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	address, err := h.addresses.ChooseSuggestion(ctx, req.RefID, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrAddressUnavailable) {
			httpx.WriteError(ctx, w, httpx.NewError("address_unavailable", err.Error(), http.StatusBadGateway))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, address)
}
