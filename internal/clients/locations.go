package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	domain "github.com/caphehouse/api/internal/domain"
)

// ErrMissingPlaceRef is returned when a detail lookup lacks a reference id.
var ErrMissingPlaceRef = errors.New("clients: missing place ref")

// Autocomplete returns address suggestions for a free-text query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]domain.Suggestion, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("query", trimmed)
	var suggestions []domain.Suggestion
	if err := c.doJSON(ctx, http.MethodGet, params, nil, &suggestions, "locations", "autocomplete"); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// PlaceDetails resolves a suggestion reference to exact coordinates.
func (c *Client) PlaceDetails(ctx context.Context, refID string) (domain.PlaceDetail, error) {
	refID = strings.TrimSpace(refID)
	if refID == "" {
		return domain.PlaceDetail{}, ErrMissingPlaceRef
	}
	params := url.Values{}
	params.Set("refId", refID)
	var detail domain.PlaceDetail
	if err := c.doJSON(ctx, http.MethodGet, params, nil, &detail, "locations", "place"); err != nil {
		return domain.PlaceDetail{}, err
	}
	return detail, nil
}
