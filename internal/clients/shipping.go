package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domain "github.com/caphehouse/api/internal/domain"
)

// ErrMissingStoreID is returned when a store-scoped quote lacks a store id.
var ErrMissingStoreID = errors.New("clients: missing store id")

// QuoteShipping asks the server to pick the nearest store and price delivery
// to the given coordinates.
func (c *Client) QuoteShipping(ctx context.Context, latitude, longitude float64) (domain.ShippingQuote, error) {
	query := coordinateQuery(latitude, longitude)
	var quote domain.ShippingQuote
	if err := c.doJSON(ctx, http.MethodGet, query, nil, &quote, "shipping", "fee"); err != nil {
		return domain.ShippingQuote{}, err
	}
	return quote, nil
}

// QuoteShippingForStore prices delivery from an explicitly chosen store.
func (c *Client) QuoteShippingForStore(ctx context.Context, storeID string, latitude, longitude float64) (domain.ShippingQuote, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return domain.ShippingQuote{}, ErrMissingStoreID
	}
	query := coordinateQuery(latitude, longitude)
	var quote domain.ShippingQuote
	if err := c.doJSON(ctx, http.MethodGet, query, nil, &quote, "stores", storeID, "shipping-fee"); err != nil {
		return domain.ShippingQuote{}, err
	}
	return quote, nil
}

func coordinateQuery(latitude, longitude float64) url.Values {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	return query
}
