package clients

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domain "github.com/caphehouse/api/internal/domain"
)

// ErrMissingAddressID is returned when an address lookup lacks an id.
var ErrMissingAddressID = errors.New("clients: missing address id")

// ListAddresses fetches the user's saved delivery addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var addresses []domain.Address
	if err := c.doJSON(ctx, http.MethodGet, nil, nil, &addresses, "addresses"); err != nil {
		return nil, err
	}
	return addresses, nil
}

// CreateAddress saves a new delivery address and returns it with its id.
func (c *Client) CreateAddress(ctx context.Context, address domain.Address) (domain.Address, error) {
	address.ID = ""
	var created domain.Address
	if err := c.doJSON(ctx, http.MethodPost, nil, address, &created, "addresses"); err != nil {
		return domain.Address{}, err
	}
	return created, nil
}

// GetAddress fetches a single saved address by id.
func (c *Client) GetAddress(ctx context.Context, addressID string) (domain.Address, error) {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return domain.Address{}, ErrMissingAddressID
	}
	var address domain.Address
	if err := c.doJSON(ctx, http.MethodGet, nil, nil, &address, "addresses", addressID); err != nil {
		return domain.Address{}, err
	}
	return address, nil
}
