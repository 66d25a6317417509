package clients

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/caphehouse/api/internal/domain"
	services "github.com/caphehouse/api/internal/services"
)

// ErrEmptyOrder is returned when order creation is attempted without items.
var ErrEmptyOrder = errors.New("clients: order has no items")

type createOrderPayload struct {
	Items          []domain.OrderItem    `json:"items"`
	CouponCode     string                `json:"couponCode,omitempty"`
	DeliveryMethod domain.DeliveryMethod `json:"deliveryMethod"`
	AddressID      string                `json:"addressId,omitempty"`
	StoreID        string                `json:"storeId"`
}

// CreateOrder submits the assembled order to the server and returns the
// identifiers needed to proceed to payment.
func (c *Client) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.OrderReceipt, error) {
	if len(cmd.Items) == 0 {
		return domain.OrderReceipt{}, ErrEmptyOrder
	}
	payload := createOrderPayload{
		Items:          cmd.Items,
		CouponCode:     cmd.CouponCode,
		DeliveryMethod: cmd.DeliveryMethod,
		AddressID:      cmd.AddressID,
		StoreID:        cmd.StoreID,
	}
	var receipt domain.OrderReceipt
	if err := c.doJSON(ctx, http.MethodPost, nil, payload, &receipt, "orders"); err != nil {
		return domain.OrderReceipt{}, err
	}
	return receipt, nil
}
