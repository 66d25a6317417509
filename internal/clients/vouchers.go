package clients

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domain "github.com/caphehouse/api/internal/domain"
)

// ErrMissingVoucherCode is returned when validation is attempted without a code.
var ErrMissingVoucherCode = errors.New("clients: missing voucher code")

// ValidateVoucher checks a coupon code with the server. A business rejection
// comes back as an APIError carrying the server's message.
func (c *Client) ValidateVoucher(ctx context.Context, code string) (domain.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Discount{}, ErrMissingVoucherCode
	}
	body := map[string]string{"code": code}
	var discount domain.Discount
	if err := c.doJSON(ctx, http.MethodPost, nil, body, &discount, "vouchers", "validate"); err != nil {
		return domain.Discount{}, err
	}
	return discount, nil
}
