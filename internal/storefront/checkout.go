package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"petshop/internal/domain"
	"petshop/internal/payment"
	"petshop/internal/service/checkout"
)

var (
	// ErrEmptyCart is returned when there is nothing to check out.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConfirmationAborted means confirmation was not attempted because the
	// card input or the processor context is missing.
	ErrConfirmationAborted = errors.New("payment confirmation aborted")
	// ErrRedirect tells the receipt view to navigate away instead of
	// rendering an error.
	ErrRedirect = errors.New("redirect")
)

// ShippingForm is what the checkout form collects.
type ShippingForm struct {
	UserID       int64
	Address      string
	City         string
	State        string
	ZipCode      string
	Phone        string
	BillingName  string
	BillingEmail string
	Currency     string
}

// Submission is the result of a checkout submit, ready for confirmation.
type Submission struct {
	OrderID      int64
	OrderNumber  string
	ClientSecret string
	Total        decimal.Decimal
	form         ShippingForm
}

// Submit prices the current cart and creates the order and payment intent.
// A fresh idempotency key is sent so a retried submit does not charge twice.
func (c *Client) Submit(ctx context.Context, form ShippingForm) (*Submission, error) {
	return c.SubmitWithKey(ctx, form, uuid.NewString())
}

func (c *Client) SubmitWithKey(ctx context.Context, form ShippingForm, idempotencyKey string) (*Submission, error) {
	view := c.CartView(ctx)
	if len(view.Items) == 0 {
		return nil, ErrEmptyCart
	}
	items := make([]checkout.LineItem, 0, len(view.Items))
	for _, line := range view.Items {
		items = append(items, checkout.LineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
			Name:      line.ProductName,
		})
	}
	req := checkout.Request{
		Amount:          view.Summary.Total,
		Currency:        form.Currency,
		UserID:          form.UserID,
		CartItems:       items,
		ShippingAddress: form.Address,
		ShippingCity:    form.City,
		ShippingState:   form.State,
		ShippingZipCode: form.ZipCode,
		ShippingPhone:   form.Phone,
		PaymentMethod:   domain.PaymentMethodCard,
	}
	var res checkout.Result
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.do(ctx, http.MethodPost, "/payments/create-payment-intent", headers, req, &res); err != nil {
		return nil, err
	}
	c.logger.Printf("storefront: submitted order_id=%d order_number=%s", res.OrderID, res.OrderNumber)
	return &Submission{
		OrderID:      res.OrderID,
		OrderNumber:  res.OrderNumber,
		ClientSecret: res.ClientSecret,
		Total:        view.Summary.Total,
		form:         form,
	}, nil
}

type confirmResponse struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// Confirm charges the card token for a submitted order. On success the guest
// cart is cleared and the order id is returned. Processor errors come back as
// *ServerError with the processor's message; the order stays PENDING.
func (c *Client) Confirm(ctx context.Context, sub *Submission, paymentMethod string) (int64, error) {
	if sub == nil || sub.ClientSecret == "" || strings.TrimSpace(paymentMethod) == "" {
		return 0, ErrConfirmationAborted
	}
	body := map[string]any{
		"orderId":       sub.OrderID,
		"paymentMethod": strings.TrimSpace(paymentMethod),
		"billingName":   sub.form.BillingName,
		"billingEmail":  sub.form.BillingEmail,
	}
	var resp confirmResponse
	if err := c.do(ctx, http.MethodPost, "/payments/confirm", nil, body, &resp); err != nil {
		c.logger.Printf("storefront: confirm order_id=%d error=%v", sub.OrderID, err)
		return 0, err
	}
	if resp.Status != payment.StatusSucceeded {
		return 0, fmt.Errorf("payment not completed: status %s", resp.Status)
	}
	if err := c.guest.Clear(ctx); err != nil {
		c.logger.Printf("storefront: clear guest cart error=%v", err)
	}
	return sub.OrderID, nil
}

// Receipt loads an order for display. An id that is not an integer or a
// failed fetch returns ErrRedirect. A loaded receipt empties the carts.
func (c *Client) Receipt(ctx context.Context, rawID string) (*domain.Order, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrRedirect
	}
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil, &order); err != nil {
		c.logger.Printf("storefront: receipt order_id=%d error=%v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrRedirect, err)
	}
	c.clearCarts(ctx)
	return &order, nil
}
