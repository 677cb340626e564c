package storefront

import (
	"context"
	"errors"
	"net/http"

	"petshop/internal/domain"
	"petshop/internal/guestcart"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

type itemsBody struct {
	Items []domain.CartItemInput `json:"items"`
}

// Login stores the bearer token and moves the guest cart to the server.
// A failed merge leaves the guest cart in place.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	if _, err := c.MergeGuestCart(ctx); err != nil {
		c.logger.Printf("storefront: merge guest cart error=%v", err)
	}
	return resp.User, nil
}

// GetCart loads the server cart of the logged in user.
func (c *Client) GetCart(ctx context.Context) (*domain.CartView, error) {
	if !c.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var view domain.CartView
	if err := c.do(ctx, http.MethodGet, "/cart", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// AddToCart adds to the server cart. Callers re-fetch the cart afterwards.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) error {
	if !c.Authenticated() {
		return ErrNotAuthenticated
	}
	return c.do(ctx, http.MethodPost, "/cart", nil, domain.CartItemInput{ProductID: productID, Quantity: quantity}, nil)
}

// Add puts an item into the server cart when logged in, otherwise into the
// guest cart.
func (c *Client) Add(ctx context.Context, item domain.CartItemInput) error {
	if c.Authenticated() {
		return c.do(ctx, http.MethodPost, "/cart", nil, item, nil)
	}
	return c.guest.Add(ctx, item.ProductID, item.Quantity, item.Size, item.Color)
}

// QuoteCart prices items that only exist client side.
func (c *Client) QuoteCart(ctx context.Context, items []guestcart.Item) (*domain.CartView, error) {
	var view domain.CartView
	if err := c.do(ctx, http.MethodPost, "/cart/quote", nil, itemsBody{Items: items}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// MergeGuestCart pushes the guest cart to the server cart and clears it once
// the server accepted it.
func (c *Client) MergeGuestCart(ctx context.Context) (*domain.CartView, error) {
	if !c.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	items := c.guest.Get(ctx)
	if len(items) == 0 {
		return c.GetCart(ctx)
	}
	var view domain.CartView
	if err := c.do(ctx, http.MethodPost, "/cart/merge", nil, itemsBody{Items: items}, &view); err != nil {
		return nil, err
	}
	if err := c.guest.Clear(ctx); err != nil {
		c.logger.Printf("storefront: clear guest cart error=%v", err)
	}
	return &view, nil
}

// CartView is what the cart drawer shows. Backend failures produce an empty
// cart instead of an error.
func (c *Client) CartView(ctx context.Context) *domain.CartView {
	var (
		view *domain.CartView
		err  error
	)
	if c.Authenticated() {
		view, err = c.GetCart(ctx)
	} else {
		items := c.guest.Get(ctx)
		if len(items) == 0 {
			return emptyView()
		}
		view, err = c.QuoteCart(ctx, items)
	}
	if err != nil {
		c.logger.Printf("storefront: cart unavailable error=%v", err)
		return emptyView()
	}
	return view
}

// clearCarts empties the guest cart and, when logged in, the server cart.
func (c *Client) clearCarts(ctx context.Context) {
	if err := c.guest.Clear(ctx); err != nil {
		c.logger.Printf("storefront: clear guest cart error=%v", err)
	}
	if !c.Authenticated() {
		return
	}
	if err := c.do(ctx, http.MethodDelete, "/cart", nil, nil, nil); err != nil {
		c.logger.Printf("storefront: clear server cart error=%v", err)
	}
}

func emptyView() *domain.CartView {
	return &domain.CartView{Items: []domain.CartLine{}}
}

// RemoveGuestItem deletes a product variant from the guest cart.
func (c *Client) RemoveGuestItem(ctx context.Context, productID int64, size, color string) error {
	return c.guest.Remove(ctx, productID, size, color)
}

func (c *Client) ClearGuestCart(ctx context.Context) error {
	return c.guest.Clear(ctx)
}
