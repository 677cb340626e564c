package httpserver

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/gin-gonic/gin"

	"petshop/internal/domain"
	"petshop/internal/service/checkout"
	ordersvc "petshop/internal/service/order"
	usersvc "petshop/internal/service/user"
)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubProductService struct {
	products []domain.Product
	err      error
}

func (s *stubProductService) List(_ context.Context, _ *int64) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Get(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubCategoryService struct{}

func (s *stubCategoryService) List(_ context.Context) ([]domain.Category, error) {
	return nil, nil
}

type stubCartService struct {
	view      *domain.CartView
	err       error
	lastUser  int64
	lastItems []domain.CartItemInput
	cleared   bool
}

func (s *stubCartService) Get(_ context.Context, userID int64) (*domain.CartView, error) {
	s.lastUser = userID
	return s.view, s.err
}

func (s *stubCartService) Add(_ context.Context, userID int64, in domain.CartItemInput) (*domain.CartView, error) {
	s.lastUser = userID
	s.lastItems = []domain.CartItemInput{in}
	return s.view, s.err
}

func (s *stubCartService) Merge(_ context.Context, userID int64, items []domain.CartItemInput) (*domain.CartView, error) {
	s.lastUser = userID
	s.lastItems = items
	return s.view, s.err
}

func (s *stubCartService) ChangeQuantity(_ context.Context, userID, _ int64, _ int) (*domain.CartView, error) {
	s.lastUser = userID
	return s.view, s.err
}

func (s *stubCartService) RemoveLine(_ context.Context, userID, _ int64) (*domain.CartView, error) {
	s.lastUser = userID
	return s.view, s.err
}

func (s *stubCartService) Clear(_ context.Context, userID int64) error {
	s.lastUser = userID
	s.cleared = true
	return s.err
}

func (s *stubCartService) Quote(_ context.Context, items []domain.CartItemInput) (*domain.CartView, error) {
	s.lastItems = items
	return s.view, s.err
}

// stubUserService accepts the token "good" for user.
type stubUserService struct {
	user     *domain.User
	loginErr error
	signErr  error
}

func (s *stubUserService) Signup(_ context.Context, in usersvc.SignupInput) (*domain.User, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	return &domain.User{ID: 1, Email: in.Email}, nil
}

func (s *stubUserService) Login(_ context.Context, _, _ string) (*domain.User, string, error) {
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	return s.user, "good", nil
}

func (s *stubUserService) LookupByToken(_ context.Context, token string) (*domain.User, error) {
	if token != "good" || s.user == nil {
		return nil, usersvc.ErrInvalidToken
	}
	return s.user, nil
}

func (s *stubUserService) AccessTTLSeconds() int {
	return 3600
}

type stubCheckoutService struct {
	res     *checkout.Result
	err     error
	lastReq checkout.Request
}

func (s *stubCheckoutService) CreatePaymentIntent(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	s.lastReq = req
	return s.res, s.err
}

type stubOrderService struct {
	order       *domain.Order
	orders      []domain.Order
	err         error
	confirm     *ordersvc.ConfirmResult
	lastViewer  *int64
	lastConfirm ordersvc.ConfirmInput
	webhookSig  string
}

func (s *stubOrderService) Get(_ context.Context, _ int64, viewerID *int64) (*domain.Order, error) {
	s.lastViewer = viewerID
	return s.order, s.err
}

func (s *stubOrderService) ListForUser(_ context.Context, _ int64) ([]domain.Order, error) {
	return s.orders, s.err
}

func (s *stubOrderService) Confirm(_ context.Context, in ordersvc.ConfirmInput) (*ordersvc.ConfirmResult, error) {
	s.lastConfirm = in
	return s.confirm, s.err
}

func (s *stubOrderService) HandleWebhook(_ context.Context, _ []byte, signature string) error {
	s.webhookSig = signature
	return s.err
}

func defaultDeps() Deps {
	return Deps{
		ProductSvc:  &stubProductService{},
		CategorySvc: &stubCategoryService{},
		CartSvc:     &stubCartService{view: &domain.CartView{Items: []domain.CartLine{}}},
		UserSvc:     &stubUserService{user: &domain.User{ID: 7, Email: "ana@example.com"}},
		CheckoutSvc: &stubCheckoutService{},
		OrderSvc:    &stubOrderService{},
	}
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(logDiscard(), nil, deps, []string{"http://localhost:5173"})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}
