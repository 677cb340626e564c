package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"petshop/internal/domain"
	"petshop/internal/service/checkout"
	ordersvc "petshop/internal/service/order"
	usersvc "petshop/internal/service/user"
)

type productService interface {
	List(ctx context.Context, categoryID *int64) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

type categoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type cartService interface {
	Get(ctx context.Context, userID int64) (*domain.CartView, error)
	Add(ctx context.Context, userID int64, in domain.CartItemInput) (*domain.CartView, error)
	Merge(ctx context.Context, userID int64, items []domain.CartItemInput) (*domain.CartView, error)
	ChangeQuantity(ctx context.Context, userID, lineID int64, quantity int) (*domain.CartView, error)
	RemoveLine(ctx context.Context, userID, lineID int64) (*domain.CartView, error)
	Clear(ctx context.Context, userID int64) error
	Quote(ctx context.Context, items []domain.CartItemInput) (*domain.CartView, error)
}

type userService interface {
	Signup(ctx context.Context, in usersvc.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	AccessTTLSeconds() int
}

type checkoutService interface {
	CreatePaymentIntent(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type orderService interface {
	Get(ctx context.Context, id int64, viewerID *int64) (*domain.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Order, error)
	Confirm(ctx context.Context, in ordersvc.ConfirmInput) (*ordersvc.ConfirmResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Deps groups the services the router exposes.
type Deps struct {
	ProductSvc  productService
	CategorySvc categoryService
	CartSvc     cartService
	UserSvc     userService
	CheckoutSvc checkoutService
	OrderSvc    orderService
}

func (d Deps) validate() error {
	switch {
	case d.ProductSvc == nil:
		return errors.New("product service required")
	case d.CategorySvc == nil:
		return errors.New("category service required")
	case d.CartSvc == nil:
		return errors.New("cart service required")
	case d.UserSvc == nil:
		return errors.New("user service required")
	case d.CheckoutSvc == nil:
		return errors.New("checkout service required")
	case d.OrderSvc == nil:
		return errors.New("order service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, allowedOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", idempotencyHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	auth := &authHandler{svc: deps.UserSvc, logger: logger}
	router.POST("/auth/signup", auth.signup)
	router.POST("/auth/login", auth.login)

	catalog := &catalogHandler{products: deps.ProductSvc, categories: deps.CategorySvc}
	router.GET("/products", catalog.listProducts)
	router.GET("/products/:id", catalog.getProduct)
	router.GET("/categories", catalog.listCategories)

	carts := &cartHandler{svc: deps.CartSvc}
	router.POST("/cart/quote", carts.quote)
	cartGroup := router.Group("/cart", requireUser(deps.UserSvc))
	cartGroup.GET("", carts.get)
	cartGroup.POST("", carts.add)
	cartGroup.DELETE("", carts.clear)
	cartGroup.POST("/merge", carts.merge)
	cartGroup.PATCH("/items/:lineId", carts.changeQuantity)
	cartGroup.DELETE("/items/:lineId", carts.removeLine)

	payments := &paymentHandler{checkout: deps.CheckoutSvc, orders: deps.OrderSvc, logger: logger}
	router.POST("/payments/create-payment-intent", optionalUser(deps.UserSvc), payments.createIntent)
	router.POST("/payments/confirm", optionalUser(deps.UserSvc), payments.confirm)
	router.POST("/payments/webhook", payments.webhook)

	orders := &orderHandler{svc: deps.OrderSvc}
	router.GET("/orders", requireUser(deps.UserSvc), orders.list)
	router.GET("/orders/:id", optionalUser(deps.UserSvc), orders.get)

	return router, nil
}
