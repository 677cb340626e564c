package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"petshop/internal/cache"
	"petshop/internal/config"
	"petshop/internal/db"
	"petshop/internal/httpserver"
	"petshop/internal/payment"
	cartrepo "petshop/internal/repository/cart"
	categoryrepo "petshop/internal/repository/category"
	orderrepo "petshop/internal/repository/order"
	productrepo "petshop/internal/repository/product"
	tokenrepo "petshop/internal/repository/token"
	userrepo "petshop/internal/repository/user"
	cartsvc "petshop/internal/service/cart"
	categorysvc "petshop/internal/service/category"
	checkoutsvc "petshop/internal/service/checkout"
	ordersvc "petshop/internal/service/order"
	"petshop/internal/service/pricing"
	productsvc "petshop/internal/service/product"
	usersvc "petshop/internal/service/user"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var cartCache cache.CartCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis not reachable addr=%s error=%v, cart cache disabled", cfg.RedisAddr, err)
		} else {
			cartCache = cache.NewRedisCache(rdb, cfg.CartCacheTTL)
		}
	}

	processor, err := payment.New(cfg.PaymentProvider, payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, payment.GuardOptions{
		Timeout: cfg.PaymentTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("init payment processor: %v", err)
	}

	policy := pricing.Policy{
		ShippingFee:           cfg.ShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool))
	cartService := cartsvc.New(cartrepo.NewPostgres(dbpool, logger), productRepo, policy, cartCache, logger)
	userService := usersvc.New(userrepo.NewPostgres(dbpool, logger), tokenrepo.NewPostgres(dbpool))
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	checkoutService := checkoutsvc.New(orderRepo, productRepo, processor, policy, cfg.DefaultCurrency, logger)
	orderService := ordersvc.New(orderRepo, processor, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:  productService,
		CategorySvc: categoryService,
		CartSvc:     cartService,
		UserSvc:     userService,
		CheckoutSvc: checkoutService,
		OrderSvc:    orderService,
	}, cfg.CORSAllowedOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s payment_provider=%s", cfg.HTTPAddr, cfg.PaymentProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
