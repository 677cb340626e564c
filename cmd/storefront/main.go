package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"petshop/internal/config"
	"petshop/internal/domain"
	"petshop/internal/guestcart"
	"petshop/internal/storefront"
)

const usage = `usage: storefront [-api URL] [-token TOKEN] [-session ID] <command> [flags]

commands:
  show                      print the current cart with totals
  add -product N [-qty N] [-size S] [-color C]
  remove -product N [-size S] [-color C]
  clear                     empty the guest cart
  login -email E -password P
  checkout -user N -address A -city C -state S -zip Z -phone P -card PM [-name N] [-email E]
  receipt -order ID
`

func main() {
	cfg := config.Load()
	logger := log.New(os.Stderr, "[storefront] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	global := flag.NewFlagSet("storefront", flag.ExitOnError)
	apiURL := global.String("api", cfg.APIBaseURL, "API base URL")
	token := global.String("token", os.Getenv("PETSHOP_TOKEN"), "bearer token of a logged in user")
	session := global.String("session", "", "guest session id; stores the guest cart in Redis when REDIS_ADDR is set")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	storage, err := guestStorage(cfg, *session)
	if err != nil {
		logger.Fatalf("guest cart storage: %v", err)
	}
	client := storefront.New(storefront.Config{BaseURL: *apiURL, Token: *token}, guestcart.NewStore(storage, logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, client, global.Arg(0), global.Args()[1:]); err != nil {
		logger.Fatalf("%s: %v", global.Arg(0), err)
	}
}

func guestStorage(cfg config.Config, session string) (guestcart.Storage, error) {
	if cfg.RedisAddr != "" && session != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return guestcart.NewRedisStorage(rdb, session, 30*24*time.Hour), nil
	}
	return guestcart.NewFileStorage(cfg.GuestCartDir)
}

func run(ctx context.Context, client *storefront.Client, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "show":
		return printJSON(client.CartView(ctx))

	case "add":
		product := fs.Int64("product", 0, "product id")
		qty := fs.Int("qty", 1, "quantity")
		size := fs.String("size", "", "size")
		color := fs.String("color", "", "color")
		_ = fs.Parse(args)
		if err := client.Add(ctx, domain.CartItemInput{ProductID: *product, Quantity: *qty, Size: *size, Color: *color}); err != nil {
			return err
		}
		return printJSON(client.CartView(ctx))

	case "remove":
		product := fs.Int64("product", 0, "product id")
		size := fs.String("size", "", "size")
		color := fs.String("color", "", "color")
		_ = fs.Parse(args)
		return client.RemoveGuestItem(ctx, *product, *size, *color)

	case "clear":
		return client.ClearGuestCart(ctx)

	case "login":
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		user, err := client.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s\nexport PETSHOP_TOKEN=%s\n", user.Email, client.Token())
		return nil

	case "checkout":
		form := storefront.ShippingForm{}
		fs.Int64Var(&form.UserID, "user", 0, "user id")
		fs.StringVar(&form.Address, "address", "", "shipping address")
		fs.StringVar(&form.City, "city", "", "city")
		fs.StringVar(&form.State, "state", "", "state")
		fs.StringVar(&form.ZipCode, "zip", "", "zip code")
		fs.StringVar(&form.Phone, "phone", "", "phone")
		fs.StringVar(&form.BillingName, "name", "", "billing name")
		fs.StringVar(&form.BillingEmail, "email", "", "billing email")
		card := fs.String("card", "", "payment method token, e.g. pm_card_visa")
		_ = fs.Parse(args)

		sub, err := client.Submit(ctx, form)
		if err != nil {
			return err
		}
		fmt.Printf("order %s (id %d) total %s\n", sub.OrderNumber, sub.OrderID, sub.Total.StringFixed(2))
		orderID, err := client.Confirm(ctx, sub, *card)
		if errors.Is(err, storefront.ErrConfirmationAborted) {
			fmt.Println("payment not confirmed: no card given")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("payment succeeded, see: storefront receipt -order %d\n", orderID)
		return nil

	case "receipt":
		id := fs.String("order", "", "order id")
		_ = fs.Parse(args)
		order, err := client.Receipt(ctx, *id)
		if errors.Is(err, storefront.ErrRedirect) {
			fmt.Println("order not available")
			return nil
		}
		if err != nil {
			return err
		}
		return printJSON(order)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
