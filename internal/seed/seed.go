package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type categorySeed struct {
	Key  string
	Name string
}

type productSeed struct {
	SKU         string
	Category    string
	Name        string
	Description string
	Price       string
	ImageURL    string
}

var categories = []categorySeed{
	{Key: "dogs", Name: "Dogs"},
	{Key: "cats", Name: "Cats"},
	{Key: "fish", Name: "Fish & Aquarium"},
	{Key: "birds", Name: "Birds"},
}

var products = []productSeed{
	{SKU: "DOG-KIBBLE-5KG", Category: "dogs", Name: "Grain-Free Dog Kibble 5kg", Description: "Chicken and sweet potato recipe for adult dogs", Price: "24.99", ImageURL: "/img/dog-kibble.jpg"},
	{SKU: "DOG-LEASH-RED", Category: "dogs", Name: "Nylon Leash", Description: "1.5m leash with padded handle", Price: "12.50", ImageURL: "/img/leash.jpg"},
	{SKU: "DOG-BED-M", Category: "dogs", Name: "Orthopedic Dog Bed", Description: "Memory foam bed, medium", Price: "49.00", ImageURL: "/img/dog-bed.jpg"},
	{SKU: "CAT-LITTER-10L", Category: "cats", Name: "Clumping Cat Litter 10L", Description: "Low dust, unscented", Price: "9.99", ImageURL: "/img/litter.jpg"},
	{SKU: "CAT-WAND", Category: "cats", Name: "Feather Wand Toy", Description: "Interactive teaser toy", Price: "5.00", ImageURL: "/img/wand.jpg"},
	{SKU: "CAT-TREE-120", Category: "cats", Name: "Cat Tree 120cm", Description: "Sisal scratching posts and two platforms", Price: "79.90", ImageURL: "/img/cat-tree.jpg"},
	{SKU: "FISH-FLAKES", Category: "fish", Name: "Tropical Fish Flakes", Description: "Daily food for tropical fish", Price: "6.49", ImageURL: "/img/flakes.jpg"},
	{SKU: "FISH-FILTER-40", Category: "fish", Name: "Aquarium Filter 40L", Description: "Internal filter for tanks up to 40 litres", Price: "29.95", ImageURL: "/img/filter.jpg"},
	{SKU: "BIRD-SEED-2KG", Category: "birds", Name: "Budgie Seed Mix 2kg", Description: "Millet blend for small parrots", Price: "8.75", ImageURL: "/img/seed.jpg"},
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	ids := make(map[string]int64, len(categories))
	for _, c := range categories {
		id, err := upsertCategory(ctx, pool, c)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Key, err)
		}
		ids[c.Key] = id
	}

	for _, p := range products {
		categoryID, ok := ids[p.Category]
		if !ok {
			return fmt.Errorf("product %s: unknown category %s", p.SKU, p.Category)
		}
		if err := upsertProduct(ctx, pool, categoryID, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	return nil
}

func upsertCategory(ctx context.Context, pool *pgxpool.Pool, c categorySeed) (int64, error) {
	const q = `
INSERT INTO categories (key, name, slug)
VALUES ($1, $2, $1)
ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`
	var id int64
	if err := pool.QueryRow(ctx, q, c.Key, c.Name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, categoryID int64, p productSeed) error {
	const q = `
INSERT INTO products (category_id, sku, name, description, price, currency, image_url, active)
VALUES ($1, $2, $3, $4, $5::numeric, 'usd', $6, TRUE)
ON CONFLICT (sku) DO UPDATE
SET category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    image_url = EXCLUDED.image_url
`
	_, err := pool.Exec(ctx, q, categoryID, p.SKU, p.Name, p.Description, p.Price, p.ImageURL)
	return err
}
