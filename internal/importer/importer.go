package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"petshop/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, category domain.Category) (*domain.Category, error)
}

// Kind is the type of rows a CSV file holds.
type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
)

// DetectKind peeks at the header row: a file with a sku column holds products,
// one with key and name but no sku holds categories.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(r).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; ok {
		return KindProducts, nil
	}
	_, hasKey := index["key"]
	_, hasName := index["name"]
	if hasKey && hasName {
		return KindCategories, nil
	}
	return "", errors.New("unrecognised csv headers")
}

// CSVImporter reads product or category CSV files and upserts their rows.
type CSVImporter struct {
	reader       *csv.Reader
	productRepo  ProductWriter
	categoryRepo CategoryWriter
	currency     string
	categoryIDs  map[string]int64
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter, defaultCurrency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &CSVImporter{
		reader:       csvr,
		productRepo:  products,
		categoryRepo: categories,
		currency:     strings.ToLower(defaultCurrency),
		categoryIDs:  make(map[string]int64),
	}
}

// Run imports every row and returns how many were saved.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	_, isProducts := index["sku"]
	if isProducts && i.productRepo == nil {
		return 0, errors.New("product writer required")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		if isProducts {
			err = i.saveProduct(ctx, record, index)
		} else {
			err = i.saveCategory(ctx, record, index)
		}
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) saveProduct(ctx context.Context, record []string, index map[string]int) error {
	sku := pick(record, index, "sku")
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price")
	if sku == "" || name == "" || priceStr == "" {
		return fmt.Errorf("invalid product row (missing sku, name or price) for sku %q", sku)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price %q for sku %q", priceStr, sku)
	}

	active := true
	if raw := pick(record, index, "active"); raw != "" {
		active, err = strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid active flag %q for sku %q", raw, sku)
		}
	}
	currency := strings.ToLower(pick(record, index, "currency"))
	if currency == "" {
		currency = i.currency
	}

	p := domain.Product{
		SKU:         sku,
		Name:        name,
		Description: pick(record, index, "description"),
		Price:       price.Round(2),
		Currency:    currency,
		ImageURL:    pick(record, index, "image_url"),
		Active:      active,
	}
	if key := pick(record, index, "category"); key != "" {
		id, err := i.categoryID(ctx, key)
		if err != nil {
			return err
		}
		p.CategoryID = &id
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", sku, err)
	}
	return nil
}

func (i *CSVImporter) saveCategory(ctx context.Context, record []string, index map[string]int) error {
	key := pick(record, index, "key")
	name := pick(record, index, "name")
	slug := pick(record, index, "slug")
	if key == "" {
		key = slug
	}
	if key == "" || name == "" {
		return fmt.Errorf("invalid category row (missing key or name)")
	}
	if slug == "" {
		slug = key
	}
	saved, err := i.upsertCategory(ctx, domain.Category{Key: key, Name: name, Slug: slug})
	if err != nil {
		return err
	}
	i.categoryIDs[saved.Key] = saved.ID
	return nil
}

// categoryID resolves a category key, creating the category when the file
// references one that was not imported yet.
func (i *CSVImporter) categoryID(ctx context.Context, key string) (int64, error) {
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	saved, err := i.upsertCategory(ctx, domain.Category{Key: key, Name: titleFromKey(key), Slug: key})
	if err != nil {
		return 0, err
	}
	i.categoryIDs[key] = saved.ID
	return saved.ID, nil
}

func (i *CSVImporter) upsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	if i.categoryRepo == nil {
		return nil, errors.New("category writer required")
	}
	saved, err := i.categoryRepo.Upsert(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("upsert category %q: %w", c.Key, err)
	}
	return saved, nil
}

func titleFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for n, w := range words {
		words[n] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
