// Package guestcart keeps the cart of a visitor who is not logged in.
package guestcart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"petshop/internal/domain"
)

// Key is the storage key the cart is kept under.
const Key = "guest_cart"

// Item is one guest cart entry. It is identified by product, size and color.
type Item = domain.CartItemInput

// Store reads and writes the guest cart through a Storage. Writers in other
// processes are not coordinated; the last write wins.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *log.Logger
}

func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{storage: storage, logger: logger}
}

// Get returns the stored items in insertion order. Missing or unreadable data
// yields an empty cart.
func (s *Store) Get(ctx context.Context) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add increments the quantity of the matching entry or appends a new one.
// A quantity below one counts as one.
func (s *Store) Add(ctx context.Context, productID int64, quantity int, size, color string) error {
	if productID <= 0 {
		return fmt.Errorf("productId required")
	}
	if quantity <= 0 {
		quantity = 1
	}
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.load(ctx)
	for i := range items {
		if matches(items[i], productID, size, color) {
			items[i].Quantity += quantity
			return s.save(ctx, items)
		}
	}
	items = append(items, Item{ProductID: productID, Quantity: quantity, Size: size, Color: color})
	return s.save(ctx, items)
}

// Remove deletes every entry for the product, size and color.
func (s *Store) Remove(ctx context.Context, productID int64, size, color string) error {
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.load(ctx)
	kept := items[:0]
	for _, item := range items {
		if !matches(item, productID, size, color) {
			kept = append(kept, item)
		}
	}
	return s.save(ctx, kept)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

// Replace overwrites the cart with items in a single write.
func (s *Store) Replace(ctx context.Context, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, items)
}

func (s *Store) load(ctx context.Context) []Item {
	data, err := s.storage.Load(ctx, Key)
	if err != nil {
		s.logger.Printf("guest cart: load error=%v", err)
		return []Item{}
	}
	if len(data) == 0 {
		return []Item{}
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Printf("guest cart: malformed data error=%v", err)
		return []Item{}
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

func (s *Store) save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal guest cart: %w", err)
	}
	if err := s.storage.Save(ctx, Key, data); err != nil {
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}

func matches(item Item, productID int64, size, color string) bool {
	return item.ProductID == productID && item.Size == size && item.Color == color
}
