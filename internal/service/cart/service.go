package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"petshop/internal/cache"
	"petshop/internal/domain"
	cartrepo "petshop/internal/repository/cart"
	"petshop/internal/service/pricing"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product not found")
	ErrProductIDRequired  = errors.New("productId required")
)

type Service struct {
	repo        cartRepo
	productRepo productRepo
	policy      pricing.Policy
	cache       cache.CartCache
	logger      *log.Logger
}

type cartRepo interface {
	GetOrCreateActive(ctx context.Context, userID int64) (*domain.Cart, error)
	AddLineItems(ctx context.Context, cartID int64, lines []cartrepo.NewLine) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineID int64, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineID int64) error
	ClearLineItems(ctx context.Context, cartID int64) error
}

type productRepo interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

// New builds a cart service. A nil cache disables caching.
func New(repo cartRepo, productRepo productRepo, policy pricing.Policy, c cache.CartCache, logger *log.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, productRepo: productRepo, policy: policy, cache: c, logger: logger}
}

// Get returns the user's cart with its summary, creating an empty cart on first use.
// Lines are priced from the current catalog so the summary matches what
// checkout will charge.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.CartView, error) {
	lines, err := s.storedLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	priced, err := s.price(ctx, lines)
	if err != nil {
		return nil, err
	}
	return s.view(priced), nil
}

// storedLines reads the cart lines through the cache.
func (s *Service) storedLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached.Items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("cart service: cache get user_id=%d error=%v", userID, err)
	}

	cart, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, userID, &domain.CartView{Items: cart.Lines}); err != nil {
		s.logger.Printf("cart service: cache set user_id=%d error=%v", userID, err)
	}
	return cart.Lines, nil
}

// Add puts a product into the cart, merging with an existing line of the same
// product, size and color.
func (s *Service) Add(ctx context.Context, userID int64, in domain.CartItemInput) (*domain.CartView, error) {
	return s.Merge(ctx, userID, []domain.CartItemInput{in})
}

// Merge adds several items in one transaction. Any unknown or inactive
// product rejects the whole batch.
func (s *Service) Merge(ctx context.Context, userID int64, items []domain.CartItemInput) (*domain.CartView, error) {
	if len(items) == 0 {
		return s.Get(ctx, userID)
	}
	for _, item := range items {
		if item.ProductID <= 0 {
			return nil, ErrProductIDRequired
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}
	lines := make([]cartrepo.NewLine, 0, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || !p.Active {
			s.logger.Printf("cart service: add user_id=%d product_id=%d unavailable", userID, item.ProductID)
			return nil, ErrProductUnavailable
		}
		lines = append(lines, cartrepo.NewLine{
			Product:  p,
			Quantity: item.Quantity,
			Size:     strings.TrimSpace(item.Size),
			Color:    strings.TrimSpace(item.Color),
		})
	}

	cart, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddLineItems(ctx, cart.ID, lines); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

// ChangeQuantity sets a line's quantity. Zero or less removes the line.
func (s *Service) ChangeQuantity(ctx context.Context, userID, lineID int64, quantity int) (*domain.CartView, error) {
	cart, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ChangeLineItemQuantity(ctx, cart.ID, lineID, quantity); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

func (s *Service) RemoveLine(ctx context.Context, userID, lineID int64) (*domain.CartView, error) {
	cart, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLineItem(ctx, cart.ID, lineID); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.repo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearLineItems(ctx, cart.ID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Quote prices items that are not stored server side, such as a guest cart.
// Unknown or inactive products are left out of the result.
func (s *Service) Quote(ctx context.Context, items []domain.CartItemInput) (*domain.CartView, error) {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			s.logger.Printf("cart service: quote skip product_id=%d quantity=%d", item.ProductID, item.Quantity)
			continue
		}
		lines = append(lines, domain.CartLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
		})
	}
	priced, err := s.price(ctx, lines)
	if err != nil {
		return nil, err
	}
	return s.view(priced), nil
}

// price sets name, image and unit price of each line from the catalog.
// Lines whose product is gone or inactive are dropped.
func (s *Service) price(ctx context.Context, lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return lines, nil
	}
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok || !p.Active {
			s.logger.Printf("cart service: skip unavailable product_id=%d line_id=%d", line.ProductID, line.ID)
			continue
		}
		line.ProductName = p.Name
		line.ImageURL = p.ImageURL
		line.UnitPrice = p.Price
		out = append(out, line)
	}
	return out, nil
}

func (s *Service) refresh(ctx context.Context, userID int64) (*domain.CartView, error) {
	s.invalidate(ctx, userID)
	return s.Get(ctx, userID)
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Printf("cart service: cache delete user_id=%d error=%v", userID, err)
	}
}

func (s *Service) view(lines []domain.CartLine) *domain.CartView {
	items := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, line)
	}
	return &domain.CartView{Items: items, Summary: s.policy.Summarize(items)}
}

func productIDs(items []domain.CartItemInput) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
