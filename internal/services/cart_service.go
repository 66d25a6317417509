package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartUnavailable indicates the cart service cannot fulfil the request.
	ErrCartUnavailable = errors.New("cart service: unavailable")

	errCartStoreRequired = errors.New("cart service: store is required")
)

// CartServiceDeps wires the persistence and ambient dependencies for the cart.
type CartServiceDeps struct {
	Store       repositories.CartStore
	StorageKey  string
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	store  repositories.CartStore
	key    string
	newID  func() string
	logger func(context.Context, string, map[string]any)

	mu    sync.Mutex
	state domain.CartState
}

// NewCartService constructs a CartService starting from the empty cart.
// Callers hydrate persisted state with Load once at session start.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Store == nil {
		return nil, errCartStoreRequired
	}

	key := strings.TrimSpace(deps.StorageKey)
	if key == "" {
		key = repositories.DefaultCartKey
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		store:  deps.Store,
		key:    key,
		newID:  idGen,
		logger: logger,
		state:  domain.EmptyCartState(),
	}, nil
}

// State returns a defensive copy of the current cart snapshot.
func (s *cartService) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCartState(s.state)
}

// AddItem merges the candidate into an existing line with the same product,
// size, and topping set, or appends a fresh line with quantity 1.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (domain.CartState, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.CartState{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if !domain.ValidSize(cmd.Size) {
		return domain.CartState{}, fmt.Errorf("%w: size must be one of S, M, L", ErrCartInvalidInput)
	}
	if cmd.UnitPrice < 0 {
		return domain.CartState{}, fmt.Errorf("%w: price must be non-negative", ErrCartInvalidInput)
	}
	for _, topping := range cmd.Toppings {
		if topping.Price < 0 {
			return domain.CartState{}, fmt.Errorf("%w: topping price must be non-negative", ErrCartInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := cloneCartItems(s.state.Items)
	toppings := normaliseToppings(cmd.Toppings)
	key := toppingSetKey(toppings)

	idx := indexOfMatchingItem(items, productID, cmd.Size, key)
	if idx >= 0 {
		items[idx].Quantity++
	} else {
		items = append(items, domain.CartItem{
			ID:               s.newItemID(productID, cmd.Size, key),
			ProductID:        productID,
			ProductVariantID: strings.TrimSpace(cmd.ProductVariantID),
			Name:             strings.TrimSpace(cmd.Name),
			ImageURL:         strings.TrimSpace(cmd.ImageURL),
			UnitPrice:        cmd.UnitPrice,
			Size:             cmd.Size,
			Quantity:         1,
			Toppings:         toppings,
		})
	}

	s.commit(ctx, items)
	return cloneCartState(s.state), nil
}

// UpdateItem applies the provided fields to the identified line. Unknown ids
// are a no-op. A resulting quantity at or below zero drops the line. If the
// edit makes the line collide with another, the two lines merge.
func (s *cartService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (domain.CartState, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return domain.CartState{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}
	if cmd.Size != nil && !domain.ValidSize(*cmd.Size) {
		return domain.CartState{}, fmt.Errorf("%w: size must be one of S, M, L", ErrCartInvalidInput)
	}
	if cmd.Toppings != nil {
		for _, topping := range *cmd.Toppings {
			if topping.Price < 0 {
				return domain.CartState{}, fmt.Errorf("%w: topping price must be non-negative", ErrCartInvalidInput)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := cloneCartItems(s.state.Items)
	idx := indexOfCartItem(items, itemID)
	if idx < 0 {
		return cloneCartState(s.state), nil
	}

	if cmd.Quantity != nil {
		items[idx].Quantity = *cmd.Quantity
	}
	if cmd.Size != nil {
		items[idx].Size = *cmd.Size
	}
	if cmd.Toppings != nil {
		items[idx].Toppings = normaliseToppings(*cmd.Toppings)
	}

	if items[idx].Quantity <= 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		items = mergeDuplicateOf(items, idx)
	}

	s.commit(ctx, items)
	return cloneCartState(s.state), nil
}

// RemoveItem drops the identified line if present.
func (s *cartService) RemoveItem(ctx context.Context, itemID string) (domain.CartState, error) {
	target := strings.TrimSpace(itemID)
	if target == "" {
		return domain.CartState{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := cloneCartItems(s.state.Items)
	idx := indexOfCartItem(items, target)
	if idx >= 0 {
		items = append(items[:idx], items[idx+1:]...)
	}

	s.commit(ctx, items)
	return cloneCartState(s.state), nil
}

// Clear resets the cart to the empty state, used on logout or explicit clear.
func (s *cartService) Clear(ctx context.Context) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commit(ctx, []domain.CartItem{})
	return cloneCartState(s.state), nil
}

// Load hydrates the cart from durable storage. Missing or corrupted records
// leave the cart empty; the stored snapshot is otherwise validated and its
// aggregates recomputed rather than trusted.
func (s *cartService) Load(ctx context.Context) (domain.CartState, error) {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if repositories.IsNotFound(err) {
			return s.State(), nil
		}
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}

	var stored domain.CartState
	if unmarshalErr := json.Unmarshal([]byte(raw), &stored); unmarshalErr != nil {
		s.logger(ctx, "cart.restore_corrupt", map[string]any{"error": unmarshalErr.Error()})
		return s.State(), nil
	}

	items := make([]domain.CartItem, 0, len(stored.Items))
	for _, item := range stored.Items {
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.ProductID) == "" {
			continue
		}
		if item.Quantity <= 0 || item.UnitPrice < 0 || !domain.ValidSize(item.Size) {
			continue
		}
		item.Toppings = normaliseToppings(item.Toppings)
		items = append(items, item)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, items)
	return cloneCartState(s.state), nil
}

// commit replaces the item list, recomputes the derived aggregates, and writes
// the snapshot to storage after the in-memory update. Persistence failures are
// logged, never surfaced: the in-memory cart stays authoritative.
func (s *cartService) commit(ctx context.Context, items []domain.CartItem) {
	count, total := domain.Aggregate(items)
	s.state = domain.CartState{Items: items, ItemCount: count, Total: total}

	payload, err := json.Marshal(s.state)
	if err != nil {
		s.logger(ctx, "cart.persist_encode_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.store.Set(ctx, s.key, string(payload)); err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{"error": err.Error()})
	}
}

func (s *cartService) newItemID(productID string, size domain.Size, toppingKey string) string {
	parts := []string{productID, string(size)}
	if toppingKey != "" {
		parts = append(parts, toppingKey)
	}
	parts = append(parts, s.newID())
	return strings.Join(parts, ":")
}

func indexOfCartItem(items []domain.CartItem, itemID string) int {
	for i, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.ID), itemID) {
			return i
		}
	}
	return -1
}

func indexOfMatchingItem(items []domain.CartItem, productID string, size domain.Size, toppingKey string) int {
	for i, item := range items {
		if !strings.EqualFold(strings.TrimSpace(item.ProductID), productID) {
			continue
		}
		if item.Size != size {
			continue
		}
		if toppingSetKey(item.Toppings) != toppingKey {
			continue
		}
		return i
	}
	return -1
}

// mergeDuplicateOf folds items[idx] into an earlier or later line that now has
// the same product, size, and topping set, keeping the older line's position
// and id and adding the quantities.
func mergeDuplicateOf(items []domain.CartItem, idx int) []domain.CartItem {
	edited := items[idx]
	key := toppingSetKey(edited.Toppings)
	for i, item := range items {
		if i == idx {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(item.ProductID), strings.TrimSpace(edited.ProductID)) {
			continue
		}
		if item.Size != edited.Size || toppingSetKey(item.Toppings) != key {
			continue
		}
		// The earlier line survives in place; only quantity moves over.
		keep, drop := i, idx
		if idx < i {
			keep, drop = idx, i
		}
		items[keep].Quantity = item.Quantity + edited.Quantity
		return append(items[:drop], items[drop+1:]...)
	}
	return items
}

func toppingSetKey(toppings []domain.Topping) string {
	if len(toppings) == 0 {
		return ""
	}
	ids := make([]string, 0, len(toppings))
	seen := make(map[string]struct{}, len(toppings))
	for _, topping := range toppings {
		id := strings.TrimSpace(topping.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	// Join with the unit separator so distinct sets never collide the way
	// a printable separator would (["a+b"] vs ["a","b"]).
	return strings.Join(ids, "\x1f")
}

func normaliseToppings(toppings []domain.Topping) []domain.Topping {
	if len(toppings) == 0 {
		return []domain.Topping{}
	}
	out := make([]domain.Topping, 0, len(toppings))
	seen := make(map[string]struct{}, len(toppings))
	for _, topping := range toppings {
		topping.ID = strings.TrimSpace(topping.ID)
		topping.Name = strings.TrimSpace(topping.Name)
		if topping.ID == "" {
			continue
		}
		if _, dup := seen[topping.ID]; dup {
			continue
		}
		seen[topping.ID] = struct{}{}
		out = append(out, topping)
	}
	return out
}

func cloneCartItems(items []domain.CartItem) []domain.CartItem {
	dup := make([]domain.CartItem, len(items))
	copy(dup, items)
	for i := range dup {
		toppings := make([]domain.Topping, len(dup[i].Toppings))
		copy(toppings, dup[i].Toppings)
		dup[i].Toppings = toppings
	}
	return dup
}

func cloneCartState(state domain.CartState) domain.CartState {
	return domain.CartState{
		Items:     cloneCartItems(state.Items),
		ItemCount: state.ItemCount,
		Total:     state.Total,
	}
}
