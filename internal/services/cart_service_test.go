package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/repositories"
)

type stubCartStore struct {
	getFunc func(ctx context.Context, key string) (string, error)
	setFunc func(ctx context.Context, key string, value string) error

	sets []string
}

func (s *stubCartStore) Get(ctx context.Context, key string) (string, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, key)
	}
	return "", repositories.NewNotFoundError("stub: not found")
}

func (s *stubCartStore) Set(ctx context.Context, key string, value string) error {
	s.sets = append(s.sets, value)
	if s.setFunc != nil {
		return s.setFunc(ctx, key, value)
	}
	return nil
}

func newTestCartService(t *testing.T, store repositories.CartStore) CartService {
	t.Helper()
	seq := 0
	service, err := NewCartService(CartServiceDeps{
		Store: store,
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("ulid-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func latteCommand() AddItemCommand {
	return AddItemCommand{
		ProductID:        "1",
		ProductVariantID: "11",
		Name:             "Latte",
		UnitPrice:        20000,
		Size:             domain.SizeS,
	}
}

func verifyAggregates(t *testing.T, state domain.CartState) {
	t.Helper()
	count, total := domain.Aggregate(state.Items)
	if state.ItemCount != count {
		t.Fatalf("item count %d does not match recomputed %d", state.ItemCount, count)
	}
	if state.Total != total {
		t.Fatalf("total %d does not match recomputed %d", state.Total, total)
	}
}

func TestCartServiceAddItemTwiceMergesIntoOneLine(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, latteCommand()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(state.Items))
	}
	if state.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", state.Items[0].Quantity)
	}
	if state.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", state.ItemCount)
	}
	if state.Total != 40000 {
		t.Fatalf("expected total 40000, got %d", state.Total)
	}
	verifyAggregates(t, state)
}

func TestCartServiceAddItemDistinctToppingsStayDistinct(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	first := latteCommand()
	first.Size = domain.SizeM
	first.Toppings = []domain.Topping{{ID: "t1", Name: "Pearl", Price: 5000}}
	second := latteCommand()
	second.Size = domain.SizeM
	second.Toppings = []domain.Topping{{ID: "t2", Name: "Cheese foam", Price: 10000}}

	if _, err := service.AddItem(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.AddItem(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 2 {
		t.Fatalf("expected 2 distinct lines, got %d", len(state.Items))
	}
	if state.Items[0].ID == state.Items[1].ID {
		t.Fatalf("expected distinct line ids")
	}
	verifyAggregates(t, state)
}

func TestCartServiceAddItemSeparatorLookalikeToppingsStayDistinct(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	first := latteCommand()
	first.Toppings = []domain.Topping{{ID: "a+b", Name: "Combo", Price: 15000}}
	second := latteCommand()
	second.Toppings = []domain.Topping{{ID: "a", Price: 5000}, {ID: "b", Price: 10000}}

	if _, err := service.AddItem(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.AddItem(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 2 {
		t.Fatalf("expected topping sets [a+b] and [a b] kept apart, got %d lines", len(state.Items))
	}
	verifyAggregates(t, state)
}

func TestCartServiceAddItemToppingOrderIrrelevantForMerge(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	first := latteCommand()
	first.Toppings = []domain.Topping{{ID: "t1", Price: 5000}, {ID: "t2", Price: 10000}}
	second := latteCommand()
	second.Toppings = []domain.Topping{{ID: "t2", Price: 10000}, {ID: "t1", Price: 5000}}

	if _, err := service.AddItem(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.AddItem(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected topping order to be irrelevant, got %d lines", len(state.Items))
	}
	if state.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", state.Items[0].Quantity)
	}
}

func TestCartServiceAddItemValidatesInput(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	cases := []AddItemCommand{
		{ProductID: " ", Size: domain.SizeS, UnitPrice: 1000},
		{ProductID: "1", Size: "XL", UnitPrice: 1000},
		{ProductID: "1", Size: domain.SizeS, UnitPrice: -1},
		{ProductID: "1", Size: domain.SizeS, UnitPrice: 1000, Toppings: []domain.Topping{{ID: "t", Price: -5}}},
	}
	for i, cmd := range cases {
		if _, err := service.AddItem(ctx, cmd); !errors.Is(err, ErrCartInvalidInput) {
			t.Fatalf("case %d: expected ErrCartInvalidInput, got %v", i, err)
		}
	}
}

func TestCartServiceUpdateItemDropsLineOnZeroQuantity(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	state, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	itemID := state.Items[0].ID

	zero := 0
	state, err = service.UpdateItem(ctx, UpdateItemCommand{ItemID: itemID, Quantity: &zero})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 0 || state.ItemCount != 0 || state.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
}

func TestCartServiceUpdateItemDropsLineOnNegativeQuantity(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	state, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	negative := -1
	state, err = service.UpdateItem(ctx, UpdateItemCommand{ItemID: state.Items[0].ID, Quantity: &negative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 0 {
		t.Fatalf("expected item dropped, got %d lines", len(state.Items))
	}
}

func TestCartServiceUpdateItemUnknownIDIsNoOp(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	before, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	five := 5
	after, err := service.UpdateItem(ctx, UpdateItemCommand{ItemID: "missing", Quantity: &five})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.ItemCount != before.ItemCount || after.Total != before.Total || len(after.Items) != len(before.Items) {
		t.Fatalf("expected state unchanged, before=%+v after=%+v", before, after)
	}
}

func TestCartServiceUpdateItemKeepsUnsetFields(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	cmd := latteCommand()
	cmd.Toppings = []domain.Topping{{ID: "t1", Name: "Pearl", Price: 5000}}
	state, err := service.AddItem(ctx, cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	itemID := state.Items[0].ID

	three := 3
	state, err = service.UpdateItem(ctx, UpdateItemCommand{ItemID: itemID, Quantity: &three})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := state.Items[0]
	if item.ID != itemID {
		t.Fatalf("expected stable id across quantity updates, got %q", item.ID)
	}
	if item.Quantity != 3 || item.Size != domain.SizeS || len(item.Toppings) != 1 {
		t.Fatalf("expected unset fields preserved, got %+v", item)
	}
	if state.Total != 3*25000 {
		t.Fatalf("expected total 75000, got %d", state.Total)
	}
}

func TestCartServiceUpdateItemMergesResultingDuplicate(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	small := latteCommand()
	medium := latteCommand()
	medium.Size = domain.SizeM

	state, err := service.AddItem(ctx, small)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstID := state.Items[0].ID
	state, err = service.AddItem(ctx, medium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondID := state.Items[1].ID

	// Resize the M line down to S: it now collides with the first line.
	sizeS := domain.SizeS
	state, err = service.UpdateItem(ctx, UpdateItemCommand{ItemID: secondID, Size: &sizeS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(state.Items))
	}
	if state.Items[0].ID != firstID {
		t.Fatalf("expected the earlier line to survive, got %q", state.Items[0].ID)
	}
	if state.Items[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %d", state.Items[0].Quantity)
	}
	verifyAggregates(t, state)
}

func TestCartServiceRemoveItem(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	state, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err = service.RemoveItem(ctx, state.Items[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 0 || state.ItemCount != 0 || state.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
}

func TestCartServiceClearResetsState(t *testing.T) {
	store := &stubCartStore{}
	service := newTestCartService(t, store)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, latteCommand()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 0 || state.ItemCount != 0 || state.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
	if len(store.sets) == 0 {
		t.Fatalf("expected the cleared state persisted")
	}
	var persisted domain.CartState
	if err := json.Unmarshal([]byte(store.sets[len(store.sets)-1]), &persisted); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if len(persisted.Items) != 0 {
		t.Fatalf("expected persisted empty cart, got %+v", persisted)
	}
}

func TestCartServicePersistsAfterEveryMutation(t *testing.T) {
	store := &stubCartStore{}
	service := newTestCartService(t, store)
	ctx := context.Background()

	state, err := service.AddItem(ctx, latteCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	two := 2
	if _, err := service.UpdateItem(ctx, UpdateItemCommand{ItemID: state.Items[0].ID, Quantity: &two}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.RemoveItem(ctx, state.Items[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.sets) != 3 {
		t.Fatalf("expected 3 persisted snapshots, got %d", len(store.sets))
	}
}

func TestCartServicePersistFailureDoesNotFailOperation(t *testing.T) {
	store := &stubCartStore{
		setFunc: func(ctx context.Context, key string, value string) error {
			return repositories.NewUnavailableError("stub", errors.New("down"))
		},
	}
	var events []string
	service, err := NewCartService(CartServiceDeps{
		Store: store,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	state, err := service.AddItem(context.Background(), latteCommand())
	if err != nil {
		t.Fatalf("expected mutation to succeed despite persist failure, got %v", err)
	}
	if state.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", state.ItemCount)
	}
	if len(events) != 1 || events[0] != "cart.persist_failed" {
		t.Fatalf("expected cart.persist_failed logged, got %v", events)
	}
}

func TestCartServiceLoadRoundTripsState(t *testing.T) {
	store := &stubCartStore{}
	service := newTestCartService(t, store)
	ctx := context.Background()

	cmd := latteCommand()
	cmd.Toppings = []domain.Topping{{ID: "t1", Name: "Pearl", Price: 5000}}
	if _, err := service.AddItem(ctx, cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.AddItem(ctx, cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persisted := store.sets[len(store.sets)-1]

	restoredStore := &stubCartStore{
		getFunc: func(ctx context.Context, key string) (string, error) {
			return persisted, nil
		},
	}
	restored := newTestCartService(t, restoredStore)
	state, err := restored.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected 1 line after restore, got %d", len(state.Items))
	}
	item := state.Items[0]
	if item.Quantity != 2 || item.UnitPrice != 20000 || len(item.Toppings) != 1 || item.Toppings[0].Price != 5000 {
		t.Fatalf("expected exact round trip, got %+v", item)
	}
	if state.ItemCount != 2 || state.Total != 2*25000 {
		t.Fatalf("expected recomputed aggregates, got %+v", state)
	}
}

func TestCartServiceLoadCorruptRecordStartsEmpty(t *testing.T) {
	store := &stubCartStore{
		getFunc: func(ctx context.Context, key string) (string, error) {
			return "{not json", nil
		},
	}
	var events []string
	service, err := NewCartService(CartServiceDeps{
		Store: store,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	state, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("expected corrupt record to be discarded, got %v", err)
	}
	if len(state.Items) != 0 || state.ItemCount != 0 || state.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
	if len(events) == 0 || events[0] != "cart.restore_corrupt" {
		t.Fatalf("expected cart.restore_corrupt logged, got %v", events)
	}
}

func TestCartServiceLoadDropsMalformedItems(t *testing.T) {
	stored := domain.CartState{
		Items: []domain.CartItem{
			{ID: "ok", ProductID: "1", Size: domain.SizeS, UnitPrice: 20000, Quantity: 1},
			{ID: "", ProductID: "2", Size: domain.SizeS, UnitPrice: 1000, Quantity: 1},
			{ID: "bad-qty", ProductID: "3", Size: domain.SizeS, UnitPrice: 1000, Quantity: 0},
			{ID: "bad-size", ProductID: "4", Size: "XXL", UnitPrice: 1000, Quantity: 1},
		},
		ItemCount: 99,
		Total:     999999,
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	store := &stubCartStore{
		getFunc: func(ctx context.Context, key string) (string, error) {
			return string(payload), nil
		},
	}
	service := newTestCartService(t, store)

	state, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 1 || state.Items[0].ID != "ok" {
		t.Fatalf("expected only the valid item kept, got %+v", state.Items)
	}
	if state.ItemCount != 1 || state.Total != 20000 {
		t.Fatalf("expected aggregates recomputed, got %+v", state)
	}
}

func TestCartServiceLoadMissingRecordStartsEmpty(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})

	state, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
}

func TestCartServiceScenarioTwoAddsNoRemoval(t *testing.T) {
	service := newTestCartService(t, &stubCartStore{})
	ctx := context.Background()

	cmd := AddItemCommand{ProductID: "1", ProductVariantID: "10", Size: domain.SizeS, UnitPrice: 20000}
	if _, err := service.AddItem(ctx, cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := service.AddItem(ctx, cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(state.Items))
	}
	if state.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", state.ItemCount)
	}
	if state.Total != 40000 {
		t.Fatalf("expected total 40000, got %d", state.Total)
	}
}
