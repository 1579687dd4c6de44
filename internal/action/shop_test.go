package action

import (
	"context"
	"testing"

	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
	"github.com/imagine-project/channelserver/internal/zone"
)

func newAccountAndCharacter(t *testing.T, st *store.Store, cp int64) *model.Character {
	t.Helper()
	acct := &model.Account{UUID: model.NewUUID(), CP: cp}
	char := &model.Character{UUID: model.NewUUID(), AccountID: acct.UUID}
	store.Put(st, acct.UUID, acct)
	store.Put(st, char.UUID, char)
	return char
}

func TestShopBuy_NonCPPurchaseDeductsCPAndGrantsInventoryItem(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(
		[]definitions.Item{{ID: 7, MaxStack: 10}},
		[]definitions.ShopProduct{{ID: 100, Price: 25, ItemType: 7}},
	)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newAccountAndCharacter(t, st, 1000)

	result, err := d.ShopBuy(ctx, char.UUID, 1, 0, 100, 3, "", "", nil)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultSuccess {
		t.Fatalf("Result = %d, want success", result.Result)
	}

	acct, err := store.Load[model.Account](ctx, st, char.AccountID, false)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.CP != 1000-25*3 {
		t.Fatalf("CP = %d, want %d", acct.CP, 1000-75)
	}

	reloaded, err := store.Load[model.Character](ctx, st, char.UUID, false)
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if len(reloaded.ItemBoxIDs) != 1 {
		t.Fatalf("ItemBoxIDs = %v, want one inventory box", reloaded.ItemBoxIDs)
	}
	box, err := store.Load[model.ItemBox](ctx, st, reloaded.ItemBoxIDs[0], false)
	if err != nil {
		t.Fatalf("load box: %v", err)
	}
	var found *model.Item
	for _, id := range box.Slots {
		if id == model.NilUUID {
			continue
		}
		item, err := store.Load[model.Item](ctx, st, id, false)
		if err != nil {
			t.Fatalf("load item: %v", err)
		}
		if item.ItemType == 7 {
			found = item
		}
	}
	if found == nil || found.Stack != 3 {
		t.Fatalf("granted item = %+v, want stack 3", found)
	}
}

func TestShopBuy_InsufficientCPReturnsError(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(nil, []definitions.ShopProduct{{ID: 100, Price: 500, ItemType: 7}})
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newAccountAndCharacter(t, st, 10)

	result, err := d.ShopBuy(ctx, char.UUID, 1, 0, 100, 1, "", "", nil)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultError {
		t.Fatalf("Result = %d, want error code", result.Result)
	}

	acct, err := store.Load[model.Account](ctx, st, char.AccountID, false)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.CP != 10 {
		t.Fatalf("CP = %d, want unchanged 10 after a failed purchase", acct.CP)
	}
}

func TestShopBuy_UnknownProductReturnsError(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(nil, nil)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newAccountAndCharacter(t, st, 1000)

	result, err := d.ShopBuy(ctx, char.UUID, 1, 0, 999, 1, "", "", nil)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultError {
		t.Fatalf("Result = %d, want error code for unknown product", result.Result)
	}
}

func TestShopBuy_CPPurchaseGrantsFixedStackToPostBox(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(
		[]definitions.Item{{ID: 55, MaxStack: 99}},
		[]definitions.ShopProduct{{ID: 200, Price: 10, ItemType: 55, Stack: 5, CPCost: true}},
	)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newAccountAndCharacter(t, st, 100)

	result, err := d.ShopBuy(ctx, char.UUID, 2, 0, 200, 1, "", "", nil)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultSuccess {
		t.Fatalf("Result = %d, want success", result.Result)
	}

	acct, err := store.Load[model.Account](ctx, st, char.AccountID, false)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.CP != 90 {
		t.Fatalf("CP = %d, want 90", acct.CP)
	}

	reloaded, err := store.Load[model.Character](ctx, st, char.UUID, false)
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if len(reloaded.ItemBoxIDs) != 1 {
		t.Fatalf("ItemBoxIDs = %v, want one post box", reloaded.ItemBoxIDs)
	}
	box, err := store.Load[model.ItemBox](ctx, st, reloaded.ItemBoxIDs[0], false)
	if err != nil {
		t.Fatalf("load box: %v", err)
	}
	if box.BoxType != model.ItemBoxPost {
		t.Fatalf("BoxType = %v, want ItemBoxPost", box.BoxType)
	}
}

func TestShopBuy_GiftSendsToGifteeNotBuyer(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(
		[]definitions.Item{{ID: 9, MaxStack: 99}},
		[]definitions.ShopProduct{{ID: 300, Price: 10, ItemType: 9, Stack: 1, CPCost: true}},
	)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	buyer := newAccountAndCharacter(t, st, 100)
	giftee := newAccountAndCharacter(t, st, 0)
	find := func(name string) (model.UUID, bool) {
		if name == "giftee" {
			return giftee.UUID, true
		}
		return model.NilUUID, false
	}

	result, err := d.ShopBuy(ctx, buyer.UUID, 3, 0, 300, 1, "giftee", "hello", find)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultSuccess {
		t.Fatalf("Result = %d, want success", result.Result)
	}

	reloadedBuyer, err := store.Load[model.Character](ctx, st, buyer.UUID, false)
	if err != nil {
		t.Fatalf("reload buyer: %v", err)
	}
	if len(reloadedBuyer.ItemBoxIDs) != 0 {
		t.Fatalf("buyer ItemBoxIDs = %v, want none (item goes to giftee)", reloadedBuyer.ItemBoxIDs)
	}

	reloadedGiftee, err := store.Load[model.Character](ctx, st, giftee.UUID, false)
	if err != nil {
		t.Fatalf("reload giftee: %v", err)
	}
	if len(reloadedGiftee.ItemBoxIDs) != 1 {
		t.Fatalf("giftee ItemBoxIDs = %v, want one post box", reloadedGiftee.ItemBoxIDs)
	}
}

func TestShopBuy_OverCapacityReturnsMinusOne(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemBackend())
	defs := definitions.FromShopFixtures(
		[]definitions.Item{{ID: 1, MaxStack: 1}},
		[]definitions.ShopProduct{{ID: 400, Price: 1, ItemType: 1}},
	)
	d := NewDispatcher(st, zone.NewManager(nil), nil, nil, defs)

	char := newAccountAndCharacter(t, st, 1000)

	// Pre-fill the inventory box with a different item type in every
	// slot so no slot remains for the purchase.
	slots := make([]model.UUID, model.InventoryMaxSlots)
	ops := make([]store.ChangeOp, 0, model.InventoryMaxSlots+2)
	for i := range slots {
		filler := store.NewRecord(st, true, func(id model.UUID) *model.Item {
			return &model.Item{UUID: id, ItemType: 999, Stack: 1}
		})
		slots[i] = filler.UUID
		ops = append(ops, store.Insert[model.Item](st, filler.UUID, filler))
	}
	box := store.NewRecord(st, true, func(id model.UUID) *model.ItemBox {
		return &model.ItemBox{UUID: id, CharacterID: char.UUID, BoxType: model.ItemBoxInventory, Slots: slots}
	})
	char.ItemBoxIDs = append(char.ItemBoxIDs, box.UUID)
	ops = append(ops,
		store.Insert[model.ItemBox](st, box.UUID, box),
		store.Update[model.Character](st, char.UUID, char),
	)
	if err := store.Apply(ctx, st, ops); err != nil {
		t.Fatalf("seed full box: %v", err)
	}

	result, err := d.ShopBuy(ctx, char.UUID, 1, 0, 400, 1, "", "", nil)
	if err != nil {
		t.Fatalf("ShopBuy: %v", err)
	}
	if result.Result != shopBuyResultOverCapacity {
		t.Fatalf("Result = %d, want over-capacity (-1)", result.Result)
	}
}
