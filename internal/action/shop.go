package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/store"
)

// Result codes for ShopBuyResult.Result (spec.md §6 "Shop purchase"):
// 0 success, -1 over-capacity, any other negative an error dialog. The
// exact negative values beyond -1 aren't spec'd; shopBuyResultError
// covers every failure the client should render as a generic error,
// matching original_source/server/channel/src/packets/game/ShopBuy.cpp's
// own use of one -2 for every non-capacity failure.
const (
	shopBuyResultSuccess      = int32(0)
	shopBuyResultOverCapacity = int32(-1)
	shopBuyResultError        = int32(-2)
)

var errShopOverCapacity = errors.New("action: SHOP_BUY: target box has no room for the purchase")

// ShopBuyResult is SHOP_BUY's reply shape (spec.md §6): ShopID/ProductID
// echo the request, Result carries the success/capacity/error code.
type ShopBuyResult struct {
	ShopID    int32
	ProductID int32
	Result    int32
}

// ShopBuy runs the client's SHOP_BUY request (spec.md §6): resolves
// productID against Definitions.ShopProduct, bills Account.CP (this
// repo's one modeled currency — original_source's macca/CP split
// collapses to CP here, per DESIGN.md), and grants the product's item
// either to the buyer's inventory (quantity from the request) or, for a
// CP-billed product, a fixed Stack to the post box of the buyer or, when
// gifteeName is non-empty, of the character findCharacterByName
// resolves it to. cacheID and message are accepted but unused beyond
// what a future post-item record would need; this repo's ItemBox model
// has no per-entry gift-message field to carry message into.
func (d *Dispatcher) ShopBuy(ctx context.Context, characterID model.UUID, shopID, cacheID, productID, quantity int32, gifteeName, message string, findCharacterByName func(name string) (model.UUID, bool)) (ShopBuyResult, error) {
	_ = cacheID
	_ = message
	result := ShopBuyResult{ShopID: shopID, ProductID: productID}

	if quantity <= 0 {
		result.Result = shopBuyResultSuccess
		return result, nil
	}
	if d.defs == nil {
		result.Result = shopBuyResultError
		return result, nil
	}
	product, ok := d.defs.ShopProduct(productID)
	if !ok {
		slog.Warn("action: SHOP_BUY: unknown product", "shop_id", shopID, "product_id", productID)
		result.Result = shopBuyResultError
		return result, nil
	}

	maxStack := int32(defaultMaxStack)
	if def, ok := d.defs.Item(product.ItemType); ok && def.MaxStack > 0 {
		maxStack = def.MaxStack
	}

	buyer, err := store.Load[model.Character](ctx, d.store, characterID, false)
	if err != nil {
		return result, fmt.Errorf("action: SHOP_BUY: loading buyer: %w", err)
	}

	if !product.CPCost {
		price := product.Price * int64(quantity)
		if err := d.deductCP(ctx, buyer.AccountID, price); err != nil {
			if errors.Is(err, errInsufficientCP) {
				result.Result = shopBuyResultError
				return result, nil
			}
			return result, fmt.Errorf("action: SHOP_BUY: %w", err)
		}

		box, err := d.findOrCreateBox(ctx, buyer, model.ItemBoxInventory)
		if err != nil {
			return result, fmt.Errorf("action: SHOP_BUY: resolving inventory: %w", err)
		}
		if err := d.grantItem(ctx, box, product.ItemType, quantity, maxStack); err != nil {
			if errors.Is(err, errShopOverCapacity) {
				result.Result = shopBuyResultOverCapacity
				return result, nil
			}
			return result, fmt.Errorf("action: SHOP_BUY: %w", err)
		}
		result.Result = shopBuyResultSuccess
		return result, nil
	}

	// CP-billed products always go to a post box rather than the
	// inventory, and may target a named giftee instead of the buyer.
	target := buyer
	if gifteeName != "" {
		if findCharacterByName == nil {
			result.Result = shopBuyResultError
			return result, nil
		}
		targetID, ok := findCharacterByName(gifteeName)
		if !ok {
			slog.Warn("action: SHOP_BUY: gift target not found", "giftee_name", gifteeName)
			result.Result = shopBuyResultError
			return result, nil
		}
		target, err = store.Load[model.Character](ctx, d.store, targetID, false)
		if err != nil {
			return result, fmt.Errorf("action: SHOP_BUY: loading gift target: %w", err)
		}
	}

	if err := d.deductCP(ctx, buyer.AccountID, product.Price); err != nil {
		if errors.Is(err, errInsufficientCP) {
			result.Result = shopBuyResultError
			return result, nil
		}
		return result, fmt.Errorf("action: SHOP_BUY: %w", err)
	}

	stack := product.Stack
	if stack <= 0 {
		stack = 1
	}
	postBox, err := d.findOrCreateBox(ctx, target, model.ItemBoxPost)
	if err != nil {
		return result, fmt.Errorf("action: SHOP_BUY: resolving post box: %w", err)
	}
	if err := d.grantItem(ctx, postBox, product.ItemType, stack, maxStack); err != nil {
		if errors.Is(err, errShopOverCapacity) {
			result.Result = shopBuyResultOverCapacity
			return result, nil
		}
		return result, fmt.Errorf("action: SHOP_BUY: %w", err)
	}
	result.Result = shopBuyResultSuccess
	return result, nil
}

var errInsufficientCP = errors.New("action: SHOP_BUY: insufficient CP")

// deductCP applies a CAS-retrying CP withdrawal, the ShopBuy-side
// counterpart to account.Manager.IncreaseCP's retry loop (both chase
// store.ErrConflict rather than surfacing a losing racer's attempt as a
// hard failure).
func (d *Dispatcher) deductCP(ctx context.Context, accountID model.UUID, price int64) error {
	if price <= 0 {
		return nil
	}
	for {
		acct, err := store.Load[model.Account](ctx, d.store, accountID, true)
		if err != nil {
			return err
		}
		if acct.CP < price {
			return errInsufficientCP
		}
		if _, err := store.ExplicitUpdate[model.Account](ctx, d.store, accountID, "CP", -price, acct.CP); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return err
		}
		return nil
	}
}

// grantItem distributes count of itemType into box: topping up existing
// understocked stacks first, then filling empty slots with new items,
// matching original_source's ShopBuy.cpp two-phase distribution. Returns
// errShopOverCapacity if count can't fully fit.
func (d *Dispatcher) grantItem(ctx context.Context, box *model.ItemBox, itemType, count, maxStack int32) error {
	remaining := count
	var dirtyItems []*model.Item

	for _, id := range box.Slots {
		if remaining == 0 {
			break
		}
		if id == model.NilUUID {
			continue
		}
		item, err := store.Load[model.Item](ctx, d.store, id, false)
		if err != nil {
			return fmt.Errorf("loading item %s: %w", id, err)
		}
		if item.ItemType != itemType || item.Stack >= maxStack {
			continue
		}
		room := maxStack - item.Stack
		add := remaining
		if add > room {
			add = room
		}
		item.Stack += add
		remaining -= add
		dirtyItems = append(dirtyItems, item)
	}

	var newItems []*model.Item
	boxChanged := false
	for i := range box.Slots {
		if remaining == 0 {
			break
		}
		if box.Slots[i] != model.NilUUID {
			continue
		}
		stack := remaining
		if stack > maxStack {
			stack = maxStack
		}
		item := store.NewRecord(d.store, true, func(id model.UUID) *model.Item {
			return &model.Item{UUID: id, ItemBoxID: box.UUID, ItemType: itemType, Stack: stack}
		})
		box.Slots[i] = item.UUID
		newItems = append(newItems, item)
		remaining -= stack
		boxChanged = true
	}

	if remaining > 0 {
		return errShopOverCapacity
	}

	ops := make([]store.ChangeOp, 0, len(dirtyItems)+len(newItems)+1)
	for _, it := range dirtyItems {
		ops = append(ops, store.Update[model.Item](d.store, it.UUID, it))
	}
	for _, it := range newItems {
		ops = append(ops, store.Insert[model.Item](d.store, it.UUID, it))
	}
	if boxChanged {
		ops = append(ops, store.Update[model.ItemBox](d.store, box.UUID, box))
	}
	if len(ops) == 0 {
		return nil
	}
	return store.Apply(ctx, d.store, ops)
}
