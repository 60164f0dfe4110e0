package npc

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// CurrencyDrop defines the range of currency a defeated combatant drops.
type CurrencyDrop struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// ItemDrop defines a single item entry in a loot table with a drop chance.
type ItemDrop struct {
	ItemID string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
	MinQty int     `yaml:"min_qty"`
	MaxQty int     `yaml:"max_qty"`
}

// WeightedDrop is one entry of a loot table's single-pick list.
type WeightedDrop struct {
	ItemID string `yaml:"item"`
	Weight int    `yaml:"weight"`
	Qty    int    `yaml:"qty"` // 0 = 1
}

// LootTable defines the possible loot drops for a template.
type LootTable struct {
	Currency *CurrencyDrop `yaml:"currency"`
	Items    []ItemDrop    `yaml:"items"`
	// OneOf yields exactly one entry, chosen by weight, per drop.
	OneOf []WeightedDrop `yaml:"one_of"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Precondition: lt must not be nil.
// Postcondition: Returns nil iff all currency and item constraints hold;
// an empty loot table is valid.
func (lt *LootTable) Validate() error {
	if lt.Currency != nil {
		if lt.Currency.Min < 0 {
			return fmt.Errorf("loot table: currency min must be >= 0, got %d", lt.Currency.Min)
		}
		if lt.Currency.Min > lt.Currency.Max {
			return fmt.Errorf("loot table: currency min (%d) must be <= max (%d)", lt.Currency.Min, lt.Currency.Max)
		}
	}
	for i, item := range lt.Items {
		if item.ItemID == "" {
			return fmt.Errorf("loot table: item[%d] must have a non-empty item id", i)
		}
		if item.Chance <= 0 || item.Chance > 1.0 {
			return fmt.Errorf("loot table: item[%d] chance must be in (0, 1.0], got %f", i, item.Chance)
		}
		if item.MinQty < 1 {
			return fmt.Errorf("loot table: item[%d] min_qty must be >= 1, got %d", i, item.MinQty)
		}
		if item.MinQty > item.MaxQty {
			return fmt.Errorf("loot table: item[%d] min_qty (%d) must be <= max_qty (%d)", i, item.MinQty, item.MaxQty)
		}
	}
	total := 0
	for i, d := range lt.OneOf {
		if d.ItemID == "" {
			return fmt.Errorf("loot table: one_of[%d] must have a non-empty item id", i)
		}
		if d.Weight < 0 {
			return fmt.Errorf("loot table: one_of[%d] weight must be >= 0, got %d", i, d.Weight)
		}
		if d.Qty < 0 {
			return fmt.Errorf("loot table: one_of[%d] qty must be >= 0, got %d", i, d.Qty)
		}
		total += d.Weight
	}
	if len(lt.OneOf) > 0 && total == 0 {
		return errors.New("loot table: one_of weights must not all be zero")
	}
	return nil
}

// ItemIDs returns every item the table can drop, in declaration order.
func (lt *LootTable) ItemIDs() []string {
	var ids []string
	for _, item := range lt.Items {
		ids = append(ids, item.ItemID)
	}
	for _, d := range lt.OneOf {
		ids = append(ids, d.ItemID)
	}
	return ids
}

// LootItem represents a single item instance in a loot result.
type LootItem struct {
	ItemDefID  string `json:"item_def_id"`
	InstanceID string `json:"instance_id"`
	Quantity   int    `json:"quantity"`
}

// LootResult holds the generated loot from a single defeated combatant.
type LootResult struct {
	Currency int        `json:"currency"`
	Items    []LootItem `json:"items"`
}

// GenerateLoot rolls loot from lt. Draws happen in a fixed order: currency,
// then each item's chance (and quantity on success), then the one_of pick.
//
// Precondition: lt must have passed Validate(); rng must be non-nil.
// Postcondition: Currency is in [Currency.Min, Currency.Max] if currency is set;
// each item's Quantity is in [MinQty, MaxQty] for items that pass the chance roll;
// exactly one one_of entry is added when the list is non-empty.
func GenerateLoot(lt LootTable, rng *dice.Provider) (LootResult, error) {
	var result LootResult

	if lt.Currency != nil && lt.Currency.Max > 0 {
		c, err := rng.Roll(lt.Currency.Min, lt.Currency.Max)
		if err != nil {
			return LootResult{}, fmt.Errorf("rolling currency: %w", err)
		}
		result.Currency = c
	}

	for _, item := range lt.Items {
		if !rng.Chance(item.Chance) {
			continue
		}
		qty := item.MinQty
		if item.MaxQty > item.MinQty {
			q, err := rng.Roll(item.MinQty, item.MaxQty)
			if err != nil {
				return LootResult{}, fmt.Errorf("rolling quantity of %q: %w", item.ItemID, err)
			}
			qty = q
		}
		result.Items = append(result.Items, newLootItem(item.ItemID, qty))
	}

	if len(lt.OneOf) > 0 {
		weights := make([]int, len(lt.OneOf))
		for i, d := range lt.OneOf {
			weights[i] = d.Weight
		}
		idx, err := rng.WeightedIndex(weights)
		if err != nil {
			return LootResult{}, fmt.Errorf("picking one_of drop: %w", err)
		}
		pick := lt.OneOf[idx]
		qty := pick.Qty
		if qty == 0 {
			qty = 1
		}
		result.Items = append(result.Items, newLootItem(pick.ItemID, qty))
	}

	return result, nil
}

func newLootItem(id string, qty int) LootItem {
	return LootItem{ItemDefID: id, InstanceID: uuid.New().String(), Quantity: qty}
}
