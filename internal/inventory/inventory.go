// Package inventory folds a validated chain into per-item stock levels.
package inventory

import (
	"sort"

	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/pkg/block"
)

// Inventory maps item id to net quantity. Quantities may be zero or
// negative; callers decide what to show.
type Inventory map[string]int64

// Quantity returns the net quantity of id, 0 if it never appeared.
func (inv Inventory) Quantity(id string) int64 {
	return inv[id]
}

// Items returns every item id in sorted order.
func (inv Inventory) Items() []string {
	ids := make([]string, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InStock returns only the items with a positive quantity.
func (inv Inventory) InStock() Inventory {
	out := make(Inventory, len(inv))
	for id, q := range inv {
		if q > 0 {
			out[id] = q
		}
	}
	return out
}

// Projector replays a chain into an Inventory.
type Projector struct {
	validator *consensus.Validator
}

// NewProjector creates a projector that validates with v before folding.
func NewProjector(v *consensus.Validator) *Projector {
	return &Projector{validator: v}
}

// Project validates blocks and sums every transaction in blocks 1..N in
// index order. An invalid chain yields the validation error and a nil
// inventory.
func (p *Projector) Project(blocks []*block.Block) (Inventory, error) {
	if err := p.validator.ValidateChain(blocks); err != nil {
		return nil, err
	}
	return Fold(blocks), nil
}

// Fold sums transactions without validating. Genesis carries none.
func Fold(blocks []*block.Block) Inventory {
	inv := make(Inventory)
	for _, blk := range blocks {
		for _, t := range blk.Transactions {
			inv[t.ItemID] += t.Change
		}
	}
	return inv
}
