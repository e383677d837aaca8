// Package ledger is the entry point for recording stock adjustments and
// reading the resulting inventory.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/stockchain/internal/chain"
	"github.com/Klingon-tech/stockchain/internal/inventory"
	"github.com/Klingon-tech/stockchain/internal/log"
	"github.com/Klingon-tech/stockchain/internal/metrics"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
)

// Options configures a Service.
type Options struct {
	// AutoMine seals a block right after every accepted submission.
	AutoMine bool
}

// DefaultOptions mines after every submission.
func DefaultOptions() Options {
	return Options{AutoMine: true}
}

// Receipt describes an accepted adjustment.
type Receipt struct {
	Transaction tx.Transaction
	// Quantity is the item's net quantity including still-pending adjustments.
	Quantity int64
	// Block is the block that sealed the adjustment, nil while pending.
	Block *block.Block
	// Pending is the queue length after the call.
	Pending int
	// PersistErr is set when the block was mined but could not be saved.
	PersistErr error
}

// Service serializes submissions against one chain.
type Service struct {
	mu        sync.Mutex // Held across stock check, enqueue and mine.
	chain     *chain.Chain
	projector *inventory.Projector
	autoMine  bool
}

// NewService wraps c.
func NewService(c *chain.Chain, opts Options) *Service {
	return &Service{
		chain:     c,
		projector: inventory.NewProjector(c.Validator()),
		autoMine:  opts.AutoMine,
	}
}

// AutoMine reports whether submissions are mined immediately.
func (s *Service) AutoMine() bool {
	return s.autoMine
}

// Chain returns the underlying chain for read-only queries.
func (s *Service) Chain() *chain.Chain {
	return s.chain
}

// SubmitAdjustment records change for itemID. Removals that would take
// the item below zero are refused with a *StockError. With AutoMine set
// the adjustment is sealed into a block before returning.
func (s *Service) SubmitAdjustment(itemID string, change int64) (*Receipt, error) {
	t, err := tx.New(itemID, change)
	if err != nil {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, err
	}
	return s.submit(t, s.autoMine)
}

// AddStock adds qty units of itemID.
func (s *Service) AddStock(itemID string, qty int64) (*Receipt, error) {
	if qty <= 0 {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, ErrBadQuantity
	}
	return s.SubmitAdjustment(itemID, qty)
}

// RemoveStock removes qty units of itemID.
func (s *Service) RemoveStock(itemID string, qty int64) (*Receipt, error) {
	if qty <= 0 {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, ErrBadQuantity
	}
	return s.SubmitAdjustment(itemID, -qty)
}

// Enqueue records an adjustment without mining, regardless of AutoMine.
func (s *Service) Enqueue(itemID string, change int64) (*Receipt, error) {
	t, err := tx.New(itemID, change)
	if err != nil {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, err
	}
	return s.submit(t, false)
}

// Mine seals the pending queue. It returns nil, nil when nothing is pending.
func (s *Service) Mine() (*block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain.MinePending()
}

func (s *Service) submit(t tx.Transaction, mine bool) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.projectWithPending()
	if err != nil {
		metrics.RecordRejectedTx(metrics.RejectChainInvalid)
		log.Ledger.Error().Err(err).Msg("Refusing adjustment, chain failed validation")
		return nil, err
	}

	available := inv.Quantity(t.ItemID)
	next, ok := addQuantity(available, t.Change)
	if !ok {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, fmt.Errorf("%w: %s has %d, change %d", ErrQuantityOverflow, t.ItemID, available, t.Change)
	}
	if t.Change < 0 && next < 0 {
		metrics.RecordRejectedTx(metrics.RejectInsufficientStock)
		return nil, &StockError{ItemID: t.ItemID, Available: available, Requested: -t.Change}
	}

	if err := s.chain.Enqueue(t); err != nil {
		metrics.RecordRejectedTx(metrics.RejectInvalid)
		return nil, err
	}
	metrics.IncreaseSubmittedTx()

	r := &Receipt{Transaction: t, Quantity: next}
	if mine {
		blk, err := s.chain.MinePending()
		r.Block = blk
		if err != nil {
			if !errors.Is(err, chain.ErrPersistence) {
				return nil, err
			}
			r.PersistErr = err
		}
	}
	r.Pending = len(s.chain.Pending())

	log.Ledger.Info().
		Str("item", t.ItemID).
		Int64("change", t.Change).
		Str("tx", t.Hash().Short()).
		Int64("quantity", r.Quantity).
		Bool("mined", r.Block != nil).
		Msg("Adjustment accepted")
	return r, nil
}

// projectWithPending is the validated inventory plus queued adjustments.
func (s *Service) projectWithPending() (inventory.Inventory, error) {
	inv, err := s.projector.Project(s.chain.Blocks())
	if err != nil {
		return nil, err
	}
	for _, p := range s.chain.Pending() {
		inv[p.ItemID] += p.Change
	}
	return inv, nil
}

// Inventory validates the chain and returns the sealed stock levels.
// Pending adjustments are not included.
func (s *Service) Inventory() (inventory.Inventory, error) {
	return s.projector.Project(s.chain.Blocks())
}

// Quantity returns the sealed quantity of one item.
func (s *Service) Quantity(itemID string) (int64, error) {
	inv, err := s.Inventory()
	if err != nil {
		return 0, err
	}
	return inv.Quantity(tx.NormalizeItemID(itemID)), nil
}

// ChainLength returns the number of blocks including genesis.
func (s *Service) ChainLength() int {
	return s.chain.Len()
}

// Validate runs a full chain validation.
func (s *Service) Validate() error {
	return s.chain.Validate()
}

// Pending returns the queued adjustments in insertion order.
func (s *Service) Pending() []tx.Transaction {
	return s.chain.Pending()
}
