// Package chain implements the append-only ledger chain.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/internal/log"
	"github.com/Klingon-tech/stockchain/internal/metrics"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// Chain holds the sealed blocks and the queue of pending adjustments.
type Chain struct {
	mineMu sync.Mutex   // Serializes MinePending.
	mu     sync.RWMutex // Protects blocks and pending.

	blocks  []*block.Block
	pending []tx.Transaction

	engine    consensus.Engine
	validator *consensus.Validator
	store     Store // nil = memory only
	loadErr   error
	now       func() time.Time
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock overrides the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// New opens the chain persisted in store, or starts a fresh one with only
// a genesis block. A persisted chain that fails to load or validate is
// replaced in memory by a fresh genesis; the reason is logged and kept in
// LoadErr, and the store is left untouched until the next mined block.
// A store holding no chain gets the fresh genesis saved immediately.
// store may be nil for a memory-only chain.
func New(store Store, engine consensus.Engine, opts ...Option) (*Chain, error) {
	if engine == nil {
		return nil, fmt.Errorf("consensus engine is nil")
	}

	c := &Chain{
		engine:    engine,
		validator: consensus.NewValidator(engine),
		store:     store,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if store == nil {
		c.initGenesis()
		return c, nil
	}

	blocks, err := store.Load()
	switch {
	case errors.Is(err, ErrNoChain):
		c.initGenesis()
		if err := store.Save(c.blocks); err != nil {
			metrics.RecordPersistFailure("save")
			return nil, &PersistenceError{Op: "save", Err: err}
		}
		log.Chain.Info().Str("genesis", c.blocks[0].Hash.String()).Msg("Initialized new chain")

	case err != nil:
		metrics.RecordPersistFailure("load")
		c.loadErr = &PersistenceError{Op: "load", Err: err}
		c.initGenesis()
		log.Chain.Warn().Err(c.loadErr).Msg("Could not load persisted chain, starting fresh")

	default:
		if verr := c.validator.ValidateChain(blocks); verr != nil {
			c.loadErr = fmt.Errorf("persisted chain rejected: %w", verr)
			c.initGenesis()
			log.Chain.Warn().Err(verr).Msg("Persisted chain is invalid, starting fresh")
			break
		}
		c.blocks = blocks
		log.Chain.Info().
			Int("blocks", len(blocks)).
			Str("tip", blocks[len(blocks)-1].Hash.Short()).
			Msg("Loaded chain")
	}

	metrics.SetChainHeight(c.blocks[len(c.blocks)-1].Index)
	return c, nil
}

func (c *Chain) initGenesis() {
	genesis := CreateGenesisBlock(c.engine, uint64(c.now().Unix()))
	c.blocks = []*block.Block{genesis}
}

// Latest returns the most recent block.
func (c *Chain) Latest() (*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil, ErrEmptyChain
	}
	return c.blocks[len(c.blocks)-1], nil
}

// Enqueue appends t to the pending queue after checking its shape.
// Nothing changes on error.
func (c *Chain) Enqueue(t tx.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.pending = append(c.pending, t)
	n := len(c.pending)
	c.mu.Unlock()

	metrics.SetPendingCount(n)
	return nil
}

// MinePending seals the pending queue into a new block and appends it.
// It returns nil, nil when nothing is pending. At most
// config.MaxBlockTxs adjustments go into one block; the rest stay queued.
//
// Adjustments enqueued while the seal runs are kept for the next block.
// A failed save returns the appended block together with a
// *PersistenceError; the in-memory chain stays authoritative.
func (c *Chain) MinePending() (*block.Block, error) {
	c.mineMu.Lock()
	defer c.mineMu.Unlock()

	c.mu.RLock()
	if len(c.pending) == 0 {
		c.mu.RUnlock()
		log.Chain.Debug().Msg("Nothing to mine")
		return nil, nil
	}
	if len(c.blocks) == 0 {
		c.mu.RUnlock()
		return nil, ErrEmptyChain
	}
	latest := c.blocks[len(c.blocks)-1]
	n := min(len(c.pending), config.MaxBlockTxs)
	batch := make([]tx.Transaction, n)
	copy(batch, c.pending[:n])
	c.mu.RUnlock()

	content := block.Content{
		Index:        latest.Index + 1,
		Timestamp:    uint64(c.now().Unix()),
		PrevHash:     latest.Hash,
		Transactions: batch,
	}

	start := time.Now()
	blk := c.engine.Seal(content, 0)
	sealTime := time.Since(start)

	// Only MinePending removes from pending and it holds mineMu, so the
	// first n entries are still the ones sealed above.
	c.mu.Lock()
	c.blocks = append(c.blocks, blk)
	c.pending = append([]tx.Transaction(nil), c.pending[n:]...)
	remaining := len(c.pending)
	snapshot := make([]*block.Block, len(c.blocks))
	copy(snapshot, c.blocks)
	c.mu.Unlock()

	metrics.SetChainHeight(blk.Index)
	metrics.SetPendingCount(remaining)
	metrics.RecordTxInBlock(len(blk.Transactions))

	log.Chain.Info().
		Uint64("index", blk.Index).
		Str("hash", blk.Hash.Short()).
		Int("txs", len(blk.Transactions)).
		Uint64("nonce", blk.Nonce).
		Dur("seal", sealTime).
		Msg("Block mined")

	if c.store != nil {
		if err := c.store.Save(snapshot); err != nil {
			metrics.RecordPersistFailure("save")
			perr := &PersistenceError{Op: "save", Err: err}
			log.Chain.Error().Err(perr).Uint64("index", blk.Index).Msg("Block kept in memory only")
			return blk, perr
		}
	}
	return blk, nil
}

// Len returns the number of blocks including genesis.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Blocks returns a copy of the block slice. The blocks themselves are
// shared and must not be modified.
func (c *Chain) Blocks() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// BlockByIndex returns the block at position index.
func (c *Chain) BlockByIndex(index uint64) (*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return c.blocks[index], nil
}

// BlockByHash returns the block whose stored hash is h.
func (c *Chain) BlockByHash(h types.Hash) (*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, blk := range c.blocks {
		if blk.Hash == h {
			return blk, nil
		}
	}
	return nil, fmt.Errorf("%w: hash %s", ErrBlockNotFound, h)
}

// Pending returns a copy of the pending queue in insertion order.
func (c *Chain) Pending() []tx.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]tx.Transaction, len(c.pending))
	copy(out, c.pending)
	return out
}

// Difficulty returns the work requirement applied to every block.
func (c *Chain) Difficulty() int {
	return c.engine.Difficulty()
}

// Validator returns the validator bound to this chain's engine.
func (c *Chain) Validator() *consensus.Validator {
	return c.validator
}

// LoadErr returns why the persisted chain was rejected at startup, if it was.
func (c *Chain) LoadErr() error {
	return c.loadErr
}

// Validate runs a full validation over a snapshot of the blocks.
func (c *Chain) Validate() error {
	return c.validator.ValidateChain(c.Blocks())
}
