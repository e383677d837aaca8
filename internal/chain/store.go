package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/internal/storage"
	"github.com/Klingon-tech/stockchain/pkg/block"
)

// Store loads and saves the whole chain.
type Store interface {
	// Load returns every persisted block in index order, or ErrNoChain
	// when nothing has been saved yet.
	Load() ([]*block.Block, error)
	// Save replaces the persisted chain with blocks.
	Save(blocks []*block.Block) error
}

// Key prefixes and state keys for the block store.
var (
	prefixHeight = []byte("h/") // h/<index(8)> -> block JSON
	keyHeight    = []byte("s/height")
)

// BlockStore persists blocks and chain metadata to a storage.DB.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// Load reads blocks 0..tip. A missing block below the tip is reported
// as ErrCorruptStore.
func (bs *BlockStore) Load() ([]*block.Block, error) {
	tip, err := bs.Height()
	if err != nil {
		return nil, err
	}

	var blocks []*block.Block
	for i := uint64(0); i <= tip; i++ {
		blk, err := bs.GetBlock(i)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

// Save writes every block and the tip height in one batch and drops
// blocks stored above the new tip.
func (bs *BlockStore) Save(blocks []*block.Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}
	tip := uint64(len(blocks) - 1)

	batch := storage.NewBatch(bs.db)
	for i, blk := range blocks {
		data, err := json.Marshal(blk)
		if err != nil {
			return fmt.Errorf("block %d marshal: %w", i, err)
		}
		if err := batch.Put(heightKey(uint64(i)), data); err != nil {
			return fmt.Errorf("block %d put: %w", i, err)
		}
	}

	var stale [][]byte
	err := bs.db.ForEach(prefixHeight, func(key, _ []byte) error {
		if len(key) == len(prefixHeight)+8 && binary.BigEndian.Uint64(key[len(prefixHeight):]) > tip {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan stale blocks: %w", err)
	}
	for _, key := range stale {
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("stale block delete: %w", err)
		}
	}

	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], tip)
	if err := batch.Put(keyHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("set tip height: %w", err)
	}
	return batch.Commit()
}

// Height returns the stored tip index, or ErrNoChain.
func (bs *BlockStore) Height() (uint64, error) {
	data, err := bs.db.Get(keyHeight)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNoChain
	}
	if err != nil {
		return 0, fmt.Errorf("get tip height: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: tip height is %d bytes", ErrCorruptStore, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// GetBlock retrieves the block stored at position index.
func (bs *BlockStore) GetBlock(index uint64) (*block.Block, error) {
	data, err := bs.db.Get(heightKey(index))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: block %d missing", ErrCorruptStore, index)
	}
	if err != nil {
		return nil, fmt.Errorf("block %d get: %w", index, err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", ErrCorruptStore, index, err)
	}
	return &blk, nil
}

// heightKey returns h/<index BE8>, so ForEach visits blocks in order.
func heightKey(index uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], index)
	return key
}
