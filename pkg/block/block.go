// Package block defines the sealed ledger block and its canonical encoding.
package block

import (
	"encoding/binary"

	"github.com/Klingon-tech/stockchain/pkg/crypto"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// GenesisMarker is the payload hashed into the genesis block in place of
// a transaction list.
const GenesisMarker = "Genesis Block"

// Content is everything a block commits to except the nonce. Sealing
// searches nonces over a fixed Content.
type Content struct {
	Index        uint64
	Timestamp    uint64 // Unix seconds, informational only.
	PrevHash     types.Hash
	Transactions []tx.Transaction
}

// NewGenesisContent returns the content of the index-0 block.
// Its previous hash is the zero hash, the genesis sentinel.
func NewGenesisContent(timestamp uint64) Content {
	return Content{Index: 0, Timestamp: timestamp}
}

// IsGenesis reports whether the content is for the index-0 block.
func (c *Content) IsGenesis() bool {
	return c.Index == 0
}

// Prefix returns the canonical bytes preceding the nonce.
// Format: index(8) | timestamp(8) | prev_hash(32) | payload
// where payload is marker_len(4) | marker for genesis and
// tx_count(4) | tx... for every other block.
func (c *Content) Prefix() []byte {
	size := 8 + 8 + types.HashSize + 4
	for _, t := range c.Transactions {
		size += 12 + len(t.ItemID)
	}
	buf := make([]byte, 0, size+len(GenesisMarker)+8)
	buf = binary.LittleEndian.AppendUint64(buf, c.Index)
	buf = binary.LittleEndian.AppendUint64(buf, c.Timestamp)
	buf = append(buf, c.PrevHash[:]...)
	if c.IsGenesis() {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(GenesisMarker)))
		buf = append(buf, GenesisMarker...)
		return buf
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Transactions)))
	for _, t := range c.Transactions {
		buf = t.AppendBytes(buf)
	}
	return buf
}

// Bytes returns the full canonical digest input for the given nonce.
func (c *Content) Bytes(nonce uint64) []byte {
	return binary.LittleEndian.AppendUint64(c.Prefix(), nonce)
}

// HashWithNonce computes the block digest for the given nonce.
func (c *Content) HashWithNonce(nonce uint64) types.Hash {
	return crypto.Hash(c.Bytes(nonce))
}

// Block is one sealed batch of transactions. A block returned by New or
// by the sealer must not be modified; the stored Hash only stays valid
// while every other field is untouched.
type Block struct {
	Index        uint64
	Timestamp    uint64
	PrevHash     types.Hash
	Transactions []tx.Transaction
	Nonce        uint64
	Hash         types.Hash
}

// New builds a block from content and a nonce and computes its hash.
// The transaction slice is copied.
func New(c Content, nonce uint64) *Block {
	txs := make([]tx.Transaction, len(c.Transactions))
	copy(txs, c.Transactions)
	c.Transactions = txs
	return &Block{
		Index:        c.Index,
		Timestamp:    c.Timestamp,
		PrevHash:     c.PrevHash,
		Transactions: txs,
		Nonce:        nonce,
		Hash:         c.HashWithNonce(nonce),
	}
}

// Content returns the nonce-free content of the block.
func (b *Block) Content() Content {
	return Content{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PrevHash:     b.PrevHash,
		Transactions: b.Transactions,
	}
}

// ComputeHash recomputes the digest from the block's current fields.
func (b *Block) ComputeHash() types.Hash {
	c := b.Content()
	return c.HashWithNonce(b.Nonce)
}

// HashValid reports whether the stored hash matches the block content.
func (b *Block) HashValid() bool {
	return b.Hash == b.ComputeHash()
}

// IsGenesis reports whether b is the index-0 block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}
