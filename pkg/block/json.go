package block

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// GenesisPrevHash is the text form of the genesis previous hash.
const GenesisPrevHash = "0"

// blockJSON is the JSON representation of Block. The stored hash is
// carried as-is so a tampered block stays detectable after a round trip.
type blockJSON struct {
	Index        uint64           `json:"index"`
	Timestamp    uint64           `json:"timestamp"`
	Transactions []tx.Transaction `json:"transactions,omitempty"`
	PrevHash     string           `json:"previous_hash"`
	Nonce        uint64           `json:"nonce"`
	Hash         types.Hash       `json:"hash"`
}

// MarshalJSON encodes the block with hex hashes and the "0" genesis sentinel.
func (b *Block) MarshalJSON() ([]byte, error) {
	j := blockJSON{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		PrevHash:     GenesisPrevHash,
		Nonce:        b.Nonce,
		Hash:         b.Hash,
	}
	if !b.PrevHash.IsZero() {
		j.PrevHash = b.PrevHash.String()
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a block produced by MarshalJSON.
func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	var prev types.Hash
	if j.PrevHash != GenesisPrevHash {
		h, err := types.HexToHash(j.PrevHash)
		if err != nil {
			return fmt.Errorf("previous_hash: %w", err)
		}
		prev = h
	}
	b.Index = j.Index
	b.Timestamp = j.Timestamp
	b.Transactions = j.Transactions
	b.PrevHash = prev
	b.Nonce = j.Nonce
	b.Hash = j.Hash
	return nil
}
