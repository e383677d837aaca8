package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/config"
)

// Validation errors.
var (
	ErrNilBlock            = errors.New("block is nil")
	ErrNoTransactions      = errors.New("block has no transactions")
	ErrTooManyTxs          = errors.New("too many transactions in block")
	ErrGenesisTransactions = errors.New("genesis block must not carry transactions")
	ErrGenesisPrevHash     = errors.New("genesis block must use the sentinel previous hash")
	ErrMissingPrevHash     = errors.New("non-genesis block has sentinel previous hash")
)

// Validate checks block structure and internal consistency.
// This does NOT verify the hash, the chain link or proof of work
// (use consensus.Validator for that).
func (b *Block) Validate() error {
	if b == nil {
		return ErrNilBlock
	}

	if b.IsGenesis() {
		if len(b.Transactions) != 0 {
			return fmt.Errorf("%w: got %d", ErrGenesisTransactions, len(b.Transactions))
		}
		if !b.PrevHash.IsZero() {
			return ErrGenesisPrevHash
		}
		return nil
	}

	if b.PrevHash.IsZero() {
		return ErrMissingPrevHash
	}
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	if len(b.Transactions) > config.MaxBlockTxs {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), config.MaxBlockTxs)
	}
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return nil
}
