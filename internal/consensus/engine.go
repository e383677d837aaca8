// Package consensus implements block sealing and chain validation.
package consensus

import "github.com/Klingon-tech/stockchain/pkg/block"

// Engine is the interface for sealing implementations.
type Engine interface {
	// Difficulty is the work requirement applied to every block.
	Difficulty() int
	// Seal searches nonces from startNonce and returns the sealed block.
	Seal(content block.Content, startNonce uint64) *block.Block
	// VerifyHeader checks that the block's stored hash meets the difficulty.
	VerifyHeader(blk *block.Block) error
}
