package chain

import (
	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/pkg/block"
)

// CreateGenesisBlock seals the index-0 block at the engine's difficulty.
func CreateGenesisBlock(engine consensus.Engine, timestamp uint64) *block.Block {
	return engine.Seal(block.NewGenesisContent(timestamp), 0)
}
