package consensus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/internal/metrics"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/crypto"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// PoW errors.
var (
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
	ErrBadDifficulty    = errors.New("difficulty out of range")
)

// PoW implements proof-of-work sealing. The target is a number of leading
// '0' characters in the hex form of the block hash. The engine holds no
// mutable state and is safe for concurrent use.
type PoW struct {
	difficulty int
}

// NewPoW creates a PoW engine. Difficulty must be in [0, config.MaxDifficulty].
func NewPoW(difficulty int) (*PoW, error) {
	if difficulty < 0 || difficulty > config.MaxDifficulty {
		return nil, fmt.Errorf("%w: %d, want 0..%d", ErrBadDifficulty, difficulty, config.MaxDifficulty)
	}
	return &PoW{difficulty: difficulty}, nil
}

// Difficulty returns the configured number of leading zero hex characters.
func (p *PoW) Difficulty() int {
	return p.difficulty
}

// MeetsDifficulty reports whether h has at least difficulty leading
// '0' hex characters.
func MeetsDifficulty(h types.Hash, difficulty int) bool {
	return h.LeadingZeroNibbles() >= difficulty
}

// VerifyHeader checks that the block's stored hash meets the difficulty.
// Hash integrity is checked separately by the Validator.
func (p *PoW) VerifyHeader(blk *block.Block) error {
	if !MeetsDifficulty(blk.Hash, p.difficulty) {
		return fmt.Errorf("%w: %s has %d leading zeros, want %d",
			ErrInsufficientWork, blk.Hash.Short(), blk.Hash.LeadingZeroNibbles(), p.difficulty)
	}
	return nil
}

// Seal iterates the nonce from startNonce until the content hash meets
// the target and returns the sealed block. The content prefix is encoded
// once; each attempt only rewrites the trailing 8-byte nonce.
// There is no iteration bound and no cancellation.
func (p *PoW) Seal(content block.Content, startNonce uint64) *block.Block {
	start := time.Now()
	prefix := content.Prefix()
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)

	var attempts uint64
	nonce := startNonce
	for {
		attempts++
		binary.LittleEndian.PutUint64(buf[len(prefix):], nonce)
		if MeetsDifficulty(crypto.Hash(buf), p.difficulty) {
			break
		}
		nonce++
	}

	metrics.RecordSeal(time.Since(start), attempts)
	return block.New(content, nonce)
}
