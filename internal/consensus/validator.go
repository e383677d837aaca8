package consensus

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/internal/metrics"
	"github.com/Klingon-tech/stockchain/pkg/block"
)

// Validation errors.
var (
	ErrValidation = errors.New("chain validation failed")
	ErrEmptyChain = errors.New("chain has no blocks")
	ErrBadLink    = errors.New("previous hash does not match predecessor")
	ErrBadIndex   = errors.New("block index out of sequence")
	ErrBadHash    = errors.New("stored hash does not match content")
)

// Check names the rule a block failed.
type Check string

const (
	CheckIndex     Check = "index"
	CheckStructure Check = "structure"
	CheckHash      Check = "hash"
	CheckLink      Check = "link"
	CheckPoW       Check = "pow"
)

// ValidationError reports the first block that failed validation.
// Index is the block's position in the chain.
type ValidationError struct {
	Index uint64
	Check Check
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("block %d: %s check failed: %v", e.Index, e.Check, e.Err)
}

// Unwrap exposes both ErrValidation and the underlying cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Validator validates blocks against the sealing rules of one engine.
type Validator struct {
	engine Engine
}

// NewValidator creates a chain validator with the given consensus engine.
func NewValidator(engine Engine) *Validator {
	return &Validator{engine: engine}
}

// ValidateGenesis checks the self-consistency of the index-0 block.
func (v *Validator) ValidateGenesis(blk *block.Block) error {
	if blk == nil {
		return &ValidationError{Index: 0, Check: CheckStructure, Err: block.ErrNilBlock}
	}
	if blk.Index != 0 {
		return &ValidationError{Index: 0, Check: CheckIndex,
			Err: fmt.Errorf("%w: genesis has index %d", ErrBadIndex, blk.Index)}
	}
	if err := blk.Validate(); err != nil {
		return &ValidationError{Index: 0, Check: CheckStructure, Err: err}
	}
	if !blk.HashValid() {
		return &ValidationError{Index: 0, Check: CheckHash, Err: ErrBadHash}
	}
	if err := v.engine.VerifyHeader(blk); err != nil {
		return &ValidationError{Index: 0, Check: CheckPoW, Err: err}
	}
	return nil
}

// ValidateBlock checks blk at position pos against its predecessor:
// hash integrity, then link integrity, then proof of work, then structure.
func (v *Validator) ValidateBlock(pos uint64, blk, prev *block.Block) error {
	if blk == nil {
		return &ValidationError{Index: pos, Check: CheckStructure, Err: block.ErrNilBlock}
	}
	if !blk.HashValid() {
		return &ValidationError{Index: pos, Check: CheckHash, Err: ErrBadHash}
	}
	if blk.PrevHash != prev.Hash {
		return &ValidationError{Index: pos, Check: CheckLink,
			Err: fmt.Errorf("%w: got %s, want %s", ErrBadLink, blk.PrevHash.Short(), prev.Hash.Short())}
	}
	if blk.Index != prev.Index+1 {
		return &ValidationError{Index: pos, Check: CheckLink,
			Err: fmt.Errorf("%w: got %d, want %d", ErrBadIndex, blk.Index, prev.Index+1)}
	}
	if err := v.engine.VerifyHeader(blk); err != nil {
		return &ValidationError{Index: pos, Check: CheckPoW, Err: err}
	}
	if err := blk.Validate(); err != nil {
		return &ValidationError{Index: pos, Check: CheckStructure, Err: err}
	}
	return nil
}

// ValidateChain checks every block in index order and stops at the first
// violation. Nothing is cached between calls and nothing is repaired.
func (v *Validator) ValidateChain(blocks []*block.Block) error {
	err := v.validateChain(blocks)
	metrics.RecordValidation(err == nil)
	return err
}

func (v *Validator) validateChain(blocks []*block.Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}
	if err := v.ValidateGenesis(blocks[0]); err != nil {
		return err
	}
	for i := 1; i < len(blocks); i++ {
		if err := v.ValidateBlock(uint64(i), blocks[i], blocks[i-1]); err != nil {
			return err
		}
	}
	return nil
}
