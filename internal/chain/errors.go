package chain

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/internal/consensus"
)

// Chain errors.
var (
	ErrEmptyChain    = consensus.ErrEmptyChain
	ErrNoChain       = errors.New("no persisted chain")
	ErrBlockNotFound = errors.New("block not found")
	ErrCorruptStore  = errors.New("corrupt chain store")
	ErrPersistence   = errors.New("chain persistence failed")
)

// PersistenceError reports a failed Store operation. Op is "load" or "save".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chain %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrPersistence and the underlying cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
