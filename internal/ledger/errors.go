package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/pkg/tx"
)

// Ledger errors.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBadQuantity       = fmt.Errorf("%w: quantity must be positive", tx.ErrInvalidTransaction)
	ErrQuantityOverflow  = fmt.Errorf("%w: net quantity out of range", tx.ErrInvalidTransaction)
)

// StockError reports a removal larger than the available quantity.
type StockError struct {
	ItemID    string
	Available int64
	Requested int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// addQuantity returns a+b and false if the sum overflows int64.
func addQuantity(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
