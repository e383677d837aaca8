// Package tx defines the inventory adjustment transaction.
package tx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/pkg/crypto"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// ErrInvalidTransaction is the root of every shape error below.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Validation errors.
var (
	ErrEmptyItemID    = fmt.Errorf("%w: item id is empty", ErrInvalidTransaction)
	ErrItemIDTooLong  = fmt.Errorf("%w: item id too long", ErrInvalidTransaction)
	ErrItemIDEncoding = fmt.Errorf("%w: item id is not valid UTF-8", ErrInvalidTransaction)
	ErrItemIDControl  = fmt.Errorf("%w: item id contains control characters", ErrInvalidTransaction)
	ErrBadChange      = fmt.Errorf("%w: change is not an integer", ErrInvalidTransaction)
	ErrChangeRange    = fmt.Errorf("%w: change out of range", ErrInvalidTransaction)
)

// Transaction is one inventory delta. It is a value type; once built by
// New it is never modified.
type Transaction struct {
	ItemID string `json:"item_id"`
	Change int64  `json:"change"`
}

// New builds a transaction with the item id in its normalized form and
// rejects malformed ids.
func New(itemID string, change int64) (Transaction, error) {
	t := Transaction{ItemID: NormalizeItemID(itemID), Change: change}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Parse builds a transaction from untyped text input, as submitted by a
// form or command line. change must be a base-10 integer.
func Parse(itemID, change string) (Transaction, error) {
	c, err := strconv.ParseInt(strings.TrimSpace(change), 10, 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %q", ErrBadChange, change)
	}
	return New(itemID, c)
}

// NormalizeItemID is the canonical item id: trimmed and upper-cased so
// "sku-1" and " SKU-1 " are the same item.
func NormalizeItemID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Validate checks the transaction shape.
func (t Transaction) Validate() error {
	if t.ItemID == "" {
		return ErrEmptyItemID
	}
	if len(t.ItemID) > config.MaxItemIDLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrItemIDTooLong, len(t.ItemID), config.MaxItemIDLen)
	}
	if !utf8.ValidString(t.ItemID) {
		return ErrItemIDEncoding
	}
	if strings.TrimSpace(t.ItemID) != t.ItemID {
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidTransaction)
	}
	for _, r := range t.ItemID {
		if unicode.IsControl(r) {
			return ErrItemIDControl
		}
	}
	// -MinInt64 is not representable.
	if t.Change == math.MinInt64 {
		return ErrChangeRange
	}
	return nil
}

// AppendBytes appends the canonical encoding of t to buf.
// Format: item_id_len(4) | item_id | change(8), little-endian.
func (t Transaction) AppendBytes(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.ItemID)))
	buf = append(buf, t.ItemID...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Change))
	return buf
}

// SigningBytes returns the canonical bytes for hashing.
func (t Transaction) SigningBytes() []byte {
	return t.AppendBytes(make([]byte, 0, 12+len(t.ItemID)))
}

// Hash returns the digest of the canonical encoding.
func (t Transaction) Hash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// String formats the adjustment as "ITEM+10" / "ITEM-3".
func (t Transaction) String() string {
	return fmt.Sprintf("%s%+d", t.ItemID, t.Change)
}
