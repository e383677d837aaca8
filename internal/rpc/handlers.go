package rpc

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/stockchain/internal/chain"
	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/internal/ledger"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/Klingon-tech/stockchain/pkg/types"
)

// ── Ledger endpoints ────────────────────────────────────────────────────

func (s *Server) handleLedgerSubmitAdjustment(req *Request) (interface{}, *Error) {
	var params AdjustmentParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	r, err := s.ledger.SubmitAdjustment(params.ItemID, params.Change)
	if err != nil {
		return nil, toRPCError(err)
	}
	return newReceiptResult(r), nil
}

func (s *Server) handleLedgerAddStock(req *Request) (interface{}, *Error) {
	var params StockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	r, err := s.ledger.AddStock(params.ItemID, params.Quantity)
	if err != nil {
		return nil, toRPCError(err)
	}
	return newReceiptResult(r), nil
}

func (s *Server) handleLedgerRemoveStock(req *Request) (interface{}, *Error) {
	var params StockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	r, err := s.ledger.RemoveStock(params.ItemID, params.Quantity)
	if err != nil {
		return nil, toRPCError(err)
	}
	return newReceiptResult(r), nil
}

func (s *Server) handleLedgerEnqueue(req *Request) (interface{}, *Error) {
	var params AdjustmentParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	r, err := s.ledger.Enqueue(params.ItemID, params.Change)
	if err != nil {
		return nil, toRPCError(err)
	}
	return newReceiptResult(r), nil
}

func (s *Server) handleLedgerMine(_ *Request) (interface{}, *Error) {
	blk, err := s.ledger.Mine()
	res := &MineResult{Mined: blk != nil, Block: blk}
	if err != nil {
		if blk == nil || !errors.Is(err, chain.ErrPersistence) {
			return nil, toRPCError(err)
		}
		res.PersistError = err.Error()
	}
	res.Pending = len(s.ledger.Pending())
	return res, nil
}

func (s *Server) handleLedgerGetPending(_ *Request) (interface{}, *Error) {
	pending := s.ledger.Pending()
	return &PendingResult{Count: len(pending), Transactions: pending}, nil
}

// ── Inventory endpoints ─────────────────────────────────────────────────

func (s *Server) handleInventoryGet(req *Request) (interface{}, *Error) {
	var params InventoryParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	inv, err := s.ledger.Inventory()
	if err != nil {
		return nil, toRPCError(err)
	}
	if !params.All {
		inv = inv.InStock()
	}
	items := make([]ItemResult, 0, len(inv))
	for _, id := range inv.Items() {
		items = append(items, ItemResult{ItemID: id, Quantity: inv[id]})
	}
	return &InventoryResult{Items: items, ChainLength: s.ledger.ChainLength()}, nil
}

func (s *Server) handleInventoryGetItem(req *Request) (interface{}, *Error) {
	var params ItemParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id := tx.NormalizeItemID(params.ItemID)
	if id == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "item_id is required"}
	}
	qty, err := s.ledger.Quantity(id)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &ItemResult{ItemID: id, Quantity: qty}, nil
}

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetInfo(_ *Request) (interface{}, *Error) {
	c := s.ledger.Chain()
	latest, err := c.Latest()
	if err != nil {
		return nil, toRPCError(err)
	}
	res := &ChainInfoResult{
		Length:      c.Len(),
		LatestIndex: latest.Index,
		LatestHash:  latest.Hash.String(),
		Difficulty:  c.Difficulty(),
		Pending:     len(c.Pending()),
		AutoMine:    s.ledger.AutoMine(),
	}
	if loadErr := c.LoadErr(); loadErr != nil {
		res.LoadError = loadErr.Error()
	}
	return res, nil
}

func (s *Server) handleChainGetBlockByIndex(req *Request) (interface{}, *Error) {
	var params IndexParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	blk, err := s.ledger.Chain().BlockByIndex(params.Index)
	if err != nil {
		return nil, toRPCError(err)
	}
	return blk, nil
}

func (s *Server) handleChainGetBlockByHash(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Hash == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "hash is required"}
	}
	hash, err := types.HexToHash(params.Hash)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash: must be 32-byte hex"}
	}
	blk, err := s.ledger.Chain().BlockByHash(hash)
	if err != nil {
		return nil, toRPCError(err)
	}
	return blk, nil
}

func (s *Server) handleChainValidate(_ *Request) (interface{}, *Error) {
	res := &ValidateResult{Valid: true, Length: s.ledger.ChainLength()}
	err := s.ledger.Validate()
	if err == nil {
		return res, nil
	}
	res.Valid = false
	res.Error = err.Error()
	var ve *consensus.ValidationError
	if errors.As(err, &ve) {
		idx := ve.Index
		res.Index = &idx
		res.Check = string(ve.Check)
	}
	return res, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

func newReceiptResult(r *ledger.Receipt) *ReceiptResult {
	res := &ReceiptResult{
		ItemID:   r.Transaction.ItemID,
		Change:   r.Transaction.Change,
		Quantity: r.Quantity,
		Mined:    r.Block != nil,
		Block:    r.Block,
		Pending:  r.Pending,
	}
	if r.PersistErr != nil {
		res.PersistError = r.PersistErr.Error()
	}
	return res
}

// toRPCError maps ledger, chain and validation errors onto JSON-RPC codes.
func toRPCError(err error) *Error {
	var (
		se *ledger.StockError
		ve *consensus.ValidationError
	)
	switch {
	case errors.As(err, &se):
		return &Error{
			Code:    CodeInsufficientStock,
			Message: err.Error(),
			Data:    &StockErrorData{ItemID: se.ItemID, Available: se.Available, Requested: se.Requested},
		}
	case errors.Is(err, tx.ErrInvalidTransaction):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.As(err, &ve):
		return &Error{
			Code:    CodeValidationFailed,
			Message: err.Error(),
			Data:    &ValidationErrorData{Index: ve.Index, Check: string(ve.Check)},
		}
	case errors.Is(err, consensus.ErrValidation), errors.Is(err, chain.ErrEmptyChain):
		return &Error{Code: CodeValidationFailed, Message: err.Error()}
	case errors.Is(err, chain.ErrBlockNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: fmt.Sprintf("internal error: %v", err)}
	}
}

