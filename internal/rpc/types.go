package rpc

import (
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError        = -32700
	CodeInvalidRequest    = -32600
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeInternalError     = -32603
	CodeNotFound          = -32000
	CodeInsufficientStock = -32001
	CodeValidationFailed  = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AdjustmentParam is used by ledger_submitAdjustment and ledger_enqueue.
type AdjustmentParam struct {
	ItemID string `json:"item_id"`
	Change int64  `json:"change"`
}

// StockParam is used by ledger_addStock and ledger_removeStock.
type StockParam struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// ItemParam is used by inventory_getItem.
type ItemParam struct {
	ItemID string `json:"item_id"`
}

// InventoryParam is used by inventory_get. Params may be omitted.
type InventoryParam struct {
	All bool `json:"all,omitempty"` // Include items at or below zero.
}

// IndexParam is used by chain_getBlockByIndex.
type IndexParam struct {
	Index uint64 `json:"index"`
}

// HashParam is used by chain_getBlockByHash.
type HashParam struct {
	Hash string `json:"hash"`
}

// ── Result types ────────────────────────────────────────────────────────

// ReceiptResult is returned by the ledger submission methods.
type ReceiptResult struct {
	ItemID       string       `json:"item_id"`
	Change       int64        `json:"change"`
	Quantity     int64        `json:"quantity"`
	Mined        bool         `json:"mined"`
	Block        *block.Block `json:"block,omitempty"`
	Pending      int          `json:"pending"`
	PersistError string       `json:"persist_error,omitempty"`
}

// MineResult is returned by ledger_mine.
type MineResult struct {
	Mined        bool         `json:"mined"`
	Block        *block.Block `json:"block,omitempty"`
	Pending      int          `json:"pending"`
	PersistError string       `json:"persist_error,omitempty"`
}

// PendingResult is returned by ledger_getPending.
type PendingResult struct {
	Count        int              `json:"count"`
	Transactions []tx.Transaction `json:"transactions"`
}

// ItemResult is one inventory line.
type ItemResult struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// InventoryResult is returned by inventory_get. Items are sorted by id.
type InventoryResult struct {
	Items       []ItemResult `json:"items"`
	ChainLength int          `json:"chain_length"`
}

// ChainInfoResult is returned by chain_getInfo.
type ChainInfoResult struct {
	Length      int    `json:"length"`
	LatestIndex uint64 `json:"latest_index"`
	LatestHash  string `json:"latest_hash"`
	Difficulty  int    `json:"difficulty"`
	Pending     int    `json:"pending"`
	AutoMine    bool   `json:"auto_mine"`
	LoadError   string `json:"load_error,omitempty"`
}

// ValidateResult is returned by chain_validate.
type ValidateResult struct {
	Valid  bool    `json:"valid"`
	Length int     `json:"length"`
	Index  *uint64 `json:"index,omitempty"` // First offending block.
	Check  string  `json:"check,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// StockErrorData is attached to CodeInsufficientStock errors.
type StockErrorData struct {
	ItemID    string `json:"item_id"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

// ValidationErrorData is attached to CodeValidationFailed errors.
type ValidationErrorData struct {
	Index uint64 `json:"index"`
	Check string `json:"check"`
}
