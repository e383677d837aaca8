package rpcclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Klingon-tech/stockchain/internal/chain"
	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/internal/ledger"
	klog "github.com/Klingon-tech/stockchain/internal/log"
	"github.com/Klingon-tech/stockchain/internal/rpc"
	"github.com/Klingon-tech/stockchain/pkg/block"
)

type testEnv struct {
	client *Client
	ledger *ledger.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.SetOutput(io.Discard, "error")

	pow, err := consensus.NewPoW(1)
	if err != nil {
		t.Fatalf("create pow: %v", err)
	}
	ch, err := chain.New(nil, pow)
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}
	svc := ledger.NewService(ch, ledger.DefaultOptions())

	// Create and start RPC server on random port.
	srv := rpc.New("127.0.0.1:0", svc)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client: New("http://" + srv.Addr() + "/"),
		ledger: svc,
	}
}

func TestClient_ChainGetInfo(t *testing.T) {
	env := setupTestEnv(t)

	var result rpc.ChainInfoResult
	if err := env.client.Call("chain_getInfo", nil, &result); err != nil {
		t.Fatalf("Call error: %v", err)
	}

	if result.Length != 1 {
		t.Errorf("length = %d, want 1", result.Length)
	}
	if result.LatestHash == "" {
		t.Error("latest_hash is empty")
	}
}

func TestClient_AddStockAndGetBlock(t *testing.T) {
	env := setupTestEnv(t)

	var r rpc.ReceiptResult
	if err := env.client.Call("ledger_addStock", rpc.StockParam{ItemID: "widget", Quantity: 12}, &r); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if r.ItemID != "WIDGET" || r.Quantity != 12 || !r.Mined {
		t.Fatalf("receipt = %+v", r)
	}

	var blk block.Block
	if err := env.client.Call("chain_getBlockByIndex", rpc.IndexParam{Index: 1}, &blk); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if blk.Hash != r.Block.Hash {
		t.Errorf("hash = %s, want %s", blk.Hash, r.Block.Hash)
	}
	if !blk.HashValid() {
		t.Error("decoded block hash does not match its content")
	}
}

func TestClient_InsufficientStockData(t *testing.T) {
	env := setupTestEnv(t)
	env.client.Call("ledger_addStock", rpc.StockParam{ItemID: "A", Quantity: 2}, nil)

	err := env.client.Call("ledger_removeStock", rpc.StockParam{ItemID: "A", Quantity: 5}, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeInsufficientStock {
		t.Fatalf("error code = %d, want %d", rpcErr.Code, rpc.CodeInsufficientStock)
	}
	var data rpc.StockErrorData
	if err := rpcErr.DecodeData(&data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.Available != 2 || data.Requested != 5 {
		t.Errorf("data = %+v", data)
	}
}

func TestClient_GetBlockByHash_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	err := env.client.Call("chain_getBlockByHash", rpc.HashParam{Hash: strings.Repeat("00", 32)}, nil)
	if err == nil {
		t.Fatal("expected error for non-existent block")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32000 {
		t.Errorf("error code = %d, want -32000", rpcErr.Code)
	}
	if err := rpcErr.DecodeData(&struct{}{}); err == nil {
		t.Error("expected error decoding absent data")
	}
}

func TestClient_Call_InvalidEndpoint(t *testing.T) {
	client := New("http://127.0.0.1:1/") // port 1, should refuse

	var result rpc.ChainInfoResult
	err := client.Call("chain_getInfo", nil, &result)
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestClient_CallContext_Canceled(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := env.client.CallContext(ctx, "chain_getInfo", nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClient_Call_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	err := env.client.Call("nonexistent_method", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("error code = %d, want -32601", rpcErr.Code)
	}
}
