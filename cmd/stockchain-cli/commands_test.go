package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/stockchain/internal/rpc"
	"github.com/Klingon-tech/stockchain/internal/rpcclient"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/pterm/pterm"
)

func TestRenderInventory_Empty(t *testing.T) {
	out, err := renderInventory(nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Warehouse is currently empty.\n" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderInventory_Table(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	out, err := renderInventory([]rpc.ItemResult{{ItemID: "A", Quantity: 7}, {ItemID: "BOLT", Quantity: 125}})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Item", "Quantity", "BOLT", "125", "7"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if q, err := parseQuantity("12"); err != nil || q != 12 {
		t.Errorf("parseQuantity(12) = %d, %v", q, err)
	}
	for _, bad := range []string{"0", "-3", "1.5", "ten", ""} {
		if _, err := parseQuantity(bad); err == nil {
			t.Errorf("parseQuantity(%q) should fail", bad)
		}
	}
}

func TestFormatBlock(t *testing.T) {
	genesis := block.New(block.NewGenesisContent(0), 0)
	out := formatBlock(genesis)
	if !strings.Contains(out, "Prev:         0\n") || !strings.Contains(out, block.GenesisMarker) {
		t.Errorf("genesis output:\n%s", out)
	}

	adj, _ := tx.New("A", -3)
	blk := block.New(block.Content{
		Index:        1,
		Timestamp:    60,
		PrevHash:     genesis.Hash,
		Transactions: []tx.Transaction{adj},
	}, 9)
	out = formatBlock(blk)
	for _, want := range []string{"Index:        1", genesis.Hash.String(), "Nonce:        9", "[0] A-3", "1970-01-01 00:01:00 UTC"} {
		if !strings.Contains(out, want) {
			t.Errorf("block output missing %q:\n%s", want, out)
		}
	}
}

func TestDescribeError(t *testing.T) {
	data, _ := json.Marshal(rpc.StockErrorData{ItemID: "A", Available: 7, Requested: 8})
	err := &rpcclient.RPCError{Code: rpc.CodeInsufficientStock, Message: "insufficient stock", Data: data}
	if got := describeError(err); got != "Insufficient stock for A: available 7, requested 8" {
		t.Errorf("describeError = %q", got)
	}

	data, _ = json.Marshal(rpc.ValidationErrorData{Index: 2, Check: "link"})
	err = &rpcclient.RPCError{Code: rpc.CodeValidationFailed, Message: "x", Data: data}
	if got := describeError(err); !strings.Contains(got, "block 2 (link check)") {
		t.Errorf("describeError = %q", got)
	}

	if got := describeError(errors.New("connection refused")); got != "connection refused" {
		t.Errorf("describeError = %q", got)
	}
}
