package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Klingon-tech/stockchain/internal/rpc"
	"github.com/Klingon-tech/stockchain/internal/rpcclient"
	"github.com/Klingon-tech/stockchain/pkg/block"
	"github.com/Klingon-tech/stockchain/pkg/tx"
	"github.com/pterm/pterm"
)

const emptyWarehouse = "Warehouse is currently empty."

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var info rpc.ChainInfoResult
	if err := client.Call("chain_getInfo", nil, &info); err != nil {
		fatalCall("chain_getInfo", err)
	}

	fmt.Printf("Blocks:      %d\n", info.Length)
	fmt.Printf("Tip:         #%d %s\n", info.LatestIndex, info.LatestHash)
	fmt.Printf("Difficulty:  %d\n", info.Difficulty)
	fmt.Printf("Pending:     %d\n", info.Pending)
	fmt.Printf("Auto-mine:   %t\n", info.AutoMine)
	if info.LoadError != "" {
		pterm.Warning.Printfln("Stored chain was not loaded: %s", info.LoadError)
	}
}

// ── inventory ───────────────────────────────────────────────────────────

func cmdInventory(client *rpcclient.Client, args []string) {
	all := false
	for _, a := range args {
		switch a {
		case "--all", "-a":
			all = true
		default:
			fatal("Usage: stockchain-cli inventory [--all]")
		}
	}

	var inv rpc.InventoryResult
	if err := client.Call("inventory_get", rpc.InventoryParam{All: all}, &inv); err != nil {
		fatalCall("inventory_get", err)
	}

	out, err := renderInventory(inv.Items)
	if err != nil {
		fatal("render table: %v", err)
	}
	fmt.Print(out)
}

// renderInventory formats items as a table, or the empty-warehouse notice.
func renderInventory(items []rpc.ItemResult) (string, error) {
	if len(items) == 0 {
		return emptyWarehouse + "\n", nil
	}
	data := pterm.TableData{{"Item", "Quantity"}}
	for _, it := range items {
		data = append(data, []string{it.ItemID, strconv.FormatInt(it.Quantity, 10)})
	}
	return pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(data).Srender()
}

// ── item ────────────────────────────────────────────────────────────────

func cmdItem(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: stockchain-cli item <id>")
	}
	var item rpc.ItemResult
	if err := client.Call("inventory_getItem", rpc.ItemParam{ItemID: args[0]}, &item); err != nil {
		fatalCall("inventory_getItem", err)
	}
	fmt.Printf("%s: %d\n", item.ItemID, item.Quantity)
}

// ── add / remove ────────────────────────────────────────────────────────

func cmdStock(client *rpcclient.Client, method string, args []string) {
	if len(args) != 2 {
		fatal("Usage: stockchain-cli add|remove <id> <qty>")
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		fatal("%v", err)
	}

	var r rpc.ReceiptResult
	if err := client.Call(method, rpc.StockParam{ItemID: args[0], Quantity: qty}, &r); err != nil {
		fatalCall(method, err)
	}
	printReceipt(&r)
}

// parseQuantity accepts a positive base-10 integer.
func parseQuantity(s string) (int64, error) {
	qty, err := strconv.ParseInt(s, 10, 64)
	if err != nil || qty <= 0 {
		return 0, fmt.Errorf("quantity must be a positive whole number, got %q", s)
	}
	return qty, nil
}

// ── adjust / enqueue ────────────────────────────────────────────────────

func cmdAdjust(client *rpcclient.Client, method string, args []string) {
	if len(args) != 2 {
		fatal("Usage: stockchain-cli adjust|enqueue <id> <change>")
	}
	t, err := tx.Parse(args[0], args[1])
	if err != nil {
		fatal("%v", err)
	}

	var r rpc.ReceiptResult
	if err := client.Call(method, rpc.AdjustmentParam{ItemID: t.ItemID, Change: t.Change}, &r); err != nil {
		fatalCall(method, err)
	}
	printReceipt(&r)
}

func printReceipt(r *rpc.ReceiptResult) {
	pterm.Success.Printfln("%s %+d, now %d", r.ItemID, r.Change, r.Quantity)
	if r.Block != nil {
		fmt.Printf("Sealed in block #%d %s\n", r.Block.Index, r.Block.Hash)
	} else {
		fmt.Printf("Queued (%d pending)\n", r.Pending)
	}
	if r.PersistError != "" {
		pterm.Warning.Printfln("Block is not saved: %s", r.PersistError)
	}
}

// ── mine / pending ──────────────────────────────────────────────────────

func cmdMine(client *rpcclient.Client) {
	var res rpc.MineResult
	if err := client.Call("ledger_mine", nil, &res); err != nil {
		fatalCall("ledger_mine", err)
	}
	if !res.Mined {
		fmt.Println("Nothing to mine.")
		return
	}
	pterm.Success.Printfln("Sealed block #%d with %d adjustment(s)", res.Block.Index, len(res.Block.Transactions))
	fmt.Printf("Hash:    %s\n", res.Block.Hash)
	fmt.Printf("Nonce:   %d\n", res.Block.Nonce)
	if res.Pending > 0 {
		fmt.Printf("Pending: %d\n", res.Pending)
	}
	if res.PersistError != "" {
		pterm.Warning.Printfln("Block is not saved: %s", res.PersistError)
	}
}

func cmdPending(client *rpcclient.Client) {
	var res rpc.PendingResult
	if err := client.Call("ledger_getPending", nil, &res); err != nil {
		fatalCall("ledger_getPending", err)
	}
	if res.Count == 0 {
		fmt.Println("No pending adjustments.")
		return
	}
	data := pterm.TableData{{"#", "Item", "Change"}}
	for i, t := range res.Transactions {
		data = append(data, []string{strconv.Itoa(i + 1), t.ItemID, strconv.FormatInt(t.Change, 10)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fatal("render table: %v", err)
	}
}

// ── block ───────────────────────────────────────────────────────────────

func cmdBlock(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: stockchain-cli block <index|hash>")
	}

	arg := args[0]
	var blk block.Block

	// Try as index first (pure number).
	if index, err := strconv.ParseUint(arg, 10, 64); err == nil {
		if err := client.Call("chain_getBlockByIndex", rpc.IndexParam{Index: index}, &blk); err != nil {
			fatalCall("chain_getBlockByIndex", err)
		}
	} else {
		if err := client.Call("chain_getBlockByHash", rpc.HashParam{Hash: arg}, &blk); err != nil {
			fatalCall("chain_getBlockByHash", err)
		}
	}

	fmt.Print(formatBlock(&blk))
}

func formatBlock(blk *block.Block) string {
	prev := blk.PrevHash.String()
	if blk.IsGenesis() {
		prev = block.GenesisPrevHash
	}
	ts := time.Unix(int64(blk.Timestamp), 0).UTC()
	out := fmt.Sprintf("Index:        %d\n", blk.Index)
	out += fmt.Sprintf("Hash:         %s\n", blk.Hash)
	out += fmt.Sprintf("Prev:         %s\n", prev)
	out += fmt.Sprintf("Timestamp:    %s\n", ts.Format("2006-01-02 15:04:05 UTC"))
	out += fmt.Sprintf("Nonce:        %d\n", blk.Nonce)
	if blk.IsGenesis() {
		out += fmt.Sprintf("Payload:      %s\n", block.GenesisMarker)
		return out
	}
	out += fmt.Sprintf("Transactions: %d\n", len(blk.Transactions))
	for i, t := range blk.Transactions {
		out += fmt.Sprintf("  [%d] %s\n", i, t)
	}
	return out
}

// ── validate ────────────────────────────────────────────────────────────

func cmdValidate(client *rpcclient.Client) {
	var res rpc.ValidateResult
	if err := client.Call("chain_validate", nil, &res); err != nil {
		fatalCall("chain_validate", err)
	}
	if res.Valid {
		pterm.Success.Printfln("Chain is valid (%d blocks)", res.Length)
		return
	}
	if res.Index != nil {
		fatal("chain is INVALID at block %d (%s check): %s", *res.Index, res.Check, res.Error)
	}
	fatal("chain is INVALID: %s", res.Error)
}
