// stockchain-cli is a command-line client for interacting with a stockchaind node.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/internal/rpc"
	"github.com/Klingon-tech/stockchain/internal/rpcclient"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := config.Default().RPCEndpoint()
	timeout := 5 * time.Minute

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--timeout" && len(args) > 1:
			timeout = parseTimeout(args[1])
			args = args[2:]
		case strings.HasPrefix(args[0], "--timeout="):
			timeout = parseTimeout(args[0][len("--timeout="):])
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	// Plain output when piped.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		pterm.DisableStyling()
	}

	client := rpcclient.NewWithTimeout(rpcURL, timeout)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "inventory":
		cmdInventory(client, cmdArgs)
	case "item":
		cmdItem(client, cmdArgs)
	case "add":
		cmdStock(client, "ledger_addStock", cmdArgs)
	case "remove":
		cmdStock(client, "ledger_removeStock", cmdArgs)
	case "adjust":
		cmdAdjust(client, "ledger_submitAdjustment", cmdArgs)
	case "enqueue":
		cmdAdjust(client, "ledger_enqueue", cmdArgs)
	case "mine":
		cmdMine(client)
	case "pending":
		cmdPending(client)
	case "block":
		cmdBlock(client, cmdArgs)
	case "validate":
		cmdValidate(client)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: stockchain-cli [global flags] <command> [args]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8547/)
  --timeout <dur>     Request timeout, e.g. 30s or 10m (default: 5m)

Commands:
  status                          Show chain status
  inventory [--all]               Show stock levels (--all includes empty items)
  item <id>                       Show the quantity of one item
  add <id> <qty>                  Add qty units of an item
  remove <id> <qty>               Remove qty units of an item
  adjust <id> <change>            Record a signed change for an exact item id
  enqueue <id> <change>           Queue a change without mining
  mine                            Seal all queued changes into a block
  pending                         Show queued changes
  block <index|hash>              Show block details
  validate                        Verify every block in the chain
`)
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		fatal("invalid --timeout %q", s)
	}
	return d
}

// describeError turns well-known RPC errors into operator-facing text.
func describeError(err error) string {
	var rpcErr *rpcclient.RPCError
	if !errors.As(err, &rpcErr) {
		return err.Error()
	}
	switch rpcErr.Code {
	case rpc.CodeInsufficientStock:
		var data rpc.StockErrorData
		if rpcErr.DecodeData(&data) == nil {
			return fmt.Sprintf("Insufficient stock for %s: available %d, requested %d",
				data.ItemID, data.Available, data.Requested)
		}
	case rpc.CodeValidationFailed:
		var data rpc.ValidationErrorData
		if rpcErr.DecodeData(&data) == nil {
			return fmt.Sprintf("Chain failed validation at block %d (%s check); ledger is read-only until repaired",
				data.Index, data.Check)
		}
	case rpc.CodeInvalidParams:
		return "Invalid input: " + rpcErr.Message
	}
	return rpcErr.Message
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func fatalCall(method string, err error) {
	fatal("%s: %s", method, describeError(err))
}
