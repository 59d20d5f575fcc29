// sft-cli is a command-line client for interacting with an sftd node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ldclabs/ic-sft/internal/ledger"
	"github.com/ldclabs/ic-sft/internal/rpc"
	"github.com/ldclabs/ic-sft/internal/rpcclient"
	"github.com/ldclabs/ic-sft/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8547"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
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

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "collection":
		cmdCollection(client)
	case "tokens":
		cmdTokens(client, cmdArgs)
	case "tokens-of":
		cmdTokensOf(client, cmdArgs)
	case "tokens-in":
		cmdTokensIn(client, cmdArgs)
	case "token":
		cmdToken(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "blocks":
		cmdBlocks(client, cmdArgs)
	case "tip":
		cmdTip(client)
	case "approvals":
		cmdApprovals(client, cmdArgs)
	case "transfer":
		cmdTransfer(client, cmdArgs)
	case "mint":
		cmdMint(client, cmdArgs)
	case "create-token":
		cmdCreateToken(client, cmdArgs)
	case "asset":
		cmdAsset(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sft-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8547)

Commands:
  status                          Show ledger status
  collection                      Show collection metadata
  tokens [--prev <id> --take <n>] List token IDs
  tokens-of <owner> [--prev <id> --take <n>]
                                  List token IDs held by a principal
  tokens-in <token_id> [--prev <id> --take <n>]
                                  List sub-items minted in a token group
  token <token_id>                Show token metadata and owner
  balance <owner>                 Show a principal's balance
  blocks [--start <n> --take <n>] Show raw blocks from the log
  tip                             Show the chain head certificate
  approvals token <token_id>      List approvals on a token
  approvals collection <owner>    List a principal's collection approvals
  transfer --caller <hex> --to <hex> --token <id>
                                  Transfer one token
  mint --caller <hex> --token <id> --holders <hex,...>
                                  Mint sub-items to holders
  create-token --caller <hex> --name <n> --asset-name <n> --asset-type <mime> --asset <file>
                                  Create a new token group
  asset <token_id> [--out <file>] Fetch a token group's asset

Principals are hex encoded everywhere.
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode output: %v", err)
	}
	fmt.Println(string(data))
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var symbol, name string
	if err := client.Call("icrc7_symbol", nil, &symbol); err != nil {
		fatal("icrc7_symbol: %v", err)
	}
	if err := client.Call("icrc7_name", nil, &name); err != nil {
		fatal("icrc7_name: %v", err)
	}
	var supply uint64
	if err := client.Call("icrc7_total_supply", nil, &supply); err != nil {
		fatal("icrc7_total_supply: %v", err)
	}

	fmt.Printf("Symbol:  %s\n", symbol)
	fmt.Printf("Name:    %s\n", name)
	fmt.Printf("Supply:  %d\n", supply)

	var tip ledger.TipCertificate
	err := client.Call("icrc3_get_tip_certificate", nil, &tip)
	if err != nil {
		fmt.Printf("Blocks:  0\n")
	} else {
		fmt.Printf("Blocks:  %d\n", tip.LastBlockIndex+1)
		fmt.Printf("Tip:     %s\n", tip.LastBlockHash)
	}
}

// ── collection ──────────────────────────────────────────────────────────

func cmdCollection(client *rpcclient.Client) {
	var raw json.RawMessage
	if err := client.Call("icrc7_collection_metadata", nil, &raw); err != nil {
		fatal("icrc7_collection_metadata: %v", err)
	}
	printJSON(raw)
}

// ── tokens ──────────────────────────────────────────────────────────────

func pageFlags(name string, args []string) (prev, take *uint64, rest []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	p := fs.Uint64("prev", 0, "Last token ID of the previous page")
	t := fs.Uint64("take", 0, "Page size")
	fs.Parse(args)
	if *p != 0 {
		prev = p
	}
	if *t != 0 {
		take = t
	}
	return prev, take, fs.Args()
}

func cmdTokens(client *rpcclient.Client, args []string) {
	prev, take, _ := pageFlags("tokens", args)
	var ids []uint64
	if err := client.Call("icrc7_tokens", rpc.PageParam{Prev: prev, Take: take}, &ids); err != nil {
		fatal("icrc7_tokens: %v", err)
	}
	printJSON(ids)
}

func cmdTokensOf(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sft-cli tokens-of <owner> [--prev <id> --take <n>]")
	}
	owner, err := types.PrincipalFromText(args[0])
	if err != nil {
		fatal("invalid owner: %v", err)
	}
	prev, take, _ := pageFlags("tokens-of", args[1:])

	var ids []uint64
	p := rpc.TokensOfParam{Account: types.Account{Owner: owner}, Prev: prev, Take: take}
	if err := client.Call("icrc7_tokens_of", p, &ids); err != nil {
		fatal("icrc7_tokens_of: %v", err)
	}
	printJSON(ids)
}

func cmdTokensIn(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sft-cli tokens-in <token_id> [--prev <id> --take <n>]")
	}
	tid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid token ID: %v", err)
	}
	prev, take, _ := pageFlags("tokens-in", args[1:])

	var ids []uint64
	if err := client.Call("sft_tokens_in", rpc.TokensInParam{TokenID: tid, Prev: prev, Take: take}, &ids); err != nil {
		fatal("sft_tokens_in: %v", err)
	}
	printJSON(ids)
}

// ── token ───────────────────────────────────────────────────────────────

func cmdToken(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sft-cli token <token_id>")
	}
	tid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid token ID: %v", err)
	}

	var meta []json.RawMessage
	if err := client.Call("icrc7_token_metadata", rpc.TokenIDsParam{TokenIDs: []uint64{tid}}, &meta); err != nil {
		fatal("icrc7_token_metadata: %v", err)
	}
	if len(meta) == 0 || string(meta[0]) == "null" {
		fatal("token %d does not exist", tid)
	}
	printJSON(meta[0])

	var owners []*types.Account
	if err := client.Call("icrc7_owner_of", rpc.TokenIDsParam{TokenIDs: []uint64{tid}}, &owners); err != nil {
		fatal("icrc7_owner_of: %v", err)
	}
	if len(owners) > 0 && owners[0] != nil {
		fmt.Printf("Owner: %s\n", owners[0].Owner)
	}
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sft-cli balance <owner>")
	}
	owner, err := types.PrincipalFromText(args[0])
	if err != nil {
		fatal("invalid owner: %v", err)
	}

	var balances []uint64
	p := rpc.AccountsParam{Accounts: []types.Account{{Owner: owner}}}
	if err := client.Call("icrc7_balance_of", p, &balances); err != nil {
		fatal("icrc7_balance_of: %v", err)
	}
	if len(balances) > 0 {
		fmt.Println(balances[0])
	}
}

// ── blocks ──────────────────────────────────────────────────────────────

func cmdBlocks(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("blocks", flag.ExitOnError)
	start := fs.Uint64("start", 0, "First block index")
	take := fs.Uint64("take", 10, "Number of blocks")
	fs.Parse(args)

	var res struct {
		LogLength uint64            `json:"log_length"`
		Blocks    []json.RawMessage `json:"blocks"`
	}
	if err := client.Call("icrc3_get_blocks", rpc.GetBlocksParam{Start: *start, Take: *take}, &res); err != nil {
		fatal("icrc3_get_blocks: %v", err)
	}
	fmt.Printf("Log length: %d\n", res.LogLength)
	printJSON(res.Blocks)
}

func cmdTip(client *rpcclient.Client) {
	var tip ledger.TipCertificate
	if err := client.Call("icrc3_get_tip_certificate", nil, &tip); err != nil {
		fatal("icrc3_get_tip_certificate: %v", err)
	}
	printJSON(tip)
}

// ── approvals ───────────────────────────────────────────────────────────

func cmdApprovals(client *rpcclient.Client, args []string) {
	if len(args) < 2 {
		fatal("Usage: sft-cli approvals token <token_id> | approvals collection <owner>")
	}
	switch args[0] {
	case "token":
		tid, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fatal("invalid token ID: %v", err)
		}
		var out []ledger.TokenApproval
		if err := client.Call("icrc37_get_token_approvals", rpc.TokenApprovalsParam{TokenID: tid}, &out); err != nil {
			fatal("icrc37_get_token_approvals: %v", err)
		}
		printJSON(out)
	case "collection":
		owner, err := types.PrincipalFromText(args[1])
		if err != nil {
			fatal("invalid owner: %v", err)
		}
		var out []ledger.CollectionApproval
		p := rpc.CollectionApprovalsParam{Owner: types.Account{Owner: owner}}
		if err := client.Call("icrc37_get_collection_approvals", p, &out); err != nil {
			fatal("icrc37_get_collection_approvals: %v", err)
		}
		printJSON(out)
	default:
		fatal("Usage: sft-cli approvals token <token_id> | approvals collection <owner>")
	}
}

// ── transfer ────────────────────────────────────────────────────────────

func cmdTransfer(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	callerHex := fs.String("caller", "", "Caller principal (hex)")
	toHex := fs.String("to", "", "Recipient principal (hex)")
	token := fs.Uint64("token", 0, "Token ID")
	fs.Parse(args)

	caller, err := types.PrincipalFromText(*callerHex)
	if err != nil {
		fatal("invalid caller: %v", err)
	}
	to, err := types.PrincipalFromText(*toHex)
	if err != nil {
		fatal("invalid recipient: %v", err)
	}
	if *token == 0 {
		fatal("--token is required")
	}

	created := uint64(time.Now().UnixNano())
	p := rpc.TransferParam{
		CallerParam: rpc.CallerParam{Caller: caller},
		Args: []ledger.TransferArg{{
			To:            types.Account{Owner: to},
			TokenID:       *token,
			CreatedAtTime: &created,
		}},
	}

	var res []json.RawMessage
	if err := client.Call("icrc7_transfer", p, &res); err != nil {
		fatal("icrc7_transfer: %v", err)
	}
	printJSON(res)
}

// ── mint ────────────────────────────────────────────────────────────────

func cmdMint(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	callerHex := fs.String("caller", "", "Caller principal (hex)")
	token := fs.Uint64("token", 0, "Token ID")
	holdersArg := fs.String("holders", "", "Recipient principals (comma-separated hex)")
	fs.Parse(args)

	caller, err := types.PrincipalFromText(*callerHex)
	if err != nil {
		fatal("invalid caller: %v", err)
	}
	if *token == 0 {
		fatal("--token is required")
	}

	var holders []types.Principal
	for _, h := range strings.Split(*holdersArg, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		p, err := types.PrincipalFromText(h)
		if err != nil {
			fatal("invalid holder %q: %v", h, err)
		}
		holders = append(holders, p)
	}
	if len(holders) == 0 {
		fatal("--holders is required")
	}

	p := rpc.MintParam{
		CallerParam: rpc.CallerParam{Caller: caller},
		MintArg:     ledger.MintArg{TokenID: *token, Holders: holders},
	}

	var block uint64
	if err := client.Call("sft_mint", p, &block); err != nil {
		fatal("sft_mint: %v", err)
	}
	fmt.Printf("Minted %d sub-items in block %d\n", len(holders), block)
}

// ── create-token ────────────────────────────────────────────────────────

func cmdCreateToken(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("create-token", flag.ExitOnError)
	callerHex := fs.String("caller", "", "Caller principal (hex)")
	name := fs.String("name", "", "Token name")
	desc := fs.String("description", "", "Token description")
	assetName := fs.String("asset-name", "", "Asset file name")
	assetType := fs.String("asset-type", "application/octet-stream", "Asset content type")
	assetFile := fs.String("asset", "", "Asset file path")
	supplyCap := fs.Uint("supply-cap", 0, "Maximum sub-items (0 = unlimited)")
	authorHex := fs.String("author", "", "Author principal (hex, defaults to caller)")
	fs.Parse(args)

	caller, err := types.PrincipalFromText(*callerHex)
	if err != nil {
		fatal("invalid caller: %v", err)
	}
	if *name == "" || *assetName == "" || *assetFile == "" {
		fatal("--name, --asset-name and --asset are required")
	}

	content, err := os.ReadFile(*assetFile)
	if err != nil {
		fatal("read asset: %v", err)
	}

	author := caller
	if *authorHex != "" {
		author, err = types.PrincipalFromText(*authorHex)
		if err != nil {
			fatal("invalid author: %v", err)
		}
	}

	p := rpc.CreateTokenParam{
		CallerParam: rpc.CallerParam{Caller: caller},
		CreateTokenArg: ledger.CreateTokenArg{
			Name:             *name,
			Description:      *desc,
			AssetName:        *assetName,
			AssetContentType: *assetType,
			AssetContent:     content,
			SupplyCap:        uint32(*supplyCap),
			Author:           author,
		},
	}

	var id uint32
	if err := client.Call("sft_create_token", p, &id); err != nil {
		fatal("sft_create_token: %v", err)
	}
	fmt.Printf("Created token group %d\n", id)
}

// ── asset ───────────────────────────────────────────────────────────────

func cmdAsset(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: sft-cli asset <token_id> [--out <file>]")
	}
	tid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid token ID: %v", err)
	}

	fs := flag.NewFlagSet("asset", flag.ExitOnError)
	out := fs.String("out", "", "Write asset content to file")
	fs.Parse(args[1:])

	var res rpc.AssetResult
	if err := client.Call("sft_asset", rpc.AssetParam{TokenID: tid}, &res); err != nil {
		fatal("sft_asset: %v", err)
	}

	if *out != "" {
		if err := os.WriteFile(*out, res.Content, 0644); err != nil {
			fatal("write asset: %v", err)
		}
		fmt.Printf("Wrote %d bytes (%s) to %s\n", len(res.Content), res.ContentType, *out)
		return
	}
	fmt.Printf("Content type: %s\n", res.ContentType)
	fmt.Printf("Size:         %d bytes\n", len(res.Content))
}
