// Package blocklog implements the ledger's certified transaction log: a
// hash-chained sequence of blocks over an append-only storage region.
package blocklog

import (
	"errors"
	"fmt"

	"github.com/ldclabs/ic-sft/pkg/types"
)

// Operation tags recorded in the btype field of a block.
const (
	OpMint              = "7mint"
	OpBurn              = "7burn" // reserved tag, no operation constructs it yet
	OpTransfer          = "7xfer"
	OpUpdate            = "7update"
	OpApprove           = "37appr"
	OpApproveCollection = "37appr_coll"
	OpRevoke            = "37revoke"
	OpRevokeCollection  = "37revoke_coll"
	OpTransferFrom      = "37xfer"
)

// Block decoding errors.
var (
	ErrNotMap         = errors.New("block must be a map value")
	ErrMissingField   = errors.New("block is missing a required field")
	ErrMalformedField = errors.New("block field has the wrong shape")
)

// Transaction is the in-memory staging record for one ledger operation.
// Optional fields are pointers or nil-able so that absence never writes a
// placeholder into the block.
type Transaction struct {
	Ts            uint64 // block timestamp in nanoseconds
	Op            string
	Tid           uint64
	From          *types.Account
	To            *types.Account
	Spender       *types.Account
	Exp           *uint64
	Meta          types.Map
	Memo          []byte
	CreatedAtTime *uint64 // caller-supplied creation time in nanoseconds
}

// MintTransaction records a mint of token tid to the recipient.
func MintTransaction(ts, tid uint64, to types.Account, meta types.Map, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpMint,
		Tid:           tid,
		To:            &to,
		Meta:          meta,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// TransferTransaction records an owner-initiated transfer of tid.
func TransferTransaction(ts, tid uint64, from, to types.Account, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpTransfer,
		Tid:           tid,
		From:          &from,
		To:            &to,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// TransferFromTransaction records a spender-initiated transfer of tid.
func TransferFromTransaction(ts, tid uint64, from, to, spender types.Account, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpTransferFrom,
		Tid:           tid,
		From:          &from,
		To:            &to,
		Spender:       &spender,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// UpdateTransaction records a metadata update of token tid by its minter.
func UpdateTransaction(ts, tid uint64, from types.Account, meta types.Map, memo []byte) Transaction {
	return Transaction{
		Ts:   ts,
		Op:   OpUpdate,
		Tid:  tid,
		From: &from,
		Meta: meta,
		Memo: memo,
	}
}

// ApproveTransaction records a token-level approval granted by from to spender.
func ApproveTransaction(ts, tid uint64, from, spender types.Account, exp *uint64, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpApprove,
		Tid:           tid,
		From:          &from,
		Spender:       &spender,
		Exp:           exp,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// ApproveCollectionTransaction records a collection-level approval. The tid
// of a collection approval block is always zero.
func ApproveCollectionTransaction(ts uint64, from, spender types.Account, exp *uint64, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpApproveCollection,
		Tid:           0,
		From:          &from,
		Spender:       &spender,
		Exp:           exp,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// RevokeTransaction records revocation of token-level approvals. A nil
// spender revokes for all spenders.
func RevokeTransaction(ts, tid uint64, from types.Account, spender *types.Account, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpRevoke,
		Tid:           tid,
		From:          &from,
		Spender:       spender,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// RevokeCollectionTransaction records revocation of collection-level
// approvals. A nil spender revokes for all spenders.
func RevokeCollectionTransaction(ts uint64, from types.Account, spender *types.Account, memo []byte, createdAt *uint64) Transaction {
	return Transaction{
		Ts:            ts,
		Op:            OpRevokeCollection,
		Tid:           0,
		From:          &from,
		Spender:       spender,
		Memo:          memo,
		CreatedAtTime: createdAt,
	}
}

// Block is one entry of the transaction log. PHash is the hash of the
// previous block and is absent only for the genesis block.
type Block struct {
	PHash *types.Hash
	Tx    Transaction
}

// ToValue builds the canonical value representation of the block. Field
// keys follow the ICRC-3 conventions: optional fields are omitted rather
// than written with sentinel values.
func (b Block) ToValue() types.Value {
	tx := types.Map{"tid": types.Nat(b.Tx.Tid)}
	if b.Tx.From != nil {
		tx["from"] = types.AccountValue(*b.Tx.From)
	}
	if b.Tx.To != nil {
		tx["to"] = types.AccountValue(*b.Tx.To)
	}
	if b.Tx.Spender != nil {
		tx["spender"] = types.AccountValue(*b.Tx.Spender)
	}
	if b.Tx.Exp != nil {
		tx["exp"] = types.Nat(*b.Tx.Exp)
	}
	if b.Tx.Meta != nil {
		tx["meta"] = b.Tx.Meta
	}
	if len(b.Tx.Memo) > 0 {
		tx["memo"] = types.Blob(b.Tx.Memo)
	}
	if b.Tx.CreatedAtTime != nil {
		tx["ts"] = types.Nat(*b.Tx.CreatedAtTime)
	}

	m := types.Map{
		"btype": types.Text(b.Tx.Op),
		"ts":    types.Nat(b.Tx.Ts),
		"tx":    tx,
	}
	if b.PHash != nil {
		m["phash"] = types.Blob(b.PHash.Bytes())
	}
	return m
}

// Hash returns the ICRC-3 representation-independent hash of the block.
func (b Block) Hash() types.Hash {
	return types.HashValue(b.ToValue())
}

// Encode serializes the block to its canonical CBOR form.
func (b Block) Encode() ([]byte, error) {
	return types.EncodeValue(b.ToValue())
}

// DecodeBlock parses stored block bytes back into a Block. Decoding is
// total: every malformed shape yields an error instead of a zero value.
func DecodeBlock(data []byte) (Block, error) {
	v, err := types.DecodeValue(data)
	if err != nil {
		return Block{}, fmt.Errorf("decode block: %w", err)
	}
	return BlockFromValue(v)
}

// BlockFromValue converts a decoded value into a Block.
func BlockFromValue(v types.Value) (Block, error) {
	m, ok := v.(types.Map)
	if !ok {
		return Block{}, ErrNotMap
	}
	var b Block

	if pv, ok := m["phash"]; ok {
		blob, ok := pv.(types.Blob)
		if !ok || len(blob) != types.HashSize {
			return Block{}, fmt.Errorf("%w: phash", ErrMalformedField)
		}
		var h types.Hash
		copy(h[:], blob)
		b.PHash = &h
	}

	bt, ok := m["btype"]
	if !ok {
		return Block{}, fmt.Errorf("%w: btype", ErrMissingField)
	}
	op, ok := bt.(types.Text)
	if !ok {
		return Block{}, fmt.Errorf("%w: btype", ErrMalformedField)
	}
	b.Tx.Op = string(op)

	tsv, ok := m["ts"]
	if !ok {
		return Block{}, fmt.Errorf("%w: ts", ErrMissingField)
	}
	ts, ok := tsv.(types.Nat)
	if !ok {
		return Block{}, fmt.Errorf("%w: ts", ErrMalformedField)
	}
	b.Tx.Ts = uint64(ts)

	txv, ok := m["tx"]
	if !ok {
		return Block{}, fmt.Errorf("%w: tx", ErrMissingField)
	}
	tx, ok := txv.(types.Map)
	if !ok {
		return Block{}, fmt.Errorf("%w: tx", ErrMalformedField)
	}

	tidv, ok := tx["tid"]
	if !ok {
		return Block{}, fmt.Errorf("%w: tx.tid", ErrMissingField)
	}
	tid, ok := tidv.(types.Nat)
	if !ok {
		return Block{}, fmt.Errorf("%w: tx.tid", ErrMalformedField)
	}
	b.Tx.Tid = uint64(tid)

	decAccount := func(key string) (*types.Account, error) {
		av, ok := tx[key]
		if !ok {
			return nil, nil
		}
		acc, err := types.AccountFromValue(av)
		if err != nil {
			return nil, fmt.Errorf("%w: tx.%s: %v", ErrMalformedField, key, err)
		}
		return &acc, nil
	}
	var err error
	if b.Tx.From, err = decAccount("from"); err != nil {
		return Block{}, err
	}
	if b.Tx.To, err = decAccount("to"); err != nil {
		return Block{}, err
	}
	if b.Tx.Spender, err = decAccount("spender"); err != nil {
		return Block{}, err
	}

	if ev, ok := tx["exp"]; ok {
		exp, ok := ev.(types.Nat)
		if !ok {
			return Block{}, fmt.Errorf("%w: tx.exp", ErrMalformedField)
		}
		e := uint64(exp)
		b.Tx.Exp = &e
	}
	if mv, ok := tx["meta"]; ok {
		meta, ok := mv.(types.Map)
		if !ok {
			return Block{}, fmt.Errorf("%w: tx.meta", ErrMalformedField)
		}
		b.Tx.Meta = meta
	}
	if mv, ok := tx["memo"]; ok {
		memo, ok := mv.(types.Blob)
		if !ok {
			return Block{}, fmt.Errorf("%w: tx.memo", ErrMalformedField)
		}
		b.Tx.Memo = []byte(memo)
	}
	if cv, ok := tx["ts"]; ok {
		created, ok := cv.(types.Nat)
		if !ok {
			return Block{}, fmt.Errorf("%w: tx.ts", ErrMalformedField)
		}
		c := uint64(created)
		b.Tx.CreatedAtTime = &c
	}
	return b, nil
}
