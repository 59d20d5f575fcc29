package ledger

import (
	"github.com/ldclabs/ic-sft/internal/blocklog"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// OpResult is the per-item outcome of a batch operation: the index of
// the appended block on success, or the rejection. A nil *OpResult in a
// batch response means the item was never processed because the batch
// aborted earlier.
type OpResult struct {
	Block uint64
	Err   error
}

func accepted(block uint64) *OpResult { return &OpResult{Block: block} }
func rejected(err error) *OpResult    { return &OpResult{Err: err} }

// Transfer moves tokens owned by caller. Items are processed
// independently unless atomic batch transfers are enabled, in which
// case any invalid or unauthorized item rejects the whole batch.
func (l *Ledger) Transfer(caller types.Principal, args []TransferArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if err := l.checkUpdateBatch(len(args), &s); err != nil {
		return nil, err
	}

	now := l.nowFn()
	nowSec := now / SECOND

	if s.AtomicBatchTransfers && len(args) > 1 {
		for i := range args {
			if err := args[i].Validate(nowSec, caller, &s); err != nil {
				return nil, genericErrorf("invalid transfer args: %v", err)
			}
		}
		for i := range args {
			id := types.SftIdFromUint64(args[i].TokenID)
			hs, err := l.holders.Get(id.TokenID)
			if err != nil {
				return nil, err
			}
			if !hs.IsHolder(id.SubID, caller) {
				if _, found := hs.Get(id.SubID); !found {
					return nil, ErrNonExistingTokenID
				}
				return nil, ErrUnauthorized
			}
		}
	}

	res := make([]*OpResult, len(args))
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpTransfer, arg, arg.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		id := types.SftIdFromUint64(arg.TokenID)
		hs, err := l.holders.Get(id.TokenID)
		if err != nil {
			res[i] = rejected(err)
			continue
		}
		if err := hs.TransferAt(id.SubID, caller, arg.To.Owner); err != nil {
			res[i] = rejected(err)
			continue
		}

		tx := blocklog.TransferTransaction(now, id.Uint64(),
			types.Account{Owner: caller}, arg.To, arg.Memo, arg.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		if err := l.holders.Set(id.TokenID, hs); err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		if err := l.holderTok.MoveForTransfer(caller, arg.To.Owner, id.TokenID, id.SubID); err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}
	return res, nil
}

// TransferFrom moves tokens on behalf of their owners. The caller must
// hold an active token-level or collection-level approval for every
// item it moves.
func (l *Ledger) TransferFrom(caller types.Principal, args []TransferFromArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if err := l.checkUpdateBatch(len(args), &s); err != nil {
		return nil, err
	}

	now := l.nowFn()
	nowSec := now / SECOND

	if s.AtomicBatchTransfers && len(args) > 1 {
		for i := range args {
			if err := args[i].Validate(nowSec, caller, &s); err != nil {
				return nil, genericErrorf("invalid transfer from args: %v", err)
			}
		}
		for i := range args {
			approved, err := l.isApprovedFor(args[i].From.Owner, caller, args[i].TokenID, nowSec)
			if err != nil {
				return nil, err
			}
			if !approved {
				return nil, genericErrorf("(from: %s, spender: %s) are not approved",
					args[i].From.Owner, caller)
			}
		}
	}

	res := make([]*OpResult, len(args))
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpTransferFrom, arg, arg.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		approved, err := l.isApprovedFor(arg.From.Owner, caller, arg.TokenID, nowSec)
		if err != nil {
			res[i] = rejected(err)
			continue
		}
		if !approved {
			res[i] = rejected(ErrUnauthorized)
			continue
		}

		id := types.SftIdFromUint64(arg.TokenID)
		hs, err := l.holders.Get(id.TokenID)
		if err != nil {
			res[i] = rejected(err)
			continue
		}
		if err := hs.TransferAt(id.SubID, arg.From.Owner, arg.To.Owner); err != nil {
			res[i] = rejected(err)
			continue
		}

		tx := blocklog.TransferFromTransaction(now, id.Uint64(),
			arg.From, arg.To, types.Account{Owner: caller}, arg.Memo, arg.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		if err := l.holders.Set(id.TokenID, hs); err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		if err := l.holderTok.MoveForTransfer(arg.From.Owner, arg.To.Owner, id.TokenID, id.SubID); err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}
	return res, nil
}

// isApprovedFor reports whether spender may move the given token on
// behalf of owner, via a collection-level or token-level approval.
func (l *Ledger) isApprovedFor(owner, spender types.Principal, tokenID, nowSec uint64) (bool, error) {
	approved, err := l.approvals.IsApprovedFor(owner, spender, nowSec)
	if err != nil || approved {
		return approved, err
	}
	ht, found, err := l.holderTok.Get(owner)
	if err != nil || !found {
		return false, err
	}
	id := types.SftIdFromUint64(tokenID)
	return ht.IsApprovedFor(spender, id.TokenID, id.SubID, nowSec), nil
}
