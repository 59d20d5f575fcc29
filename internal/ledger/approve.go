package ledger

import (
	"github.com/ldclabs/ic-sft/internal/blocklog"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// ApproveTokens grants token-level approvals on tokens the caller
// holds. The whole batch is rejected up front when the caller holds
// nothing at all.
func (l *Ledger) ApproveTokens(caller types.Principal, args []ApproveTokenArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if err := l.checkUpdateBatch(len(args), &s); err != nil {
		return nil, err
	}

	now := l.nowFn()
	nowSec := now / SECOND
	res := make([]*OpResult, len(args))

	ht, found, err := l.holderTok.Get(caller)
	if err != nil {
		return nil, err
	}
	if !found {
		for i := range res {
			res[i] = rejected(ErrUnauthorized)
		}
		return res, nil
	}

	dirty := false
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpApprove, arg, arg.ApprovalInfo.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		id := types.SftIdFromUint64(arg.TokenID)
		var createdSec, expiresSec uint64
		if arg.ApprovalInfo.CreatedAtTime != nil {
			createdSec = *arg.ApprovalInfo.CreatedAtTime / SECOND
		}
		if arg.ApprovalInfo.ExpiresAt != nil {
			expiresSec = *arg.ApprovalInfo.ExpiresAt / SECOND
		}
		if err := ht.InsertApproval(uint64(s.MaxApprovalsPerTokenOrCollection),
			id.TokenID, id.SubID, arg.ApprovalInfo.Spender.Owner, createdSec, expiresSec); err != nil {
			res[i] = rejected(err)
			continue
		}
		dirty = true

		tx := blocklog.ApproveTransaction(now, id.Uint64(),
			types.Account{Owner: caller}, arg.ApprovalInfo.Spender,
			arg.ApprovalInfo.ExpiresAt, arg.ApprovalInfo.Memo, arg.ApprovalInfo.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			if serr := l.holderTok.Set(caller, ht); serr != nil {
				l.logger.Error().Err(serr).Msg("failed to persist holder tokens")
			}
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}

	if dirty {
		if err := l.holderTok.Set(caller, ht); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ApproveCollection grants collection-level approvals from the caller.
// The caller's total collection approval count is bounded by the same
// cap as token approvals.
func (l *Ledger) ApproveCollection(caller types.Principal, args []ApproveCollectionArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if err := l.checkUpdateBatch(len(args), &s); err != nil {
		return nil, err
	}

	now := l.nowFn()
	nowSec := now / SECOND
	res := make([]*OpResult, len(args))

	as, err := l.approvals.Get(caller)
	if err != nil {
		return nil, err
	}

	errOverCap := &GenericBatchError{Message: "exceeds the maximum number of approvals"}
	if uint64(len(as)) >= uint64(s.MaxApprovalsPerTokenOrCollection) {
		for i := range res {
			res[i] = rejected(errOverCap)
		}
		return res, nil
	}

	dirty := false
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		if uint64(len(as)) >= uint64(s.MaxApprovalsPerTokenOrCollection) {
			res[i] = rejected(errOverCap)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpApproveCollection, arg, arg.ApprovalInfo.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		var createdSec, expiresSec uint64
		if arg.ApprovalInfo.CreatedAtTime != nil {
			createdSec = *arg.ApprovalInfo.CreatedAtTime / SECOND
		}
		if arg.ApprovalInfo.ExpiresAt != nil {
			expiresSec = *arg.ApprovalInfo.ExpiresAt / SECOND
		}
		if err := as.Insert(arg.ApprovalInfo.Spender.Owner, createdSec, expiresSec,
			uint64(s.MaxApprovalsPerTokenOrCollection)); err != nil {
			res[i] = rejected(err)
			continue
		}
		dirty = true

		tx := blocklog.ApproveCollectionTransaction(now,
			types.Account{Owner: caller}, arg.ApprovalInfo.Spender,
			arg.ApprovalInfo.ExpiresAt, arg.ApprovalInfo.Memo, arg.ApprovalInfo.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			if serr := l.approvals.Set(caller, as); serr != nil {
				l.logger.Error().Err(serr).Msg("failed to persist approvals")
			}
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}

	if dirty {
		if err := l.approvals.Set(caller, as); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// RevokeTokenApprovals removes token-level approvals granted by the
// caller. The batch size is bounded by the revocation cap rather than
// the update batch cap.
func (l *Ledger) RevokeTokenApprovals(caller types.Principal, args []RevokeTokenApprovalArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if len(args) == 0 {
		return nil, genericErrorf("no args provided")
	}
	if len(args) > int(s.MaxRevokeApprovals) {
		return nil, genericErrorf("exceeds max revoke approvals %d", s.MaxRevokeApprovals)
	}

	now := l.nowFn()
	nowSec := now / SECOND
	res := make([]*OpResult, len(args))

	ht, found, err := l.holderTok.Get(caller)
	if err != nil {
		return nil, err
	}
	if !found {
		for i := range res {
			res[i] = rejected(ErrUnauthorized)
		}
		return res, nil
	}

	dirty := false
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpRevoke, arg, arg.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		id := types.SftIdFromUint64(arg.TokenID)
		var spender *types.Principal
		if arg.Spender != nil {
			spender = &arg.Spender.Owner
		}
		if err := ht.RevokeApproval(id.TokenID, id.SubID, spender); err != nil {
			res[i] = rejected(err)
			continue
		}
		dirty = true

		var spenderAcc *types.Account
		if arg.Spender != nil {
			spenderAcc = arg.Spender
		}
		tx := blocklog.RevokeTransaction(now, id.Uint64(),
			types.Account{Owner: caller}, spenderAcc, arg.Memo, arg.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			if serr := l.holderTok.Set(caller, ht); serr != nil {
				l.logger.Error().Err(serr).Msg("failed to persist holder tokens")
			}
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}

	if dirty {
		if err := l.holderTok.Set(caller, ht); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// RevokeCollectionApprovals removes collection-level approvals granted
// by the caller.
func (l *Ledger) RevokeCollectionApprovals(caller types.Principal, args []RevokeCollectionApprovalArg) ([]*OpResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.settings()
	if len(args) == 0 {
		return nil, genericErrorf("no args provided")
	}
	if len(args) > int(s.MaxRevokeApprovals) {
		return nil, genericErrorf("exceeds max revoke approvals %d", s.MaxRevokeApprovals)
	}

	now := l.nowFn()
	nowSec := now / SECOND
	res := make([]*OpResult, len(args))

	as, err := l.approvals.Get(caller)
	if err != nil {
		return nil, err
	}

	dirty := false
	for i := range args {
		arg := &args[i]
		if err := arg.Validate(nowSec, caller, &s); err != nil {
			res[i] = rejected(err)
			continue
		}
		dk, err := l.checkDedup(caller, blocklog.OpRevokeCollection, arg, arg.CreatedAtTime, nowSec, &s)
		if err != nil {
			res[i] = rejected(err)
			continue
		}

		var spender *types.Principal
		if arg.Spender != nil {
			spender = &arg.Spender.Owner
		}
		if !as.Revoke(spender) {
			res[i] = rejected(ErrApprovalDoesNotExist)
			continue
		}
		dirty = true

		tx := blocklog.RevokeCollectionTransaction(now,
			types.Account{Owner: caller}, arg.Spender, arg.Memo, arg.CreatedAtTime)
		idx, err := l.appendBlock(tx)
		if err != nil {
			res[i] = rejected(&GenericBatchError{Message: err.Error()})
			if serr := l.approvals.Set(caller, as); serr != nil {
				l.logger.Error().Err(serr).Msg("failed to persist approvals")
			}
			return res, nil
		}
		l.recordDedup(dk, idx, nowSec)
		res[i] = accepted(idx)
	}

	if dirty {
		if err := l.approvals.Set(caller, as); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// IsApproved answers approval checks for the caller as owner. Anonymous
// callers hold no approvals.
func (l *Ledger) IsApproved(caller types.Principal, args []IsApprovedArg) ([]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(args) == 0 {
		return nil, nil
	}
	if err := l.checkQueryBatch(len(args)); err != nil {
		return nil, err
	}
	res := make([]bool, len(args))
	if caller.IsAnonymous() {
		return res, nil
	}

	nowSec := l.nowFn() / SECOND
	as, err := l.approvals.Get(caller)
	if err != nil {
		return nil, err
	}
	var ht HolderTokens
	htLoaded := false
	for i := range args {
		if as.IsActiveFor(args[i].Spender.Owner, nowSec) {
			res[i] = true
			continue
		}
		if !htLoaded {
			if ht, _, err = l.holderTok.Get(caller); err != nil {
				return nil, err
			}
			htLoaded = true
		}
		id := types.SftIdFromUint64(args[i].TokenID)
		res[i] = ht.IsApprovedFor(args[i].Spender.Owner, id.TokenID, id.SubID, nowSec)
	}
	return res, nil
}
