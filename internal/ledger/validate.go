package ledger

import (
	"github.com/ldclabs/ic-sft/pkg/types"
)

// validation is argument checking shared by every state-changing
// operation. All times here are in seconds; callers convert the ledger
// clock and the nanosecond argument fields before calling.

var errSubaccount = &GenericError{Message: "subaccount is not supported"}
var errMemoTooLarge = &GenericError{Message: "memo size is too large"}
var errExpiryTooClose = &GenericError{Message: "approval expiration time is too close"}

func checkMemo(memo []byte, s *Settings) error {
	if len(memo) > int(s.MaxMemoSize) {
		return errMemoTooLarge
	}
	return nil
}

// checkCreatedAt bounds a caller-supplied creation time (nanoseconds)
// against the dedup window around now (seconds).
func checkCreatedAt(created *uint64, now uint64, s *Settings) error {
	if created == nil {
		return nil
	}
	sec := *created / SECOND
	if sec > now+s.PermittedDrift {
		return &CreatedInFutureError{LedgerTime: now + s.PermittedDrift}
	}
	var oldest uint64
	if w := s.TxWindow + s.PermittedDrift; now > w {
		oldest = now - w
	}
	if sec < oldest {
		return ErrTooOld
	}
	return nil
}

// checkExpiresAt rejects an approval expiry (nanoseconds) that would
// lapse within the permitted drift.
func checkExpiresAt(expires *uint64, now uint64, s *Settings) error {
	if expires == nil {
		return nil
	}
	if *expires/SECOND < now+s.PermittedDrift {
		return errExpiryTooClose
	}
	return nil
}

func badSpender(spender types.Account, caller types.Principal) bool {
	return spender.Owner.IsAnonymous() || spender.Owner == caller
}

// Validate checks the transfer argument against the ledger rules.
func (a *TransferArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	if len(a.FromSubaccount) > 0 || a.To.HasSubaccount() {
		return errSubaccount
	}
	if a.To.Owner.IsAnonymous() || a.To.Owner == caller {
		return ErrInvalidRecipient
	}
	if err := checkMemo(a.Memo, s); err != nil {
		return err
	}
	return checkCreatedAt(a.CreatedAtTime, now, s)
}

// Validate checks the transfer-from argument. The caller acts as the
// spender here, so From must be a third party and To must differ from
// From.
func (a *TransferFromArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	if len(a.SpenderSubaccount) > 0 || a.From.HasSubaccount() || a.To.HasSubaccount() {
		return errSubaccount
	}
	if a.From.Owner.IsAnonymous() || a.From.Owner == caller {
		return ErrUnauthorized
	}
	if a.To.Owner.IsAnonymous() || a.To.Owner == a.From.Owner {
		return ErrInvalidRecipient
	}
	if err := checkMemo(a.Memo, s); err != nil {
		return err
	}
	return checkCreatedAt(a.CreatedAtTime, now, s)
}

func (a *ApprovalInfo) validate(now uint64, caller types.Principal, s *Settings) error {
	if len(a.FromSubaccount) > 0 || a.Spender.HasSubaccount() {
		return errSubaccount
	}
	if badSpender(a.Spender, caller) {
		return ErrInvalidSpender
	}
	if err := checkCreatedAt(a.CreatedAtTime, now, s); err != nil {
		return err
	}
	if err := checkExpiresAt(a.ExpiresAt, now, s); err != nil {
		return err
	}
	return checkMemo(a.Memo, s)
}

// Validate checks the token approval argument.
func (a *ApproveTokenArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	return a.ApprovalInfo.validate(now, caller, s)
}

// Validate checks the collection approval argument.
func (a *ApproveCollectionArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	return a.ApprovalInfo.validate(now, caller, s)
}

func validateRevoke(subaccount []byte, spender *types.Account, created *uint64, memo []byte, now uint64, caller types.Principal, s *Settings) error {
	if len(subaccount) > 0 || (spender != nil && spender.HasSubaccount()) {
		return errSubaccount
	}
	if spender != nil && badSpender(*spender, caller) {
		return &GenericError{Message: "invalid spender"}
	}
	if err := checkCreatedAt(created, now, s); err != nil {
		return err
	}
	return checkMemo(memo, s)
}

// Validate checks the token revocation argument.
func (a *RevokeTokenApprovalArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	return validateRevoke(a.FromSubaccount, a.Spender, a.CreatedAtTime, a.Memo, now, caller, s)
}

// Validate checks the collection revocation argument.
func (a *RevokeCollectionApprovalArg) Validate(now uint64, caller types.Principal, s *Settings) error {
	return validateRevoke(a.FromSubaccount, a.Spender, a.CreatedAtTime, a.Memo, now, caller, s)
}
