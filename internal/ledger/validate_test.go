package ledger

import (
	"errors"
	"testing"

	"github.com/ldclabs/ic-sft/pkg/types"
)

func u64(v uint64) *uint64 { return &v }

func TestCheckCreatedAt(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000) // seconds

	if err := checkCreatedAt(nil, now, &s); err != nil {
		t.Fatalf("nil created: %v", err)
	}
	if err := checkCreatedAt(u64(now*SECOND), now, &s); err != nil {
		t.Fatalf("created now: %v", err)
	}

	// Latest acceptable creation time is now plus drift.
	if err := checkCreatedAt(u64((now+s.PermittedDrift)*SECOND), now, &s); err != nil {
		t.Fatalf("created at drift boundary: %v", err)
	}
	err := checkCreatedAt(u64((now+s.PermittedDrift+1)*SECOND), now, &s)
	var fut *CreatedInFutureError
	if !errors.As(err, &fut) {
		t.Fatalf("err = %v, want CreatedInFutureError", err)
	}
	if fut.LedgerTime != now+s.PermittedDrift {
		t.Fatalf("LedgerTime = %d, want %d", fut.LedgerTime, now+s.PermittedDrift)
	}

	// Oldest acceptable is now minus the window minus drift.
	oldest := now - s.TxWindow - s.PermittedDrift
	if err := checkCreatedAt(u64(oldest*SECOND), now, &s); err != nil {
		t.Fatalf("created at window boundary: %v", err)
	}
	if err := checkCreatedAt(u64((oldest-1)*SECOND), now, &s); !errors.Is(err, ErrTooOld) {
		t.Fatalf("err = %v, want ErrTooOld", err)
	}
}

func TestCheckCreatedAt_SmallClock(t *testing.T) {
	// A clock earlier than the window must not underflow: everything
	// from time zero up to now plus drift is acceptable.
	s := DefaultSettings()
	now := s.TxWindow / 2
	if err := checkCreatedAt(u64(0), now, &s); err != nil {
		t.Fatalf("created at zero: %v", err)
	}
}

func TestCheckExpiresAt(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000)

	if err := checkExpiresAt(nil, now, &s); err != nil {
		t.Fatalf("nil expiry: %v", err)
	}
	if err := checkExpiresAt(u64((now+s.PermittedDrift)*SECOND), now, &s); err != nil {
		t.Fatalf("expiry at drift boundary: %v", err)
	}
	if err := checkExpiresAt(u64((now+s.PermittedDrift-1)*SECOND), now, &s); err == nil {
		t.Fatal("expiry inside the drift window should be rejected")
	}
}

func TestTransferArg_Validate(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000)
	caller := alice

	ok := TransferArg{To: types.Account{Owner: bob}, TokenID: 1}
	if err := ok.Validate(now, caller, &s); err != nil {
		t.Fatalf("valid arg: %v", err)
	}

	bad := ok
	bad.FromSubaccount = []byte{1}
	if err := bad.Validate(now, caller, &s); err == nil {
		t.Error("subaccount should be rejected")
	}

	bad = ok
	bad.To = types.Account{Owner: bob, Subaccount: []byte{1}}
	if err := bad.Validate(now, caller, &s); err == nil {
		t.Error("recipient subaccount should be rejected")
	}

	bad = ok
	bad.To = types.Account{Owner: types.Anonymous}
	if err := bad.Validate(now, caller, &s); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("anonymous recipient: err = %v", err)
	}

	bad = ok
	bad.To = types.Account{Owner: caller}
	if err := bad.Validate(now, caller, &s); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("self recipient: err = %v", err)
	}

	bad = ok
	bad.Memo = make([]byte, s.MaxMemoSize+1)
	if err := bad.Validate(now, caller, &s); err == nil {
		t.Error("oversized memo should be rejected")
	}
}

func TestTransferFromArg_Validate(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000)
	spender := carol

	ok := TransferFromArg{From: types.Account{Owner: alice}, To: types.Account{Owner: bob}, TokenID: 1}
	if err := ok.Validate(now, spender, &s); err != nil {
		t.Fatalf("valid arg: %v", err)
	}

	bad := ok
	bad.From = types.Account{Owner: spender}
	if err := bad.Validate(now, spender, &s); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("from == spender: err = %v", err)
	}

	bad = ok
	bad.To = bad.From
	if err := bad.Validate(now, spender, &s); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("to == from: err = %v", err)
	}

	bad = ok
	bad.SpenderSubaccount = []byte{1}
	if err := bad.Validate(now, spender, &s); err == nil {
		t.Error("spender subaccount should be rejected")
	}
}

func TestApprovalInfo_Validate(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000)

	ok := ApproveTokenArg{TokenID: 1, ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: bob}}}
	if err := ok.Validate(now, alice, &s); err != nil {
		t.Fatalf("valid arg: %v", err)
	}

	bad := ok
	bad.ApprovalInfo.Spender = types.Account{Owner: alice}
	if err := bad.Validate(now, alice, &s); !errors.Is(err, ErrInvalidSpender) {
		t.Errorf("self spender: err = %v", err)
	}

	bad = ok
	bad.ApprovalInfo.Spender = types.Account{Owner: types.Anonymous}
	if err := bad.Validate(now, alice, &s); !errors.Is(err, ErrInvalidSpender) {
		t.Errorf("anonymous spender: err = %v", err)
	}
}

func TestRevokeArg_Validate(t *testing.T) {
	s := DefaultSettings()
	now := uint64(1_700_000_000)

	ok := RevokeTokenApprovalArg{TokenID: 1}
	if err := ok.Validate(now, alice, &s); err != nil {
		t.Fatalf("revoke-all arg: %v", err)
	}

	withSpender := RevokeTokenApprovalArg{TokenID: 1, Spender: &types.Account{Owner: bob}}
	if err := withSpender.Validate(now, alice, &s); err != nil {
		t.Fatalf("revoke with spender: %v", err)
	}

	self := RevokeTokenApprovalArg{TokenID: 1, Spender: &types.Account{Owner: alice}}
	if err := self.Validate(now, alice, &s); err == nil {
		t.Error("revoking the caller itself should be rejected")
	}
}

func TestSettings_TakeValue(t *testing.T) {
	s := DefaultSettings()
	if got := s.TakeValue(nil); got != s.DefaultTakeValue {
		t.Errorf("TakeValue(nil) = %d, want %d", got, s.DefaultTakeValue)
	}
	if got := s.TakeValue(u64(5)); got != 5 {
		t.Errorf("TakeValue(5) = %d", got)
	}
	if got := s.TakeValue(u64(100000)); got != s.MaxTakeValue {
		t.Errorf("TakeValue(100000) = %d, want %d", got, s.MaxTakeValue)
	}
}
