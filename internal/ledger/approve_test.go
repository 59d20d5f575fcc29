package ledger

import (
	"errors"
	"testing"

	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

func approveArg(tokenID uint64, spender types.Principal) ApproveTokenArg {
	return ApproveTokenArg{
		TokenID:      tokenID,
		ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: spender}},
	}
}

func TestApproveTokens_AndTransferFrom(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "approved")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res, err := l.ApproveTokens(alice, []ApproveTokenArg{approveArg(sftID(tid, 1), bob)})
	if err != nil || res[0].Err != nil {
		t.Fatalf("ApproveTokens: %v, %+v", err, res[0])
	}

	ok, err := l.IsApproved(alice, []IsApprovedArg{
		{Spender: types.Account{Owner: bob}, TokenID: sftID(tid, 1)},
		{Spender: types.Account{Owner: carol}, TokenID: sftID(tid, 1)},
	})
	if err != nil {
		t.Fatalf("IsApproved: %v", err)
	}
	if !ok[0] || ok[1] {
		t.Fatalf("IsApproved = %v, want [true false]", ok)
	}

	// An unapproved spender cannot move the token.
	res, err = l.TransferFrom(carol, []TransferFromArg{{
		From: types.Account{Owner: alice}, To: types.Account{Owner: bob}, TokenID: sftID(tid, 1),
	}})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if !errors.Is(res[0].Err, ErrUnauthorized) {
		t.Fatalf("unapproved spender: err = %v", res[0].Err)
	}

	res, err = l.TransferFrom(bob, []TransferFromArg{{
		From: types.Account{Owner: alice}, To: types.Account{Owner: carol}, TokenID: sftID(tid, 1),
	}})
	if err != nil || res[0].Err != nil {
		t.Fatalf("TransferFrom: %v, %+v", err, res[0])
	}
	owners, err := l.OwnerOf([]uint64{sftID(tid, 1)})
	if err != nil || owners[0].Owner != carol {
		t.Fatalf("owner after transfer from = %v, %v", owners, err)
	}

	// The transfer discarded the approvals attached to the item: bob
	// cannot move it back from its new owner.
	res, err = l.TransferFrom(bob, []TransferFromArg{{
		From: types.Account{Owner: carol}, To: types.Account{Owner: alice}, TokenID: sftID(tid, 1),
	}})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if !errors.Is(res[0].Err, ErrUnauthorized) {
		t.Fatalf("stale approval: err = %v", res[0].Err)
	}
}

func TestApproveTokens_RequiresHoldings(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "held")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// A caller who holds nothing at all gets every item rejected.
	res, err := l.ApproveTokens(carol, []ApproveTokenArg{
		approveArg(sftID(tid, 1), bob),
		approveArg(sftID(tid, 1), testMinter),
	})
	if err != nil {
		t.Fatalf("ApproveTokens: %v", err)
	}
	for i, r := range res {
		if !errors.Is(r.Err, ErrUnauthorized) {
			t.Errorf("item %d: err = %v, want ErrUnauthorized", i, r.Err)
		}
	}

	// A holder approving an item it does not own.
	res, err = l.ApproveTokens(alice, []ApproveTokenArg{approveArg(sftID(tid, 2), bob)})
	if err != nil {
		t.Fatalf("ApproveTokens: %v", err)
	}
	if !errors.Is(res[0].Err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", res[0].Err)
	}
}

func TestApprove_Expiry(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "expiring")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	s := l.Settings()
	expires := testNow + (s.PermittedDrift+10)*SECOND
	arg := approveArg(sftID(tid, 1), bob)
	arg.ApprovalInfo.ExpiresAt = &expires
	res, err := l.ApproveTokens(alice, []ApproveTokenArg{arg})
	if err != nil || res[0].Err != nil {
		t.Fatalf("ApproveTokens: %v, %+v", err, res[0])
	}

	check := []IsApprovedArg{{Spender: types.Account{Owner: bob}, TokenID: sftID(tid, 1)}}
	ok, err := l.IsApproved(alice, check)
	if err != nil || !ok[0] {
		t.Fatalf("IsApproved before expiry = %v, %v", ok, err)
	}

	// The expiry is exclusive: at the expiry instant the approval is
	// already inactive.
	l.nowFn = func() uint64 { return expires }
	ok, err = l.IsApproved(alice, check)
	if err != nil || ok[0] {
		t.Fatalf("IsApproved at expiry = %v, %v", ok, err)
	}

	res, err = l.TransferFrom(bob, []TransferFromArg{{
		From: types.Account{Owner: alice}, To: types.Account{Owner: carol}, TokenID: sftID(tid, 1),
	}})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if !errors.Is(res[0].Err, ErrUnauthorized) {
		t.Fatalf("expired approval: err = %v", res[0].Err)
	}
}

func TestApproveCollection(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "collection-approved")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice, alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res, err := l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: bob}}},
	})
	if err != nil || res[0].Err != nil {
		t.Fatalf("ApproveCollection: %v, %+v", err, res[0])
	}

	// A collection approval covers every token the owner holds.
	res, err = l.TransferFrom(bob, []TransferFromArg{
		{From: types.Account{Owner: alice}, To: types.Account{Owner: carol}, TokenID: sftID(tid, 1)},
		{From: types.Account{Owner: alice}, To: types.Account{Owner: carol}, TokenID: sftID(tid, 2)},
	})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	for i, r := range res {
		if r.Err != nil {
			t.Errorf("item %d: %v", i, r.Err)
		}
	}
}

func TestApproveCollection_Cap(t *testing.T) {
	init := testInitArgs()
	s := DefaultSettings()
	s.MaxApprovalsPerTokenOrCollection = 1
	init.Settings = &s

	l := newTestLedger(t, storage.NewMemory(), init)

	res, err := l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: bob}}},
	})
	if err != nil || res[0].Err != nil {
		t.Fatalf("first approval: %v, %+v", err, res[0])
	}
	before := l.BlockCount()

	// The set is full: a second spender is rejected before any block is
	// appended.
	res, err = l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: carol}}},
	})
	if err != nil {
		t.Fatalf("second approval: %v", err)
	}
	var batchErr *GenericBatchError
	if !errors.As(res[0].Err, &batchErr) {
		t.Fatalf("err = %v, want GenericBatchError", res[0].Err)
	}
	if l.BlockCount() != before {
		t.Fatal("rejected approval appended a block")
	}

	// Re-approving an existing spender replaces, it does not grow the set.
	res, err = l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: bob}}},
	})
	if err == nil && res[0].Err == nil {
		t.Fatal("a full set rejects even replacements before the loop")
	}
}

func TestRevokeTokenApprovals(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "revocable")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	res, err := l.ApproveTokens(alice, []ApproveTokenArg{
		approveArg(sftID(tid, 1), bob),
		approveArg(sftID(tid, 1), carol),
	})
	if err != nil || res[0].Err != nil || res[1].Err != nil {
		t.Fatalf("ApproveTokens: %v, %+v", err, res)
	}

	res, err = l.RevokeTokenApprovals(alice, []RevokeTokenApprovalArg{
		{TokenID: sftID(tid, 1), Spender: &types.Account{Owner: bob}},
	})
	if err != nil || res[0].Err != nil {
		t.Fatalf("RevokeTokenApprovals: %v, %+v", err, res[0])
	}

	ok, err := l.IsApproved(alice, []IsApprovedArg{
		{Spender: types.Account{Owner: bob}, TokenID: sftID(tid, 1)},
		{Spender: types.Account{Owner: carol}, TokenID: sftID(tid, 1)},
	})
	if err != nil {
		t.Fatalf("IsApproved: %v", err)
	}
	if ok[0] || !ok[1] {
		t.Fatalf("IsApproved after revoke = %v, want [false true]", ok)
	}

	// Revoking an approval that does not exist.
	res, err = l.RevokeTokenApprovals(alice, []RevokeTokenApprovalArg{
		{TokenID: sftID(tid, 1), Spender: &types.Account{Owner: bob}},
	})
	if err != nil {
		t.Fatalf("RevokeTokenApprovals: %v", err)
	}
	if !errors.Is(res[0].Err, ErrApprovalDoesNotExist) {
		t.Fatalf("err = %v, want ErrApprovalDoesNotExist", res[0].Err)
	}

	// A nil spender revokes everything at once.
	res, err = l.RevokeTokenApprovals(alice, []RevokeTokenApprovalArg{{TokenID: sftID(tid, 1)}})
	if err != nil || res[0].Err != nil {
		t.Fatalf("revoke all: %v, %+v", err, res[0])
	}
	ok, err = l.IsApproved(alice, []IsApprovedArg{
		{Spender: types.Account{Owner: carol}, TokenID: sftID(tid, 1)},
	})
	if err != nil || ok[0] {
		t.Fatalf("IsApproved after revoke all = %v, %v", ok, err)
	}
}

func TestRevokeCollectionApprovals(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())

	res, err := l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: bob}}},
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: carol}}},
	})
	if err != nil || res[0].Err != nil || res[1].Err != nil {
		t.Fatalf("ApproveCollection: %v, %+v", err, res)
	}

	res, err = l.RevokeCollectionApprovals(alice, []RevokeCollectionApprovalArg{{}})
	if err != nil || res[0].Err != nil {
		t.Fatalf("revoke all: %v, %+v", err, res[0])
	}

	approvals, err := l.CollectionApprovals(types.Account{Owner: alice}, nil, nil)
	if err != nil {
		t.Fatalf("CollectionApprovals: %v", err)
	}
	if len(approvals) != 0 {
		t.Fatalf("approvals after revoke all = %v", approvals)
	}

	res, err = l.RevokeCollectionApprovals(alice, []RevokeCollectionApprovalArg{{}})
	if err != nil {
		t.Fatalf("RevokeCollectionApprovals: %v", err)
	}
	if !errors.Is(res[0].Err, ErrApprovalDoesNotExist) {
		t.Fatalf("err = %v, want ErrApprovalDoesNotExist", res[0].Err)
	}
}

func TestRevoke_Dedup(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "replayed")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	res, err := l.ApproveTokens(alice, []ApproveTokenArg{approveArg(sftID(tid, 1), bob)})
	if err != nil || res[0].Err != nil {
		t.Fatalf("ApproveTokens: %v, %+v", err, res[0])
	}

	created := testNow
	arg := RevokeTokenApprovalArg{TokenID: sftID(tid, 1), Spender: &types.Account{Owner: bob}, CreatedAtTime: &created}
	res, err = l.RevokeTokenApprovals(alice, []RevokeTokenApprovalArg{arg})
	if err != nil || res[0].Err != nil {
		t.Fatalf("first revoke: %v, %+v", err, res[0])
	}
	block := res[0].Block

	// A replayed revoke is reported as a duplicate, not as a missing
	// approval.
	res, err = l.RevokeTokenApprovals(alice, []RevokeTokenApprovalArg{arg})
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	var dup *DuplicateError
	if !errors.As(res[0].Err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", res[0].Err)
	}
	if dup.DuplicateOf != block {
		t.Fatalf("DuplicateOf = %d, want %d", dup.DuplicateOf, block)
	}

	cres, err := l.ApproveCollection(alice, []ApproveCollectionArg{
		{ApprovalInfo: ApprovalInfo{Spender: types.Account{Owner: carol}}},
	})
	if err != nil || cres[0].Err != nil {
		t.Fatalf("ApproveCollection: %v, %+v", err, cres[0])
	}
	carg := RevokeCollectionApprovalArg{Spender: &types.Account{Owner: carol}, CreatedAtTime: &created}
	cres, err = l.RevokeCollectionApprovals(alice, []RevokeCollectionApprovalArg{carg})
	if err != nil || cres[0].Err != nil {
		t.Fatalf("first collection revoke: %v, %+v", err, cres[0])
	}
	cres, err = l.RevokeCollectionApprovals(alice, []RevokeCollectionApprovalArg{carg})
	if err != nil {
		t.Fatalf("second collection revoke: %v", err)
	}
	if !errors.As(cres[0].Err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", cres[0].Err)
	}
}

func TestIsApproved_Anonymous(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	ok, err := l.IsApproved(types.Anonymous, []IsApprovedArg{
		{Spender: types.Account{Owner: bob}, TokenID: sftID(1, 1)},
	})
	if err != nil {
		t.Fatalf("IsApproved: %v", err)
	}
	if ok[0] {
		t.Fatal("anonymous callers hold no approvals")
	}
}
