package ledger

import (
	"errors"
	"testing"

	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

var (
	testController = types.PrincipalFromBytes([]byte{1, 1, 1})
	testMinter     = types.PrincipalFromBytes([]byte{2, 2, 2})
	testManager    = types.PrincipalFromBytes([]byte{3, 3, 3})
	alice          = types.PrincipalFromBytes([]byte{10, 10})
	bob            = types.PrincipalFromBytes([]byte{11, 11})
	carol          = types.PrincipalFromBytes([]byte{12, 12})
)

// testNow is a fixed ledger clock, in nanoseconds.
const testNow = uint64(1_700_000_000) * SECOND

func testInitArgs() InitArgs {
	return InitArgs{
		Symbol:   "SFT",
		Name:     "Test Collection",
		Minters:  []types.Principal{testMinter},
		Managers: []types.Principal{testManager},
	}
}

func newTestLedger(t *testing.T, db storage.DB, init InitArgs) *Ledger {
	t.Helper()
	l, err := Open(db, init, []types.Principal{testController})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.nowFn = func() uint64 { return testNow }
	return l
}

func createTestToken(t *testing.T, l *Ledger, name string) uint32 {
	t.Helper()
	id, err := l.CreateToken(testManager, CreateTokenArg{
		Name:             name,
		AssetName:        name + ".png",
		AssetContentType: "image/png",
		AssetContent:     []byte("asset content of " + name),
		Author:           testManager,
	})
	if err != nil {
		t.Fatalf("CreateToken(%s): %v", name, err)
	}
	return id
}

func sftID(tid, sid uint32) uint64 {
	return types.SftId{TokenID: tid, SubID: sid}.Uint64()
}

func assetHash(content []byte) types.Hash {
	return types.Hash(crypto.Sha3(content))
}

func TestOpen_RequiresInitArgs(t *testing.T) {
	if _, err := Open(storage.NewMemory(), InitArgs{}, nil); err == nil {
		t.Fatal("Open on an empty database without init args should fail")
	}
	if _, err := Open(storage.NewMemory(), InitArgs{Symbol: "SFT"}, nil); err == nil {
		t.Fatal("Open without a collection name should fail")
	}
}

func TestLedger_Lifecycle(t *testing.T) {
	db := storage.NewMemory()
	l := newTestLedger(t, db, testInitArgs())

	tid := createTestToken(t, l, "first")
	if tid != 1 {
		t.Fatalf("first token id = %d, want 1", tid)
	}
	if l.TotalSupply() != 1 {
		t.Fatalf("TotalSupply = %d, want 1", l.TotalSupply())
	}

	// Mint two sub-items, one block each.
	last, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice, bob}})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if last != 1 {
		t.Fatalf("last mint block = %d, want 1", last)
	}
	if l.BlockCount() != 2 {
		t.Fatalf("BlockCount = %d, want 2", l.BlockCount())
	}

	owners, err := l.OwnerOf([]uint64{sftID(tid, 1), sftID(tid, 2), sftID(tid, 3)})
	if err != nil {
		t.Fatalf("OwnerOf: %v", err)
	}
	if owners[0] == nil || owners[0].Owner != alice {
		t.Errorf("owner of (1,1) = %v, want alice", owners[0])
	}
	if owners[1] == nil || owners[1].Owner != bob {
		t.Errorf("owner of (1,2) = %v, want bob", owners[1])
	}
	if owners[2] != nil {
		t.Errorf("owner of unminted (1,3) = %v, want nil", owners[2])
	}

	balances, err := l.BalanceOf([]types.Account{{Owner: alice}, {Owner: carol}})
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balances[0] != 1 || balances[1] != 0 {
		t.Fatalf("balances = %v, want [1 0]", balances)
	}

	res, err := l.Transfer(alice, []TransferArg{{To: types.Account{Owner: carol}, TokenID: sftID(tid, 1)}})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res[0] == nil || res[0].Err != nil {
		t.Fatalf("transfer result = %+v", res[0])
	}
	if res[0].Block != 2 {
		t.Fatalf("transfer block = %d, want 2", res[0].Block)
	}

	owners, err = l.OwnerOf([]uint64{sftID(tid, 1)})
	if err != nil {
		t.Fatalf("OwnerOf: %v", err)
	}
	if owners[0] == nil || owners[0].Owner != carol {
		t.Fatalf("owner after transfer = %v, want carol", owners[0])
	}

	// The log is hash chained: each block's phash is the hash of its
	// predecessor, the genesis block has none.
	blocks, err := l.GetBlocks(0, 10)
	if err != nil {
		t.Fatalf("GetBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("GetBlocks returned %d blocks, want 3", len(blocks))
	}
	if _, ok := blocks[0].(types.Map)["phash"]; ok {
		t.Error("genesis block carries phash")
	}
	for i := 1; i < len(blocks); i++ {
		want := types.HashValue(blocks[i-1])
		got, ok := blocks[i].(types.Map)["phash"].(types.Blob)
		if !ok || string(got) != string(want.Bytes()) {
			t.Errorf("block %d phash does not match hash of block %d", i, i-1)
		}
	}

	tip, ok := l.Tip()
	if !ok {
		t.Fatal("Tip on a non-empty log")
	}
	if tip.LastBlockIndex != 2 {
		t.Fatalf("tip index = %d, want 2", tip.LastBlockIndex)
	}
	if tip.LastBlockHash != types.HashValue(blocks[2]) {
		t.Fatal("tip hash does not match last block")
	}

	// Reopen over the same database: state and chain head survive.
	if err := l.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	l2, err := Open(db, InitArgs{}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tip2, ok := l2.Tip()
	if !ok || tip2 != tip {
		t.Fatalf("reopened tip = %+v, want %+v", tip2, tip)
	}
	owners, err = l2.OwnerOf([]uint64{sftID(tid, 1)})
	if err != nil || owners[0] == nil || owners[0].Owner != carol {
		t.Fatalf("reopened owner = %v, %v", owners, err)
	}
	if l2.Collection().Symbol != "SFT" {
		t.Fatalf("reopened symbol = %q", l2.Collection().Symbol)
	}
}

func TestMint_Authorization(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "guarded")

	if _, err := l.Mint(alice, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err == nil {
		t.Fatal("mint by a non-minter should fail")
	}
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0)}); err == nil {
		t.Fatal("mint without holders should fail")
	}
	_, err := l.Mint(testMinter, MintArg{TokenID: sftID(9, 0), Holders: []types.Principal{alice}})
	if !errors.Is(err, ErrNonExistingTokenID) {
		t.Fatalf("mint of unknown token: err = %v", err)
	}
}

func TestMint_SupplyCap(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	id, err := l.CreateToken(testManager, CreateTokenArg{
		Name:             "capped",
		AssetName:        "capped.png",
		AssetContentType: "image/png",
		AssetContent:     []byte("capped asset"),
		SupplyCap:        3,
		Author:           testManager,
	})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(id, 0), Holders: []types.Principal{alice, bob}}); err != nil {
		t.Fatalf("mint below cap: %v", err)
	}
	_, err = l.Mint(testMinter, MintArg{TokenID: sftID(id, 0), Holders: []types.Principal{carol}})
	if !errors.Is(err, ErrSupplyCapReached) {
		t.Fatalf("mint at cap: err = %v", err)
	}
}

func TestCreateToken_Rules(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())

	arg := CreateTokenArg{
		Name:             "one",
		AssetName:        "one.png",
		AssetContentType: "image/png",
		AssetContent:     []byte("shared asset"),
		Author:           alice,
	}
	if _, err := l.CreateToken(alice, arg); err == nil {
		t.Fatal("create by a non-manager should fail")
	}
	if _, err := l.CreateToken(testManager, arg); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	// The asset hash is a uniqueness constraint across token groups.
	arg.Name = "two"
	if _, err := l.CreateToken(testManager, arg); err == nil {
		t.Fatal("duplicate asset content should be rejected")
	}
}

func TestCreateTokenByChallenge(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())

	arg := CreateTokenArg{
		Name:             "authored",
		AssetName:        "authored.png",
		AssetContentType: "image/png",
		AssetContent:     []byte("authored asset"),
		Author:           alice,
	}

	if _, err := l.Challenge(testManager, ChallengeArg{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Challenge before the secret is ready: err = %v", err)
	}

	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	l.secret.set(key)

	if _, err := l.Challenge(alice, ChallengeArg{}); err == nil {
		t.Fatal("challenge issuance by a non-manager should fail")
	}

	hash := assetHash(arg.AssetContent)
	token, err := l.Challenge(testManager, ChallengeArg{Author: alice, AssetHash: hash})
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}

	if _, err := l.CreateTokenByChallenge(bob, arg); err == nil {
		t.Fatal("caller other than the author should be rejected")
	}
	withoutChallenge := arg
	if _, err := l.CreateTokenByChallenge(alice, withoutChallenge); err == nil {
		t.Fatal("missing challenge should be rejected")
	}

	arg.Challenge = token
	id, err := l.CreateTokenByChallenge(alice, arg)
	if err != nil {
		t.Fatalf("CreateTokenByChallenge: %v", err)
	}
	if id != 1 {
		t.Fatalf("token id = %d, want 1", id)
	}

	// The challenge binds the asset hash: different content fails.
	other := arg
	other.Name = "other"
	other.AssetContent = []byte("different asset")
	if _, err := l.CreateTokenByChallenge(alice, other); err == nil {
		t.Fatal("challenge for another asset hash should be rejected")
	}
}

func TestUpdateToken(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "mutable")

	name := "renamed"
	if err := l.UpdateToken(alice, UpdateTokenArg{ID: sftID(tid, 0), Name: &name}); err == nil {
		t.Fatal("update by a stranger should fail")
	}
	if err := l.UpdateToken(testManager, UpdateTokenArg{ID: sftID(tid, 0), Name: &name}); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	metas, err := l.TokenMetadata([]uint64{sftID(tid, 0)})
	if err != nil {
		t.Fatalf("TokenMetadata: %v", err)
	}
	if metas[0]["icrc7:name"] != types.Text("renamed") {
		t.Fatalf("name after update = %v", metas[0]["icrc7:name"])
	}

	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.UpdateToken(testManager, UpdateTokenArg{ID: sftID(tid, 0), Name: &name}); err == nil {
		t.Fatal("update after mint should fail")
	}
}

func TestUpdateToken_RejectedAssetKeepsOld(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid1 := createTestToken(t, l, "first")
	createTestToken(t, l, "second")

	// Replacing the asset with one already held by another token is
	// rejected, and the token must keep its original asset.
	dup := []byte("asset content of second")
	if err := l.UpdateToken(testManager, UpdateTokenArg{ID: sftID(tid1, 0), AssetContent: dup}); err == nil {
		t.Fatal("duplicate asset content should be rejected")
	}
	content, ctype, err := l.Asset(sftID(tid1, 0))
	if err != nil {
		t.Fatalf("Asset after rejected update: %v", err)
	}
	if string(content) != "asset content of first" || ctype != "image/png" {
		t.Fatalf("asset after rejected update = %q, %q", content, ctype)
	}

	// Resubmitting the token's own content is a no-op.
	if err := l.UpdateToken(testManager, UpdateTokenArg{ID: sftID(tid1, 0), AssetContent: content}); err != nil {
		t.Fatalf("UpdateToken with unchanged content: %v", err)
	}

	// A fresh asset still replaces the old one.
	fresh := []byte("asset content of first, v2")
	if err := l.UpdateToken(testManager, UpdateTokenArg{ID: sftID(tid1, 0), AssetContent: fresh}); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	content, _, err = l.Asset(sftID(tid1, 0))
	if err != nil || string(content) != string(fresh) {
		t.Fatalf("asset after update = %q, %v", content, err)
	}
}

func TestManage_ControllerAndManager(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())

	if err := l.SetMinters(alice, []types.Principal{alice}); err == nil {
		t.Fatal("SetMinters by a non-controller should fail")
	}
	if err := l.SetMinters(testController, []types.Principal{alice, testMinter}); err != nil {
		t.Fatalf("SetMinters: %v", err)
	}
	c := l.Collection()
	if !c.IsMinter(alice) {
		t.Fatal("alice should be a minter now")
	}

	if err := l.SetManagers(testController, []types.Principal{testManager, bob}); err != nil {
		t.Fatalf("SetManagers: %v", err)
	}
	c = l.Collection()
	if !c.IsManager(bob) {
		t.Fatal("bob should be a manager now")
	}

	desc := "updated description"
	if err := l.UpdateCollection(carol, UpdateCollectionArg{Description: &desc}); err == nil {
		t.Fatal("UpdateCollection by a non-manager should fail")
	}
	supplyCap := uint64(100)
	atomic := true
	if err := l.UpdateCollection(bob, UpdateCollectionArg{
		Description:          &desc,
		SupplyCap:            &supplyCap,
		AtomicBatchTransfers: &atomic,
	}); err != nil {
		t.Fatalf("UpdateCollection: %v", err)
	}
	c = l.Collection()
	if c.Description != desc || c.SupplyCap != 100 || !c.Settings.AtomicBatchTransfers {
		t.Fatalf("collection after update = %+v", c)
	}

	// A supply cap, once set, cannot be changed.
	if err := l.UpdateCollection(bob, UpdateCollectionArg{SupplyCap: &supplyCap}); err == nil {
		t.Fatal("changing a set supply cap should fail")
	}
}

func TestTransfer_Batch(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "batched")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice, alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := l.Transfer(alice, nil); err == nil {
		t.Fatal("empty batch should fail")
	}

	// Items are independent: one bad item does not poison the rest.
	res, err := l.Transfer(alice, []TransferArg{
		{To: types.Account{Owner: bob}, TokenID: sftID(tid, 1)},
		{To: types.Account{Owner: alice}, TokenID: sftID(tid, 2)},
		{To: types.Account{Owner: bob}, TokenID: sftID(tid, 2)},
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res[0].Err != nil {
		t.Errorf("item 0: %v", res[0].Err)
	}
	if !errors.Is(res[1].Err, ErrInvalidRecipient) {
		t.Errorf("item 1 err = %v, want ErrInvalidRecipient", res[1].Err)
	}
	if res[2].Err != nil {
		t.Errorf("item 2: %v", res[2].Err)
	}

	// Transferring a token the caller no longer owns.
	res, err = l.Transfer(alice, []TransferArg{{To: types.Account{Owner: carol}, TokenID: sftID(tid, 1)}})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !errors.Is(res[0].Err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", res[0].Err)
	}
}

func TestTransfer_Atomic(t *testing.T) {
	init := testInitArgs()
	s := DefaultSettings()
	s.AtomicBatchTransfers = true
	init.Settings = &s

	l := newTestLedger(t, storage.NewMemory(), init)
	tid := createTestToken(t, l, "atomic")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice, alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	before := l.BlockCount()

	// One unauthorized item rejects the whole batch.
	_, err := l.Transfer(alice, []TransferArg{
		{To: types.Account{Owner: bob}, TokenID: sftID(tid, 1)},
		{To: types.Account{Owner: bob}, TokenID: sftID(tid, 3)},
	})
	if !errors.Is(err, ErrNonExistingTokenID) {
		t.Fatalf("err = %v, want ErrNonExistingTokenID", err)
	}
	if l.BlockCount() != before {
		t.Fatal("rejected atomic batch appended blocks")
	}

	owners, err := l.OwnerOf([]uint64{sftID(tid, 1)})
	if err != nil || owners[0].Owner != alice {
		t.Fatalf("owner moved on a rejected batch: %v, %v", owners, err)
	}
}

func TestTransfer_Dedup(t *testing.T) {
	l := newTestLedger(t, storage.NewMemory(), testInitArgs())
	tid := createTestToken(t, l, "dedup")
	if _, err := l.Mint(testMinter, MintArg{TokenID: sftID(tid, 0), Holders: []types.Principal{alice}}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	created := testNow
	arg := TransferArg{To: types.Account{Owner: bob}, TokenID: sftID(tid, 1), CreatedAtTime: &created}

	res, err := l.Transfer(alice, []TransferArg{arg})
	if err != nil || res[0].Err != nil {
		t.Fatalf("first transfer: %v, %+v", err, res[0])
	}
	block := res[0].Block

	res, err = l.Transfer(alice, []TransferArg{arg})
	if err != nil {
		t.Fatalf("second transfer: %v", err)
	}
	var dup *DuplicateError
	if !errors.As(res[0].Err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", res[0].Err)
	}
	if dup.DuplicateOf != block {
		t.Fatalf("DuplicateOf = %d, want %d", dup.DuplicateOf, block)
	}
}
