package ledger

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// HolderTokens is the per-owner reverse index: token group id to the set
// of owned sub-items, each carrying its token-level approvals. An entry
// exists for (group, sid) exactly when the Holders list of that group
// records the owner at position sid-1.
type HolderTokens map[uint32]map[uint32]Approvals

// BalanceOf returns the number of sub-items the owner holds.
func (ht HolderTokens) BalanceOf() uint64 {
	var n uint64
	for _, sids := range ht {
		n += uint64(len(sids))
	}
	return n
}

// TokenIDs returns the owned group ids in ascending order.
func (ht HolderTokens) TokenIDs() []uint32 {
	ids := make([]uint32, 0, len(ht))
	for id := range ht {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sids returns the owned sub-item ids of group tid in ascending order.
func (ht HolderTokens) Sids(tid uint32) []uint32 {
	sids := make([]uint32, 0, len(ht[tid]))
	for sid := range ht[tid] {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	return sids
}

// Owns reports whether the owner holds sub-item (tid, sid).
func (ht HolderTokens) Owns(tid, sid uint32) bool {
	_, ok := ht[tid][sid]
	return ok
}

// ApprovalsOf returns the token-level approvals of (tid, sid), or nil.
func (ht HolderTokens) ApprovalsOf(tid, sid uint32) Approvals {
	return ht[tid][sid]
}

// Add records ownership of (tid, sid) with no approvals.
func (ht HolderTokens) Add(tid, sid uint32) {
	sids, ok := ht[tid]
	if !ok {
		sids = make(map[uint32]Approvals)
		ht[tid] = sids
	}
	sids[sid] = nil
}

// Remove drops ownership of (tid, sid), discarding its approvals.
func (ht HolderTokens) Remove(tid, sid uint32) {
	sids, ok := ht[tid]
	if !ok {
		return
	}
	delete(sids, sid)
	if len(sids) == 0 {
		delete(ht, tid)
	}
}

// InsertApproval grants spender a token-level approval on (tid, sid).
// The owner must actually hold the sub-item.
func (ht HolderTokens) InsertApproval(max uint64, tid, sid uint32, spender types.Principal, createdAt, expiresAt uint64) error {
	sids, ok := ht[tid]
	if !ok {
		return ErrUnauthorized
	}
	as, ok := sids[sid]
	if !ok {
		return ErrUnauthorized
	}
	if err := as.Insert(spender, createdAt, expiresAt, max); err != nil {
		return err
	}
	sids[sid] = as
	return nil
}

// RevokeApproval removes spender's token-level approval on (tid, sid),
// or all approvals when spender is nil.
func (ht HolderTokens) RevokeApproval(tid, sid uint32, spender *types.Principal) error {
	sids, ok := ht[tid]
	if !ok {
		return ErrUnauthorized
	}
	as, ok := sids[sid]
	if !ok {
		return ErrUnauthorized
	}
	if !as.Revoke(spender) {
		return ErrApprovalDoesNotExist
	}
	sids[sid] = as
	return nil
}

// IsApprovedFor reports whether spender holds an active token-level
// approval on (tid, sid) at time now (seconds).
func (ht HolderTokens) IsApprovedFor(spender types.Principal, tid, sid uint32, now uint64) bool {
	return ht[tid][sid].IsActiveFor(spender, now)
}

// holderTokenStore persists HolderTokens records keyed by owner.
type holderTokenStore struct {
	db storage.DB
}

func newHolderTokenStore(db storage.DB) *holderTokenStore {
	return &holderTokenStore{db: storage.NewRegion(db, "holdertokens")}
}

// Get loads the reverse index of owner. It reports false when the owner
// has never held a token.
func (s *holderTokenStore) Get(owner types.Principal) (HolderTokens, bool, error) {
	raw, err := s.db.Get(owner.Bytes())
	if storage.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load holder tokens of %s: %w", owner, err)
	}
	var ht HolderTokens
	if err := cbor.Unmarshal(raw, &ht); err != nil {
		return nil, false, fmt.Errorf("decode holder tokens of %s: %w", owner, err)
	}
	return ht, true, nil
}

// GetOrEmpty loads the reverse index of owner, returning an empty record
// for owners with no holdings.
func (s *holderTokenStore) GetOrEmpty(owner types.Principal) (HolderTokens, error) {
	ht, ok, err := s.Get(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		ht = make(HolderTokens)
	}
	return ht, nil
}

// Set writes the reverse index of owner. Empty records are deleted so
// that former holders do not accumulate tombstones.
func (s *holderTokenStore) Set(owner types.Principal, ht HolderTokens) error {
	if len(ht) == 0 {
		if err := s.db.Delete(owner.Bytes()); err != nil {
			return fmt.Errorf("delete holder tokens of %s: %w", owner, err)
		}
		return nil
	}
	raw, err := encMode.Marshal(ht)
	if err != nil {
		return fmt.Errorf("encode holder tokens of %s: %w", owner, err)
	}
	if err := s.db.Put(owner.Bytes(), raw); err != nil {
		return fmt.Errorf("store holder tokens of %s: %w", owner, err)
	}
	return nil
}

// MoveForTransfer moves (tid, sid) from one owner's index to another's,
// discarding any approvals attached to the transferred item.
func (s *holderTokenStore) MoveForTransfer(from, to types.Principal, tid, sid uint32) error {
	fromHT, err := s.GetOrEmpty(from)
	if err != nil {
		return err
	}
	fromHT.Remove(tid, sid)
	if err := s.Set(from, fromHT); err != nil {
		return err
	}
	toHT, err := s.GetOrEmpty(to)
	if err != nil {
		return err
	}
	toHT.Add(tid, sid)
	return s.Set(to, toHT)
}
