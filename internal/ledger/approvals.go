package ledger

import (
	"sort"

	"github.com/ldclabs/ic-sft/pkg/types"
)

// Approval grants a spender the right to transfer on behalf of an owner.
// Times are in seconds. ExpiresAt of zero means no expiry; a non-zero
// ExpiresAt is exclusive, the approval is inactive once now >= ExpiresAt.
type Approval struct {
	_         struct{} `cbor:",toarray"`
	Spender   types.Principal
	CreatedAt uint64
	ExpiresAt uint64
}

// IsActive reports whether the approval can still authorize a transfer
// at time now (seconds).
func (a Approval) IsActive(now uint64) bool {
	return a.ExpiresAt == 0 || a.ExpiresAt > now
}

// Approvals is a set of approvals kept sorted by spender so that stored
// records encode deterministically and spender lookup is a binary search.
type Approvals []Approval

func (as Approvals) search(spender types.Principal) (int, bool) {
	i := sort.Search(len(as), func(i int) bool {
		return as[i].Spender >= spender
	})
	return i, i < len(as) && as[i].Spender == spender
}

// Get returns the approval for spender, if any.
func (as Approvals) Get(spender types.Principal) (Approval, bool) {
	i, ok := as.search(spender)
	if !ok {
		return Approval{}, false
	}
	return as[i], true
}

// IsActiveFor reports whether spender holds an active approval at now.
func (as Approvals) IsActiveFor(spender types.Principal, now uint64) bool {
	a, ok := as.Get(spender)
	return ok && a.IsActive(now)
}

// Insert adds or replaces the approval for spender. It fails when the set
// is full and spender is not already present.
func (as *Approvals) Insert(spender types.Principal, createdAt, expiresAt, max uint64) error {
	i, ok := as.search(spender)
	if ok {
		(*as)[i].CreatedAt = createdAt
		(*as)[i].ExpiresAt = expiresAt
		return nil
	}
	if uint64(len(*as)) >= max {
		return genericErrorf("exceeds the maximum number of approvals")
	}
	*as = append(*as, Approval{})
	copy((*as)[i+1:], (*as)[i:])
	(*as)[i] = Approval{Spender: spender, CreatedAt: createdAt, ExpiresAt: expiresAt}
	return nil
}

// Revoke removes the approval for spender, or every approval when
// spender is nil. It reports whether anything was removed.
func (as *Approvals) Revoke(spender *types.Principal) bool {
	if spender == nil {
		if len(*as) == 0 {
			return false
		}
		*as = (*as)[:0]
		return true
	}
	i, ok := as.search(*spender)
	if !ok {
		return false
	}
	*as = append((*as)[:i], (*as)[i+1:]...)
	return true
}
