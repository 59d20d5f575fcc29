package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// approvalStore persists collection-level approvals, keyed by the owner
// granting them.
type approvalStore struct {
	db storage.DB
}

func newApprovalStore(db storage.DB) *approvalStore {
	return &approvalStore{db: storage.NewRegion(db, "approvals")}
}

// Get loads the collection-level approvals granted by owner.
func (s *approvalStore) Get(owner types.Principal) (Approvals, error) {
	raw, err := s.db.Get(owner.Bytes())
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load approvals of %s: %w", owner, err)
	}
	var as Approvals
	if err := cbor.Unmarshal(raw, &as); err != nil {
		return nil, fmt.Errorf("decode approvals of %s: %w", owner, err)
	}
	return as, nil
}

// Set writes the collection-level approvals granted by owner. Empty sets
// are deleted.
func (s *approvalStore) Set(owner types.Principal, as Approvals) error {
	if len(as) == 0 {
		if err := s.db.Delete(owner.Bytes()); err != nil {
			return fmt.Errorf("delete approvals of %s: %w", owner, err)
		}
		return nil
	}
	raw, err := encMode.Marshal(as)
	if err != nil {
		return fmt.Errorf("encode approvals of %s: %w", owner, err)
	}
	if err := s.db.Put(owner.Bytes(), raw); err != nil {
		return fmt.Errorf("store approvals of %s: %w", owner, err)
	}
	return nil
}

// IsApprovedFor reports whether spender holds an active collection-level
// approval from owner at time now (seconds).
func (s *approvalStore) IsApprovedFor(owner, spender types.Principal, now uint64) (bool, error) {
	as, err := s.Get(owner)
	if err != nil {
		return false, err
	}
	return as.IsActiveFor(spender, now), nil
}
