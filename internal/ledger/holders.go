package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// Holders is the authoritative ownership list of one token group. The
// holder at position i owns sub-item i+1, so the list length always
// equals the group's total supply.
type Holders []types.Principal

// Total returns the number of minted sub-items in the group.
func (h Holders) Total() uint32 {
	return uint32(len(h))
}

// Get returns the owner of sub-item sid (1-based).
func (h Holders) Get(sid uint32) (types.Principal, bool) {
	if sid == 0 || sid > uint32(len(h)) {
		return "", false
	}
	return h[sid-1], true
}

// IsHolder reports whether p owns sub-item sid.
func (h Holders) IsHolder(sid uint32, p types.Principal) bool {
	owner, ok := h.Get(sid)
	return ok && owner == p
}

// Append records a newly minted sub-item owned by p.
func (h *Holders) Append(p types.Principal) {
	*h = append(*h, p)
}

// TransferAt reassigns sub-item sid from one owner to another. The
// caller-supplied from must match the current holder.
func (h Holders) TransferAt(sid uint32, from, to types.Principal) error {
	if sid == 0 || sid > uint32(len(h)) {
		return ErrNonExistingTokenID
	}
	if h[sid-1] != from {
		return ErrUnauthorized
	}
	h[sid-1] = to
	return nil
}

// holderStore persists the per-group Holders lists, keyed by group id.
type holderStore struct {
	db storage.DB
}

func newHolderStore(db storage.DB) *holderStore {
	return &holderStore{db: storage.NewRegion(db, "holders")}
}

func groupKey(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}

// Get loads the holders list of group id. A missing record is an empty
// list: the group exists but nothing has been minted.
func (s *holderStore) Get(id uint32) (Holders, error) {
	raw, err := s.db.Get(groupKey(id))
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load holders %d: %w", id, err)
	}
	var h Holders
	if err := cbor.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode holders %d: %w", id, err)
	}
	return h, nil
}

// Set writes the holders list of group id.
func (s *holderStore) Set(id uint32, h Holders) error {
	raw, err := encMode.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode holders %d: %w", id, err)
	}
	if err := s.db.Put(groupKey(id), raw); err != nil {
		return fmt.Errorf("store holders %d: %w", id, err)
	}
	return nil
}
