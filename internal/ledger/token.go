package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// Token describes one token group. ID is the group id, starting at 1.
// TotalSupply is the number of minted sub-items; SupplyCap of zero means
// uncapped. Times are in seconds.
type Token struct {
	ID               uint32          `cbor:"id"`
	Name             string          `cbor:"name"`
	Description      string          `cbor:"description,omitempty"`
	AssetName        string          `cbor:"asset_name"`
	AssetContentType string          `cbor:"asset_content_type"`
	AssetHash        types.Hash      `cbor:"asset_hash"`
	Metadata         types.Map       `cbor:"metadata"`
	Author           types.Principal `cbor:"author"`
	SupplyCap        uint32          `cbor:"supply_cap,omitempty"`
	TotalSupply      uint32          `cbor:"total_supply"`
	CreatedAt        uint64          `cbor:"created_at"`
	UpdatedAt        uint64          `cbor:"updated_at"`
}

// TokenMetadata returns the token metadata in the icrc7 key scheme,
// merged over the author-supplied metadata map.
func (t *Token) TokenMetadata() map[string]types.Value {
	res := make(map[string]types.Value, len(t.Metadata)+5)
	for k, v := range t.Metadata {
		res[k] = v
	}
	res["icrc7:name"] = types.Text(t.Name)
	if t.Description != "" {
		res["icrc7:description"] = types.Text(t.Description)
	}
	res["asset_name"] = types.Text(t.AssetName)
	res["asset_content_type"] = types.Text(t.AssetContentType)
	res["asset_hash"] = types.Blob(t.AssetHash.Bytes())
	return res
}

var keyTokenCount = []byte("count")

// tokenStore keeps the token vector: records addressed by group id in
// insertion order, plus a count cell. Group ids are dense, the record
// for group g lives at index g-1.
type tokenStore struct {
	index storage.DB
	data  storage.DB
	count uint32
}

func newTokenStore(db storage.DB) (*tokenStore, error) {
	s := &tokenStore{
		index: storage.NewRegion(db, "tokenindex"),
		data:  storage.NewRegion(db, "tokendata"),
	}
	raw, err := s.index.Get(keyTokenCount)
	switch {
	case storage.IsNotFound(err):
		s.count = 0
	case err != nil:
		return nil, fmt.Errorf("load token count: %w", err)
	case len(raw) != 4:
		return nil, fmt.Errorf("token count cell has %d bytes, want 4", len(raw))
	default:
		s.count = binary.BigEndian.Uint32(raw)
	}
	return s, nil
}

// Len returns the number of token groups.
func (s *tokenStore) Len() uint32 {
	return s.count
}

func tokenKey(idx uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, idx)
	return k
}

// Append stores t as the next token group and returns its group id.
func (s *tokenStore) Append(t *Token) (uint32, error) {
	id := s.count + 1
	t.ID = id
	raw, err := encMode.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("encode token: %w", err)
	}
	if err := s.data.Put(tokenKey(id-1), raw); err != nil {
		return 0, fmt.Errorf("store token %d: %w", id, err)
	}
	cnt := make([]byte, 4)
	binary.BigEndian.PutUint32(cnt, id)
	if err := s.index.Put(keyTokenCount, cnt); err != nil {
		return 0, fmt.Errorf("store token count: %w", err)
	}
	s.count = id
	return id, nil
}

// Get loads the token group with the given id.
func (s *tokenStore) Get(id uint32) (*Token, error) {
	if id == 0 || id > s.count {
		return nil, ErrNonExistingTokenID
	}
	raw, err := s.data.Get(tokenKey(id - 1))
	if err != nil {
		return nil, fmt.Errorf("load token %d: %w", id, err)
	}
	var t Token
	if err := cbor.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode token %d: %w", id, err)
	}
	return &t, nil
}

// Set overwrites the stored record for token group t.ID.
func (s *tokenStore) Set(t *Token) error {
	if t.ID == 0 || t.ID > s.count {
		return ErrNonExistingTokenID
	}
	raw, err := encMode.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := s.data.Put(tokenKey(t.ID-1), raw); err != nil {
		return fmt.Errorf("store token %d: %w", t.ID, err)
	}
	return nil
}
