// Package ledger implements the semi-fungible-token state machine: the
// collection and token records, ownership and approval indexes, and the
// validation and mutation protocol for every state-changing operation.
// All state is persisted in named storage regions and every mutation is
// recorded in the hash-chained block log.
package ledger

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Settings are the operator-tunable bounds enforced by the validation
// layer. TxWindow and PermittedDrift are in seconds.
type Settings struct {
	MaxQueryBatchSize                uint16 `json:"max_query_batch_size" cbor:"max_query_batch_size"`
	MaxUpdateBatchSize               uint16 `json:"max_update_batch_size" cbor:"max_update_batch_size"`
	DefaultTakeValue                 uint16 `json:"default_take_value" cbor:"default_take_value"`
	MaxTakeValue                     uint16 `json:"max_take_value" cbor:"max_take_value"`
	MaxMemoSize                      uint16 `json:"max_memo_size" cbor:"max_memo_size"`
	AtomicBatchTransfers             bool   `json:"atomic_batch_transfers" cbor:"atomic_batch_transfers"`
	TxWindow                         uint64 `json:"tx_window" cbor:"tx_window"`
	PermittedDrift                   uint64 `json:"permitted_drift" cbor:"permitted_drift"`
	MaxApprovalsPerTokenOrCollection uint16 `json:"max_approvals_per_token_or_collection" cbor:"max_approvals_per_token_or_collection"`
	MaxRevokeApprovals               uint16 `json:"max_revoke_approvals" cbor:"max_revoke_approvals"`
}

// DefaultSettings returns the bounds applied when the collection is
// created without explicit overrides.
func DefaultSettings() Settings {
	return Settings{
		MaxQueryBatchSize:                100,
		MaxUpdateBatchSize:               100,
		DefaultTakeValue:                 20,
		MaxTakeValue:                     200,
		MaxMemoSize:                      32,
		AtomicBatchTransfers:             false,
		TxWindow:                         60 * 60,
		PermittedDrift:                   2 * 60,
		MaxApprovalsPerTokenOrCollection: 100,
		MaxRevokeApprovals:               100,
	}
}

// TakeValue resolves a caller-supplied page size against the default and
// the maximum.
func (s Settings) TakeValue(take *uint64) uint16 {
	if take == nil {
		return s.DefaultTakeValue
	}
	if *take > uint64(s.MaxTakeValue) {
		return s.MaxTakeValue
	}
	return uint16(*take)
}

// Collection is the singleton record describing the whole ledger. Empty
// strings and zero values stand in for absent optional fields. Minters
// and Managers are kept sorted. TotalSupply counts token groups, not
// minted items.
type Collection struct {
	Symbol       string            `json:"symbol" cbor:"symbol"`
	Name         string            `json:"name" cbor:"name"`
	Description  string            `json:"description,omitempty" cbor:"description,omitempty"`
	Logo         string            `json:"logo,omitempty" cbor:"logo,omitempty"`
	AssetsOrigin string            `json:"assets_origin,omitempty" cbor:"assets_origin,omitempty"`
	TotalSupply  uint64            `json:"total_supply" cbor:"total_supply"`
	SupplyCap    uint64            `json:"supply_cap,omitempty" cbor:"supply_cap,omitempty"`
	CreatedAt    uint64            `json:"created_at" cbor:"created_at"`
	UpdatedAt    uint64            `json:"updated_at" cbor:"updated_at"`
	Minters      []types.Principal `json:"minters" cbor:"minters"`
	Managers     []types.Principal `json:"managers" cbor:"managers"`
	Settings     Settings          `json:"settings" cbor:"settings"`
}

func containsPrincipal(set []types.Principal, p types.Principal) bool {
	i := sort.Search(len(set), func(i int) bool { return set[i] >= p })
	return i < len(set) && set[i] == p
}

// IsMinter reports whether p may mint and create tokens.
func (c *Collection) IsMinter(p types.Principal) bool {
	return containsPrincipal(c.Minters, p)
}

// IsManager reports whether p may update the collection and tokens.
func (c *Collection) IsManager(p types.Principal) bool {
	return containsPrincipal(c.Managers, p)
}

// Metadata returns the collection metadata in the icrc7 key scheme.
func (c *Collection) Metadata() map[string]types.Value {
	res := map[string]types.Value{
		"icrc7:symbol":       types.Text(c.Symbol),
		"icrc7:name":         types.Text(c.Name),
		"icrc7:total_supply": types.Nat(c.TotalSupply),
	}
	if c.Description != "" {
		res["icrc7:description"] = types.Text(c.Description)
	}
	if c.Logo != "" {
		res["icrc7:logo"] = types.Text(c.Logo)
	}
	if c.SupplyCap > 0 {
		res["icrc7:supply_cap"] = types.Nat(c.SupplyCap)
	}
	return res
}

var keyCollection = []byte("self")

// collectionStore persists the Collection singleton in its own region.
// The record is loaded once at startup and written back on checkpoint
// and after every mutation of collection fields.
type collectionStore struct {
	db storage.DB
}

func newCollectionStore(db storage.DB) *collectionStore {
	return &collectionStore{db: storage.NewRegion(db, "collection")}
}

// Load reads the stored collection. It reports false when no collection
// has been initialized yet.
func (s *collectionStore) Load() (*Collection, bool, error) {
	raw, err := s.db.Get(keyCollection)
	if storage.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load collection: %w", err)
	}
	var c Collection
	if err := cbor.Unmarshal(raw, &c); err != nil {
		return nil, false, fmt.Errorf("decode collection: %w", err)
	}
	return &c, true, nil
}

// Save writes the collection record.
func (s *collectionStore) Save(c *Collection) error {
	raw, err := encMode.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := s.db.Put(keyCollection, raw); err != nil {
		return fmt.Errorf("store collection: %w", err)
	}
	return nil
}
