package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Genesis holds the collection definition used to create the ledger on
// first start. It is ignored once the collection record exists in the
// database.
type Genesis struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Logo         string `json:"logo,omitempty"`
	AssetsOrigin string `json:"assets_origin,omitempty"`
	SupplyCap    uint64 `json:"supply_cap,omitempty"`

	// Hex-encoded principals.
	Minters  []string `json:"minters,omitempty"`
	Managers []string `json:"managers,omitempty"`

	// Optional overrides of the built-in ledger bounds. Nil fields keep
	// the defaults.
	Settings *GenesisSettings `json:"settings,omitempty"`
}

// GenesisSettings mirrors the ledger bounds that may be seeded at
// creation time.
type GenesisSettings struct {
	MaxQueryBatchSize                *uint16 `json:"max_query_batch_size,omitempty"`
	MaxUpdateBatchSize               *uint16 `json:"max_update_batch_size,omitempty"`
	DefaultTakeValue                 *uint16 `json:"default_take_value,omitempty"`
	MaxTakeValue                     *uint16 `json:"max_take_value,omitempty"`
	MaxMemoSize                      *uint16 `json:"max_memo_size,omitempty"`
	AtomicBatchTransfers             *bool   `json:"atomic_batch_transfers,omitempty"`
	TxWindow                         *uint64 `json:"tx_window,omitempty"`
	PermittedDrift                   *uint64 `json:"permitted_drift,omitempty"`
	MaxApprovalsPerTokenOrCollection *uint16 `json:"max_approvals_per_token_or_collection,omitempty"`
	MaxRevokeApprovals               *uint16 `json:"max_revoke_approvals,omitempty"`
}

// LoadGenesis reads and validates a collection genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks the genesis definition for operator mistakes.
func (g *Genesis) Validate() error {
	if g.Symbol == "" {
		return fmt.Errorf("genesis symbol is required")
	}
	if g.Name == "" {
		return fmt.Errorf("genesis name is required")
	}
	if err := validatePrincipals(g.Minters, "minters"); err != nil {
		return err
	}
	if err := validatePrincipals(g.Managers, "managers"); err != nil {
		return err
	}
	return nil
}
