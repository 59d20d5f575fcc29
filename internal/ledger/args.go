package ledger

import (
	"github.com/ldclabs/ic-sft/pkg/types"
)

// SECOND is one second in nanoseconds. The ledger clock and all
// caller-supplied times are in nanoseconds; stored approval times and
// the dedup window are in seconds.
const SECOND = uint64(1_000_000_000)

// TransferArg moves one token from the caller to To.
type TransferArg struct {
	FromSubaccount []byte        `json:"from_subaccount,omitempty" cbor:"from_subaccount,omitempty"`
	To             types.Account `json:"to" cbor:"to"`
	TokenID        uint64        `json:"token_id" cbor:"token_id"`
	Memo           []byte        `json:"memo,omitempty" cbor:"memo,omitempty"`
	CreatedAtTime  *uint64       `json:"created_at_time,omitempty" cbor:"created_at_time,omitempty"`
}

// TransferFromArg moves one token from From to To on behalf of an
// approved spender, the caller.
type TransferFromArg struct {
	SpenderSubaccount []byte        `json:"spender_subaccount,omitempty" cbor:"spender_subaccount,omitempty"`
	From              types.Account `json:"from" cbor:"from"`
	To                types.Account `json:"to" cbor:"to"`
	TokenID           uint64        `json:"token_id" cbor:"token_id"`
	Memo              []byte        `json:"memo,omitempty" cbor:"memo,omitempty"`
	CreatedAtTime     *uint64       `json:"created_at_time,omitempty" cbor:"created_at_time,omitempty"`
}

// ApprovalInfo is the shared payload of token and collection approvals.
// ExpiresAt and CreatedAtTime are in nanoseconds.
type ApprovalInfo struct {
	FromSubaccount []byte        `json:"from_subaccount,omitempty" cbor:"from_subaccount,omitempty"`
	Spender        types.Account `json:"spender" cbor:"spender"`
	ExpiresAt      *uint64       `json:"expires_at,omitempty" cbor:"expires_at,omitempty"`
	Memo           []byte        `json:"memo,omitempty" cbor:"memo,omitempty"`
	CreatedAtTime  *uint64       `json:"created_at_time,omitempty" cbor:"created_at_time,omitempty"`
}

// ApproveTokenArg grants a token-level approval.
type ApproveTokenArg struct {
	TokenID      uint64       `json:"token_id" cbor:"token_id"`
	ApprovalInfo ApprovalInfo `json:"approval_info" cbor:"approval_info"`
}

// ApproveCollectionArg grants a collection-level approval.
type ApproveCollectionArg struct {
	ApprovalInfo ApprovalInfo `json:"approval_info" cbor:"approval_info"`
}

// RevokeTokenApprovalArg revokes token-level approvals. A nil Spender
// revokes for all spenders.
type RevokeTokenApprovalArg struct {
	FromSubaccount []byte         `json:"from_subaccount,omitempty" cbor:"from_subaccount,omitempty"`
	Spender        *types.Account `json:"spender,omitempty" cbor:"spender,omitempty"`
	TokenID        uint64         `json:"token_id" cbor:"token_id"`
	Memo           []byte         `json:"memo,omitempty" cbor:"memo,omitempty"`
	CreatedAtTime  *uint64        `json:"created_at_time,omitempty" cbor:"created_at_time,omitempty"`
}

// RevokeCollectionApprovalArg revokes collection-level approvals. A nil
// Spender revokes for all spenders.
type RevokeCollectionApprovalArg struct {
	FromSubaccount []byte         `json:"from_subaccount,omitempty" cbor:"from_subaccount,omitempty"`
	Spender        *types.Account `json:"spender,omitempty" cbor:"spender,omitempty"`
	Memo           []byte         `json:"memo,omitempty" cbor:"memo,omitempty"`
	CreatedAtTime  *uint64        `json:"created_at_time,omitempty" cbor:"created_at_time,omitempty"`
}

// IsApprovedArg asks whether spender may transfer the given token on
// behalf of the caller.
type IsApprovedArg struct {
	Spender types.Account `json:"spender" cbor:"spender"`
	TokenID uint64        `json:"token_id" cbor:"token_id"`
}

// MintArg mints one sub-item of TokenID to each listed holder.
type MintArg struct {
	TokenID uint64            `json:"token_id" cbor:"token_id"`
	Holders []types.Principal `json:"holders" cbor:"holders"`
}

// CreateTokenArg creates a new token group.
type CreateTokenArg struct {
	Name             string          `json:"name" cbor:"name"`
	Description      string          `json:"description,omitempty" cbor:"description,omitempty"`
	AssetName        string          `json:"asset_name" cbor:"asset_name"`
	AssetContentType string          `json:"asset_content_type" cbor:"asset_content_type"`
	AssetContent     []byte          `json:"asset_content" cbor:"asset_content"`
	Metadata         types.Map       `json:"metadata" cbor:"metadata"`
	SupplyCap        uint32          `json:"supply_cap,omitempty" cbor:"supply_cap,omitempty"`
	Author           types.Principal `json:"author" cbor:"author"`
	Challenge        []byte          `json:"challenge,omitempty" cbor:"challenge,omitempty"`
}

// UpdateTokenArg edits a token group before its first mint. Nil fields
// are left unchanged.
type UpdateTokenArg struct {
	ID               uint64           `json:"id" cbor:"id"`
	Name             *string          `json:"name,omitempty" cbor:"name,omitempty"`
	Description      *string          `json:"description,omitempty" cbor:"description,omitempty"`
	AssetName        *string          `json:"asset_name,omitempty" cbor:"asset_name,omitempty"`
	AssetContentType *string          `json:"asset_content_type,omitempty" cbor:"asset_content_type,omitempty"`
	AssetContent     []byte           `json:"asset_content,omitempty" cbor:"asset_content,omitempty"`
	Metadata         types.Map        `json:"metadata,omitempty" cbor:"metadata,omitempty"`
	SupplyCap        *uint32          `json:"supply_cap,omitempty" cbor:"supply_cap,omitempty"`
	Author           *types.Principal `json:"author,omitempty" cbor:"author,omitempty"`
}

// UpdateCollectionArg edits the collection record. Nil fields are left
// unchanged.
type UpdateCollectionArg struct {
	Name                 *string `json:"name,omitempty" cbor:"name,omitempty"`
	Description          *string `json:"description,omitempty" cbor:"description,omitempty"`
	Logo                 *string `json:"logo,omitempty" cbor:"logo,omitempty"`
	AssetsOrigin         *string `json:"assets_origin,omitempty" cbor:"assets_origin,omitempty"`
	SupplyCap            *uint64 `json:"supply_cap,omitempty" cbor:"supply_cap,omitempty"`
	MaxQueryBatchSize    *uint16 `json:"max_query_batch_size,omitempty" cbor:"max_query_batch_size,omitempty"`
	MaxUpdateBatchSize   *uint16 `json:"max_update_batch_size,omitempty" cbor:"max_update_batch_size,omitempty"`
	DefaultTakeValue     *uint16 `json:"default_take_value,omitempty" cbor:"default_take_value,omitempty"`
	MaxTakeValue         *uint16 `json:"max_take_value,omitempty" cbor:"max_take_value,omitempty"`
	MaxMemoSize          *uint16 `json:"max_memo_size,omitempty" cbor:"max_memo_size,omitempty"`
	AtomicBatchTransfers *bool   `json:"atomic_batch_transfers,omitempty" cbor:"atomic_batch_transfers,omitempty"`
	TxWindow             *uint64 `json:"tx_window,omitempty" cbor:"tx_window,omitempty"`
	PermittedDrift       *uint64 `json:"permitted_drift,omitempty" cbor:"permitted_drift,omitempty"`
}

// ChallengeArg asks for a signed token-creation challenge binding the
// author to the asset hash.
type ChallengeArg struct {
	Author    types.Principal `json:"author" cbor:"author"`
	AssetHash types.Hash      `json:"asset_hash" cbor:"asset_hash"`
}
