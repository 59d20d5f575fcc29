package rpc

import (
	"errors"

	"github.com/ldclabs/ic-sft/internal/ledger"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeRejected       = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// CallerParam carries the caller principal of an update call as hex.
type CallerParam struct {
	Caller types.Principal `json:"caller"`
}

// TokenIDsParam is used by the per-token batch queries.
type TokenIDsParam struct {
	TokenIDs []uint64 `json:"token_ids"`
}

// AccountsParam is used by icrc7_balance_of.
type AccountsParam struct {
	Accounts []types.Account `json:"accounts"`
}

// PageParam is used by icrc7_tokens.
type PageParam struct {
	Prev *uint64 `json:"prev,omitempty"`
	Take *uint64 `json:"take,omitempty"`
}

// TokensOfParam is used by icrc7_tokens_of.
type TokensOfParam struct {
	Account types.Account `json:"account"`
	Prev    *uint64       `json:"prev,omitempty"`
	Take    *uint64       `json:"take,omitempty"`
}

// TokensInParam is used by sft_tokens_in.
type TokensInParam struct {
	TokenID uint64  `json:"token_id"`
	Prev    *uint64 `json:"prev,omitempty"`
	Take    *uint64 `json:"take,omitempty"`
}

// TokenApprovalsParam is used by icrc37_get_token_approvals.
type TokenApprovalsParam struct {
	TokenID uint64         `json:"token_id"`
	Prev    *types.Account `json:"prev,omitempty"`
	Take    *uint64        `json:"take,omitempty"`
}

// CollectionApprovalsParam is used by icrc37_get_collection_approvals.
type CollectionApprovalsParam struct {
	Owner types.Account  `json:"owner"`
	Prev  *types.Account `json:"prev,omitempty"`
	Take  *uint64        `json:"take,omitempty"`
}

// IsApprovedParam is used by icrc37_is_approved.
type IsApprovedParam struct {
	CallerParam
	Args []ledger.IsApprovedArg `json:"args"`
}

// TransferParam is used by icrc7_transfer.
type TransferParam struct {
	CallerParam
	Args []ledger.TransferArg `json:"args"`
}

// TransferFromParam is used by icrc37_transfer_from.
type TransferFromParam struct {
	CallerParam
	Args []ledger.TransferFromArg `json:"args"`
}

// ApproveTokensParam is used by icrc37_approve_tokens.
type ApproveTokensParam struct {
	CallerParam
	Args []ledger.ApproveTokenArg `json:"args"`
}

// ApproveCollectionParam is used by icrc37_approve_collection.
type ApproveCollectionParam struct {
	CallerParam
	Args []ledger.ApproveCollectionArg `json:"args"`
}

// RevokeTokenParam is used by icrc37_revoke_token_approvals.
type RevokeTokenParam struct {
	CallerParam
	Args []ledger.RevokeTokenApprovalArg `json:"args"`
}

// RevokeCollectionParam is used by icrc37_revoke_collection_approvals.
type RevokeCollectionParam struct {
	CallerParam
	Args []ledger.RevokeCollectionApprovalArg `json:"args"`
}

// MintParam is used by sft_mint.
type MintParam struct {
	CallerParam
	ledger.MintArg
}

// CreateTokenParam is used by sft_create_token and
// sft_create_token_by_challenge.
type CreateTokenParam struct {
	CallerParam
	ledger.CreateTokenArg
}

// UpdateTokenParam is used by sft_update_token.
type UpdateTokenParam struct {
	CallerParam
	ledger.UpdateTokenArg
}

// UpdateCollectionParam is used by sft_update_collection.
type UpdateCollectionParam struct {
	CallerParam
	ledger.UpdateCollectionArg
}

// ChallengeParam is used by sft_challenge.
type ChallengeParam struct {
	CallerParam
	ledger.ChallengeArg
}

// PrincipalsParam is used by admin_set_minters and admin_set_managers.
type PrincipalsParam struct {
	CallerParam
	Principals []types.Principal `json:"principals"`
}

// GetBlocksParam is used by icrc3_get_blocks.
type GetBlocksParam struct {
	Start uint64 `json:"start"`
	Take  uint64 `json:"take"`
}

// AssetParam is used by sft_asset.
type AssetParam struct {
	TokenID uint64 `json:"token_id"`
}

// ── Result types ────────────────────────────────────────────────────────

// OpResultJSON is the per-item outcome of a batch update in the wire
// form: exactly one of Ok (block index) or Err is set.
type OpResultJSON struct {
	Ok  *uint64     `json:"Ok,omitempty"`
	Err interface{} `json:"Err,omitempty"`
}

// BlocksResult is returned by icrc3_get_blocks. Blocks are typed as
// maps rather than bare values so that clients can decode the result:
// every block value is a map, and types.Map round-trips through JSON.
type BlocksResult struct {
	LogLength uint64      `json:"log_length"`
	Blocks    []types.Map `json:"blocks"`
}

// AssetResult is returned by sft_asset.
type AssetResult struct {
	Content     []byte `json:"content"`
	ContentType string `json:"content_type"`
}

// opResults renders ledger batch outcomes into their wire form.
// Unprocessed items stay null.
func opResults(rs []*ledger.OpResult) []*OpResultJSON {
	out := make([]*OpResultJSON, len(rs))
	for i, r := range rs {
		if r == nil {
			continue
		}
		if r.Err != nil {
			out[i] = &OpResultJSON{Err: errorVariant(r.Err)}
		} else {
			b := r.Block
			out[i] = &OpResultJSON{Ok: &b}
		}
	}
	return out
}

// errorVariant renders a ledger rejection as its tagged wire variant.
func errorVariant(err error) interface{} {
	var cif *ledger.CreatedInFutureError
	if errors.As(err, &cif) {
		return map[string]interface{}{"CreatedInFuture": map[string]uint64{"ledger_time": cif.LedgerTime}}
	}
	var dup *ledger.DuplicateError
	if errors.As(err, &dup) {
		return map[string]interface{}{"Duplicate": map[string]uint64{"duplicate_of": dup.DuplicateOf}}
	}
	var gbe *ledger.GenericBatchError
	if errors.As(err, &gbe) {
		return map[string]interface{}{"GenericBatchError": map[string]interface{}{
			"error_code": gbe.Code, "message": gbe.Message,
		}}
	}
	var ge *ledger.GenericError
	if errors.As(err, &ge) {
		return map[string]interface{}{"GenericError": map[string]interface{}{
			"error_code": ge.Code, "message": ge.Message,
		}}
	}
	switch {
	case errors.Is(err, ledger.ErrNonExistingTokenID):
		return "NonExistingTokenId"
	case errors.Is(err, ledger.ErrInvalidRecipient):
		return "InvalidRecipient"
	case errors.Is(err, ledger.ErrInvalidSpender):
		return "InvalidSpender"
	case errors.Is(err, ledger.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ledger.ErrTooOld):
		return "TooOld"
	case errors.Is(err, ledger.ErrSupplyCapReached):
		return "SupplyCapReached"
	case errors.Is(err, ledger.ErrApprovalDoesNotExist):
		return "ApprovalDoesNotExist"
	}
	return map[string]interface{}{"GenericError": map[string]interface{}{
		"error_code": uint64(0), "message": err.Error(),
	}}
}
