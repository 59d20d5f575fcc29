package rpc

import (
	"errors"
	"fmt"

	"github.com/ldclabs/ic-sft/internal/ledger"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	switch req.Method {
	case "icrc10_supported_standards":
		return ledger.SupportedStandards(), nil
	case "icrc7_collection_metadata":
		return s.ledger.CollectionMetadata(), nil
	case "icrc7_symbol":
		return s.ledger.Collection().Symbol, nil
	case "icrc7_name":
		return s.ledger.Collection().Name, nil
	case "icrc7_description":
		return s.ledger.Collection().Description, nil
	case "icrc7_logo":
		return s.ledger.Collection().Logo, nil
	case "icrc7_total_supply":
		return s.ledger.TotalSupply(), nil
	case "icrc7_supply_cap":
		return s.ledger.Collection().SupplyCap, nil
	case "icrc7_max_query_batch_size":
		return s.ledger.Settings().MaxQueryBatchSize, nil
	case "icrc7_max_update_batch_size":
		return s.ledger.Settings().MaxUpdateBatchSize, nil
	case "icrc7_default_take_value":
		return s.ledger.Settings().DefaultTakeValue, nil
	case "icrc7_max_take_value":
		return s.ledger.Settings().MaxTakeValue, nil
	case "icrc7_max_memo_size":
		return s.ledger.Settings().MaxMemoSize, nil
	case "icrc7_atomic_batch_transfers":
		return s.ledger.Settings().AtomicBatchTransfers, nil
	case "icrc7_tx_window":
		return s.ledger.Settings().TxWindow, nil
	case "icrc7_permitted_drift":
		return s.ledger.Settings().PermittedDrift, nil
	case "icrc7_token_metadata":
		return s.handleTokenMetadata(req)
	case "icrc7_owner_of":
		return s.handleOwnerOf(req)
	case "icrc7_balance_of":
		return s.handleBalanceOf(req)
	case "icrc7_tokens":
		return s.handleTokens(req)
	case "icrc7_tokens_of":
		return s.handleTokensOf(req)
	case "icrc7_transfer":
		return s.handleTransfer(req)
	case "icrc37_max_approvals_per_token_or_collection":
		return s.ledger.Settings().MaxApprovalsPerTokenOrCollection, nil
	case "icrc37_max_revoke_approvals":
		return s.ledger.Settings().MaxRevokeApprovals, nil
	case "icrc37_is_approved":
		return s.handleIsApproved(req)
	case "icrc37_get_token_approvals":
		return s.handleTokenApprovals(req)
	case "icrc37_get_collection_approvals":
		return s.handleCollectionApprovals(req)
	case "icrc37_approve_tokens":
		return s.handleApproveTokens(req)
	case "icrc37_approve_collection":
		return s.handleApproveCollection(req)
	case "icrc37_revoke_token_approvals":
		return s.handleRevokeTokenApprovals(req)
	case "icrc37_revoke_collection_approvals":
		return s.handleRevokeCollectionApprovals(req)
	case "icrc37_transfer_from":
		return s.handleTransferFrom(req)
	case "icrc3_get_blocks":
		return s.handleGetBlocks(req)
	case "icrc3_get_tip_certificate":
		return s.handleGetTipCertificate(req)
	case "icrc3_supported_block_types":
		return ledger.SupportedBlockTypes(), nil
	case "sft_tokens_in":
		return s.handleTokensIn(req)
	case "sft_asset":
		return s.handleAsset(req)
	case "sft_mint":
		return s.handleMint(req)
	case "sft_create_token":
		return s.handleCreateToken(req)
	case "sft_create_token_by_challenge":
		return s.handleCreateTokenByChallenge(req)
	case "sft_update_token":
		return s.handleUpdateToken(req)
	case "sft_update_collection":
		return s.handleUpdateCollection(req)
	case "sft_challenge":
		return s.handleChallenge(req)
	case "admin_set_minters":
		return s.handleSetMinters(req)
	case "admin_set_managers":
		return s.handleSetManagers(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// checkCaller rejects update calls without an authenticated caller.
func checkCaller(p CallerParam) *Error {
	if p.Caller.IsZero() {
		return &Error{Code: CodeInvalidParams, Message: "caller required"}
	}
	if p.Caller.IsAnonymous() {
		return &Error{Code: CodeRejected, Message: "anonymous caller is not allowed"}
	}
	return nil
}

// ledgerError renders a method-level ledger failure as a JSON-RPC error
// carrying the tagged variant in Data.
func ledgerError(err error) *Error {
	code := CodeRejected
	if errors.Is(err, ledger.ErrNonExistingTokenID) {
		code = CodeNotFound
	}
	return &Error{Code: code, Message: err.Error(), Data: errorVariant(err)}
}

func (s *Server) handleTokenMetadata(req *Request) (interface{}, *Error) {
	var p TokenIDsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.TokenMetadata(p.TokenIDs)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleOwnerOf(req *Request) (interface{}, *Error) {
	var p TokenIDsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.OwnerOf(p.TokenIDs)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleBalanceOf(req *Request) (interface{}, *Error) {
	var p AccountsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.BalanceOf(p.Accounts)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleTokens(req *Request) (interface{}, *Error) {
	var p PageParam
	if req.Params != nil {
		if e := parseParams(req, &p); e != nil {
			return nil, e
		}
	}
	return s.ledger.Tokens(p.Prev, p.Take), nil
}

func (s *Server) handleTokensOf(req *Request) (interface{}, *Error) {
	var p TokensOfParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.TokensOf(p.Account, p.Prev, p.Take)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleTokensIn(req *Request) (interface{}, *Error) {
	var p TokensInParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.TokensIn(p.TokenID, p.Prev, p.Take)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleTransfer(req *Request) (interface{}, *Error) {
	var p TransferParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.Transfer(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleTransferFrom(req *Request) (interface{}, *Error) {
	var p TransferFromParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.TransferFrom(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleIsApproved(req *Request) (interface{}, *Error) {
	var p IsApprovedParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.IsApproved(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleTokenApprovals(req *Request) (interface{}, *Error) {
	var p TokenApprovalsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.TokenApprovals(p.TokenID, p.Prev, p.Take)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleCollectionApprovals(req *Request) (interface{}, *Error) {
	var p CollectionApprovalsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	out, err := s.ledger.CollectionApprovals(p.Owner, p.Prev, p.Take)
	if err != nil {
		return nil, ledgerError(err)
	}
	return out, nil
}

func (s *Server) handleApproveTokens(req *Request) (interface{}, *Error) {
	var p ApproveTokensParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.ApproveTokens(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleApproveCollection(req *Request) (interface{}, *Error) {
	var p ApproveCollectionParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.ApproveCollection(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleRevokeTokenApprovals(req *Request) (interface{}, *Error) {
	var p RevokeTokenParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.RevokeTokenApprovals(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleRevokeCollectionApprovals(req *Request) (interface{}, *Error) {
	var p RevokeCollectionParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	rs, err := s.ledger.RevokeCollectionApprovals(p.Caller, p.Args)
	if err != nil {
		return nil, ledgerError(err)
	}
	return opResults(rs), nil
}

func (s *Server) handleGetBlocks(req *Request) (interface{}, *Error) {
	var p GetBlocksParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	blocks, err := s.ledger.GetBlocks(p.Start, p.Take)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	maps := make([]types.Map, len(blocks))
	for i, b := range blocks {
		m, ok := b.(types.Map)
		if !ok {
			return nil, &Error{Code: CodeInternalError, Message: "malformed block value"}
		}
		maps[i] = m
	}
	return BlocksResult{LogLength: s.ledger.BlockCount(), Blocks: maps}, nil
}

func (s *Server) handleGetTipCertificate(req *Request) (interface{}, *Error) {
	tip, ok := s.ledger.Tip()
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: "block log is empty"}
	}
	return tip, nil
}

func (s *Server) handleAsset(req *Request) (interface{}, *Error) {
	var p AssetParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	data, contentType, err := s.ledger.Asset(p.TokenID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return AssetResult{Content: data, ContentType: contentType}, nil
}

func (s *Server) handleMint(req *Request) (interface{}, *Error) {
	var p MintParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	block, err := s.ledger.Mint(p.Caller, p.MintArg)
	if err != nil {
		return nil, ledgerError(err)
	}
	s.logger.Info().Uint64("token_id", p.TokenID).Uint64("block", block).Msg("minted")
	return block, nil
}

func (s *Server) handleCreateToken(req *Request) (interface{}, *Error) {
	var p CreateTokenParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	id, err := s.ledger.CreateToken(p.Caller, p.CreateTokenArg)
	if err != nil {
		return nil, ledgerError(err)
	}
	return id, nil
}

func (s *Server) handleCreateTokenByChallenge(req *Request) (interface{}, *Error) {
	var p CreateTokenParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	id, err := s.ledger.CreateTokenByChallenge(p.Caller, p.CreateTokenArg)
	if err != nil {
		return nil, ledgerError(err)
	}
	return id, nil
}

func (s *Server) handleUpdateToken(req *Request) (interface{}, *Error) {
	var p UpdateTokenParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	if err := s.ledger.UpdateToken(p.Caller, p.UpdateTokenArg); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleUpdateCollection(req *Request) (interface{}, *Error) {
	var p UpdateCollectionParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	if err := s.ledger.UpdateCollection(p.Caller, p.UpdateCollectionArg); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleChallenge(req *Request) (interface{}, *Error) {
	var p ChallengeParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	token, err := s.ledger.Challenge(p.Caller, p.ChallengeArg)
	if err != nil {
		return nil, ledgerError(err)
	}
	return token, nil
}

func (s *Server) handleSetMinters(req *Request) (interface{}, *Error) {
	var p PrincipalsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	if err := s.ledger.SetMinters(p.Caller, p.Principals); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleSetManagers(req *Request) (interface{}, *Error) {
	var p PrincipalsParam
	if e := parseParams(req, &p); e != nil {
		return nil, e
	}
	if e := checkCaller(p.CallerParam); e != nil {
		return nil, e
	}
	if err := s.ledger.SetManagers(p.Caller, p.Principals); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}
