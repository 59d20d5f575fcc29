package ledger

import (
	"github.com/ldclabs/ic-sft/pkg/types"
)

// Standard names a token standard the ledger implements.
type Standard struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SupportedStandards lists the standards this ledger implements.
func SupportedStandards() []Standard {
	return []Standard{
		{Name: "ICRC-7", URL: "https://github.com/dfinity/ICRC/tree/main/ICRCs/ICRC-7"},
		{Name: "ICRC-37", URL: "https://github.com/dfinity/ICRC/tree/main/ICRCs/ICRC-37"},
	}
}

// BlockType pairs a block type tag with the URL of its defining
// standard.
type BlockType struct {
	BlockType string `json:"block_type"`
	URL       string `json:"url"`
}

// SupportedBlockTypes lists the block type tags the log may contain.
func SupportedBlockTypes() []BlockType {
	icrc7 := "https://github.com/dfinity/ICRC/tree/main/ICRCs/ICRC-7"
	icrc37 := "https://github.com/dfinity/ICRC/tree/main/ICRCs/ICRC-37"
	return []BlockType{
		{BlockType: "7mint", URL: icrc7},
		{BlockType: "7burn", URL: icrc7},
		{BlockType: "7xfer", URL: icrc7},
		{BlockType: "7update", URL: icrc7},
		{BlockType: "37appr", URL: icrc37},
		{BlockType: "37appr_coll", URL: icrc37},
		{BlockType: "37revoke", URL: icrc37},
		{BlockType: "37revoke_coll", URL: icrc37},
		{BlockType: "37xfer", URL: icrc37},
	}
}

// Collection returns a copy of the collection record.
func (l *Ledger) Collection() Collection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.collection
}

// CollectionMetadata returns the collection metadata in the icrc7 key
// scheme.
func (l *Ledger) CollectionMetadata() map[string]types.Value {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collection.Metadata()
}

// Settings returns a copy of the current settings.
func (l *Ledger) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collection.Settings
}

// TotalSupply returns the number of token groups in the collection.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collection.TotalSupply
}

// TokenMetadata returns the metadata of each requested token, nil for
// unknown ids.
func (l *Ledger) TokenMetadata(ids []uint64) ([]map[string]types.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	if err := l.checkQueryBatch(len(ids)); err != nil {
		return nil, err
	}
	res := make([]map[string]types.Value, len(ids))
	for i, id := range ids {
		sid := types.SftIdFromUint64(id)
		token, err := l.tokens.Get(sid.TokenID)
		if err == ErrNonExistingTokenID {
			continue
		}
		if err != nil {
			return nil, err
		}
		res[i] = token.TokenMetadata()
	}
	return res, nil
}

// OwnerOf returns the owner of each requested token, nil for unknown or
// unminted ids.
func (l *Ledger) OwnerOf(ids []uint64) ([]*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	if err := l.checkQueryBatch(len(ids)); err != nil {
		return nil, err
	}
	res := make([]*types.Account, len(ids))
	for i, id := range ids {
		sid := types.SftIdFromUint64(id)
		hs, err := l.holders.Get(sid.TokenID)
		if err != nil {
			return nil, err
		}
		if owner, ok := hs.Get(sid.SubID); ok {
			res[i] = &types.Account{Owner: owner}
		}
	}
	return res, nil
}

// BalanceOf returns the number of tokens each account holds.
func (l *Ledger) BalanceOf(accounts []types.Account) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(accounts) == 0 {
		return nil, nil
	}
	if err := l.checkQueryBatch(len(accounts)); err != nil {
		return nil, err
	}
	res := make([]uint64, len(accounts))
	for i := range accounts {
		ht, found, err := l.holderTok.Get(accounts[i].Owner)
		if err != nil {
			return nil, err
		}
		if found {
			res[i] = ht.BalanceOf()
		}
	}
	return res, nil
}

// Tokens lists token group ids, ascending, strictly after the prev
// cursor.
func (l *Ledger) Tokens(prev *uint64, take *uint64) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.collection.Settings.TakeValue(take)
	maxTid := l.tokens.Len()
	start := uint32(1)
	if prev != nil {
		start = types.SftIdFromUint64(*prev).TokenID + 1
	}
	res := make([]uint64, 0, limit)
	for tid := start; tid <= maxTid && tid > 0; tid++ {
		res = append(res, types.SftId{TokenID: tid}.Uint64())
		if len(res) >= int(limit) {
			break
		}
	}
	return res
}

// TokensOf lists the token ids held by account, ascending, strictly
// after the prev cursor.
func (l *Ledger) TokensOf(account types.Account, prev *uint64, take *uint64) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.collection.Settings.TakeValue(take)
	ht, found, err := l.holderTok.Get(account.Owner)
	if err != nil || !found {
		return nil, err
	}

	start := types.MinSftId
	if prev != nil {
		start = types.SftIdFromUint64(*prev).Next()
	}
	res := make([]uint64, 0, limit)
	for _, tid := range ht.TokenIDs() {
		if tid < start.TokenID {
			continue
		}
		minSid := uint32(1)
		if tid == start.TokenID {
			minSid = start.SubID
		}
		for _, sid := range ht.Sids(tid) {
			if sid < minSid {
				continue
			}
			res = append(res, types.SftId{TokenID: tid, SubID: sid}.Uint64())
			if len(res) >= int(limit) {
				return res, nil
			}
		}
	}
	return res, nil
}

// TokensIn lists the minted sub-item ids of one token group, ascending,
// strictly after the prev cursor.
func (l *Ledger) TokensIn(tokenID uint64, prev *uint64, take *uint64) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.collection.Settings.TakeValue(take)
	id := types.SftIdFromUint64(tokenID)
	hs, err := l.holders.Get(id.TokenID)
	if err != nil {
		return nil, err
	}

	maxSid := hs.Total()
	start := uint32(1)
	if prev != nil {
		start = types.SftIdFromUint64(*prev).SubID + 1
	}
	res := make([]uint64, 0, limit)
	for sid := start; sid <= maxSid && sid > 0; sid++ {
		res = append(res, types.SftId{TokenID: id.TokenID, SubID: sid}.Uint64())
		if len(res) >= int(limit) {
			break
		}
	}
	return res, nil
}

// TokenApproval is one token-level approval in query responses.
type TokenApproval struct {
	TokenID  uint64        `json:"token_id"`
	Spender  types.Account `json:"spender"`
	CreateAt uint64        `json:"created_at"` // seconds
	ExpireAt uint64        `json:"expires_at,omitempty"` // seconds, zero for none
}

// TokenApprovals lists the approvals on one token, ordered by spender,
// strictly after the prev spender.
func (l *Ledger) TokenApprovals(tokenID uint64, prev *types.Account, take *uint64) ([]TokenApproval, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.collection.Settings.TakeValue(take)
	id := types.SftIdFromUint64(tokenID)
	hs, err := l.holders.Get(id.TokenID)
	if err != nil {
		return nil, err
	}
	owner, ok := hs.Get(id.SubID)
	if !ok {
		return nil, nil
	}
	ht, found, err := l.holderTok.Get(owner)
	if err != nil || !found {
		return nil, err
	}

	res := make([]TokenApproval, 0, limit)
	for _, a := range ht.ApprovalsOf(id.TokenID, id.SubID) {
		if prev != nil && a.Spender <= prev.Owner {
			continue
		}
		res = append(res, TokenApproval{
			TokenID:  tokenID,
			Spender:  types.Account{Owner: a.Spender},
			CreateAt: a.CreatedAt,
			ExpireAt: a.ExpiresAt,
		})
		if len(res) >= int(limit) {
			break
		}
	}
	return res, nil
}

// CollectionApproval is one collection-level approval in query
// responses.
type CollectionApproval struct {
	Spender  types.Account `json:"spender"`
	CreateAt uint64        `json:"created_at"` // seconds
	ExpireAt uint64        `json:"expires_at,omitempty"` // seconds, zero for none
}

// CollectionApprovals lists the collection-level approvals granted by
// owner, ordered by spender, strictly after the prev spender.
func (l *Ledger) CollectionApprovals(owner types.Account, prev *types.Account, take *uint64) ([]CollectionApproval, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.collection.Settings.TakeValue(take)
	as, err := l.approvals.Get(owner.Owner)
	if err != nil {
		return nil, err
	}
	res := make([]CollectionApproval, 0, limit)
	for _, a := range as {
		if prev != nil && a.Spender <= prev.Owner {
			continue
		}
		res = append(res, CollectionApproval{
			Spender:  types.Account{Owner: a.Spender},
			CreateAt: a.CreatedAt,
			ExpireAt: a.ExpiresAt,
		})
		if len(res) >= int(limit) {
			break
		}
	}
	return res, nil
}

// BlockCount returns the length of the block log.
func (l *Ledger) BlockCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocks.Len()
}

// GetBlocks returns up to take blocks starting at start, in their
// canonical value representation.
func (l *Ledger) GetBlocks(start, take uint64) ([]types.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A zero take means unset, falling back to the default page size.
	tp := &take
	if take == 0 {
		tp = nil
	}
	limit := uint64(l.collection.Settings.TakeValue(tp))
	return l.blocks.GetValues(start, limit)
}

// TipCertificate describes the verified chain head: the index and hash
// of the last block.
type TipCertificate struct {
	LastBlockIndex uint64     `json:"last_block_index"`
	LastBlockHash  types.Hash `json:"last_block_hash"`
}

// Tip returns the chain head certificate, or false when the log is
// empty.
func (l *Ledger) Tip() (TipCertificate, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastBlockHash == nil {
		return TipCertificate{}, false
	}
	return TipCertificate{
		LastBlockIndex: l.blocks.Len() - 1,
		LastBlockHash:  *l.lastBlockHash,
	}, true
}

// Asset returns the stored asset content for a token group.
func (l *Ledger) Asset(tokenID uint64) ([]byte, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := types.SftIdFromUint64(tokenID)
	token, err := l.tokens.Get(id.TokenID)
	if err != nil {
		return nil, "", err
	}
	data, err := l.assets.Get(token.AssetHash)
	if err != nil {
		return nil, "", err
	}
	return data, token.AssetContentType, nil
}
