package ledger

import (
	"github.com/ldclabs/ic-sft/internal/blocklog"
	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// challengeExpire is how long a signed token-creation challenge stays
// valid, in seconds.
const challengeExpire = 10 * 60

// Mint issues one sub-item of the token to every listed holder and
// returns the index of the last appended block.
func (l *Ledger) Mint(caller types.Principal, arg MintArg) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.collection.IsMinter(caller) {
		return 0, genericErrorf("caller is not a minter")
	}
	s := l.settings()
	if len(arg.Holders) == 0 {
		return 0, genericErrorf("no mint holders provided")
	}
	if len(arg.Holders) > int(s.MaxUpdateBatchSize) {
		return 0, genericErrorf("exceeds max update batch size %d", s.MaxUpdateBatchSize)
	}

	id := types.SftIdFromUint64(arg.TokenID)
	token, err := l.tokens.Get(id.TokenID)
	if err != nil {
		return 0, err
	}
	if token.SupplyCap > 0 && token.TotalSupply+uint32(len(arg.Holders)) >= token.SupplyCap {
		return 0, ErrSupplyCapReached
	}

	metaBytes, err := types.EncodeValue(types.Map(token.TokenMetadata()))
	if err != nil {
		return 0, err
	}
	metaHash := crypto.Sha3(metaBytes)
	meta := types.Map{"metadata_hash": types.Blob(metaHash[:])}

	now := l.nowFn()
	nowSec := now / SECOND

	hs, err := l.holders.Get(id.TokenID)
	if err != nil {
		return 0, err
	}

	var blockIdx uint64
	for _, holder := range arg.Holders {
		hs.Append(holder)
		sid := hs.Total()

		tx := blocklog.MintTransaction(now, types.SftId{TokenID: id.TokenID, SubID: sid}.Uint64(),
			types.Account{Owner: holder}, meta, nil, nil)
		idx, err := l.appendBlock(tx)
		if err != nil {
			return 0, &GenericBatchError{Message: err.Error()}
		}
		blockIdx = idx

		ht, err := l.holderTok.GetOrEmpty(holder)
		if err != nil {
			return 0, err
		}
		ht.Add(id.TokenID, sid)
		if err := l.holderTok.Set(holder, ht); err != nil {
			return 0, err
		}
	}

	if err := l.holders.Set(id.TokenID, hs); err != nil {
		return 0, err
	}
	token.TotalSupply += uint32(len(arg.Holders))
	token.UpdatedAt = nowSec
	if err := l.tokens.Set(token); err != nil {
		return 0, err
	}
	return blockIdx, nil
}

// CreateToken registers a new token group with its asset. Only managers
// may create tokens directly; authors use the challenge flow.
func (l *Ledger) CreateToken(caller types.Principal, arg CreateTokenArg) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.collection.IsManager(caller) {
		return 0, genericErrorf("caller is not a manager")
	}
	if l.collection.SupplyCap > 0 && l.collection.TotalSupply >= l.collection.SupplyCap {
		return 0, ErrSupplyCapReached
	}
	return l.createToken(arg, types.Hash(crypto.Sha3(arg.AssetContent)))
}

// CreateTokenByChallenge lets a token author create its own token group
// with a challenge previously signed for (author, asset hash).
func (l *Ledger) CreateTokenByChallenge(caller types.Principal, arg CreateTokenArg) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != arg.Author {
		return 0, genericErrorf("caller is not the author")
	}
	if len(arg.Challenge) == 0 {
		return 0, genericErrorf("challenge is required")
	}
	if l.collection.SupplyCap > 0 && l.collection.TotalSupply >= l.collection.SupplyCap {
		return 0, ErrSupplyCapReached
	}

	key, ready := l.secret.get()
	if !ready {
		return 0, ErrNotReady
	}
	hash := types.Hash(crypto.Sha3(arg.AssetContent))
	payload, err := encMode.Marshal(ChallengeArg{Author: caller, AssetHash: hash})
	if err != nil {
		return 0, err
	}
	nowSec := l.nowFn() / SECOND
	var notBefore uint64
	if nowSec > challengeExpire {
		notBefore = nowSec - challengeExpire
	}
	if err := crypto.VerifyChallenge(key[:], payload, notBefore, arg.Challenge); err != nil {
		return 0, genericErrorf("challenge verification failed: %v", err)
	}
	return l.createToken(arg, hash)
}

func (l *Ledger) createToken(arg CreateTokenArg, hash types.Hash) (uint32, error) {
	if _, err := l.assets.Put(arg.AssetContent); err != nil {
		return 0, err
	}

	nowSec := l.nowFn() / SECOND
	token := &Token{
		Name:             arg.Name,
		Description:      arg.Description,
		AssetName:        arg.AssetName,
		AssetContentType: arg.AssetContentType,
		AssetHash:        hash,
		Metadata:         arg.Metadata,
		Author:           arg.Author,
		SupplyCap:        arg.SupplyCap,
		CreatedAt:        nowSec,
		UpdatedAt:        nowSec,
	}
	id, err := l.tokens.Append(token)
	if err != nil {
		return 0, err
	}

	l.collection.TotalSupply++
	l.collection.UpdatedAt = nowSec
	if err := l.colStore.Save(l.collection); err != nil {
		return 0, err
	}
	l.logger.Info().Uint32("token", id).Str("name", token.Name).Msg("token created")
	return id, nil
}

// UpdateToken edits a token group before anything has been minted from
// it. Managers and the token author may edit; the supply cap can only
// shrink.
func (l *Ledger) UpdateToken(caller types.Principal, arg UpdateTokenArg) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := types.SftIdFromUint64(arg.ID)
	token, err := l.tokens.Get(id.TokenID)
	if err != nil {
		return err
	}
	if !l.collection.IsManager(caller) && token.Author != caller {
		return genericErrorf("caller is not a manager or author")
	}
	if token.TotalSupply > 0 {
		return genericErrorf("token has been minted, can not be updated")
	}
	if arg.SupplyCap != nil && token.SupplyCap > 0 && *arg.SupplyCap >= token.SupplyCap {
		return genericErrorf("supply cap can not be increased")
	}

	if arg.Name != nil {
		token.Name = *arg.Name
	}
	if arg.Description != nil {
		token.Description = *arg.Description
	}
	if arg.AssetName != nil {
		token.AssetName = *arg.AssetName
	}
	if arg.AssetContentType != nil {
		token.AssetContentType = *arg.AssetContentType
	}
	if len(arg.AssetContent) > 0 {
		// Resubmitting the current content is a no-op. Otherwise store
		// the replacement before dropping the old blob, so a rejected
		// replacement leaves the token's asset intact.
		if hash := types.Hash(crypto.Sha3(arg.AssetContent)); hash != token.AssetHash {
			if _, err := l.assets.Put(arg.AssetContent); err != nil {
				return err
			}
			if err := l.assets.db.Delete(token.AssetHash.Bytes()); err != nil {
				return err
			}
			token.AssetHash = hash
		}
	}
	if arg.Metadata != nil {
		token.Metadata = arg.Metadata
	}
	if arg.SupplyCap != nil {
		token.SupplyCap = *arg.SupplyCap
	}
	if arg.Author != nil {
		token.Author = *arg.Author
	}
	token.UpdatedAt = l.nowFn() / SECOND
	return l.tokens.Set(token)
}
