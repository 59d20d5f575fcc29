package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldclabs/ic-sft/internal/blocklog"
	"github.com/ldclabs/ic-sft/internal/log"
	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// InitArgs describes a collection to create when the ledger database is
// empty. It is ignored once a collection exists.
type InitArgs struct {
	Symbol       string
	Name         string
	Description  string
	Logo         string
	AssetsOrigin string
	SupplyCap    uint64
	Minters      []types.Principal
	Managers     []types.Principal
	Settings     *Settings
}

// Ledger is the token state machine. One mutex serializes every
// operation so that each call observes and produces a consistent state,
// matching the single-threaded execution model the block semantics
// assume.
type Ledger struct {
	mu sync.Mutex

	collection *Collection
	colStore   *collectionStore
	tokens     *tokenStore
	holders    *holderStore
	holderTok  *holderTokenStore
	approvals  *approvalStore
	assets     *assetStore
	blocks     *blocklog.Store

	lastBlockHash *types.Hash
	controllers   []types.Principal
	dedup         *dedupIndex
	secret        signingSecret

	nowFn  func() uint64 // nanoseconds
	logger zerolog.Logger
}

// Open loads the ledger state from db, creating the collection from
// init when none exists yet. The chain head is recovered by rehashing
// the last stored block, so a stale head can never survive a restart.
func Open(db storage.DB, init InitArgs, controllers []types.Principal) (*Ledger, error) {
	l := &Ledger{
		colStore:    newCollectionStore(db),
		holders:     newHolderStore(db),
		holderTok:   newHolderTokenStore(db),
		approvals:   newApprovalStore(db),
		assets:      newAssetStore(db),
		controllers: sortedPrincipals(controllers),
		dedup:       newDedupIndex(),
		nowFn:       func() uint64 { return uint64(time.Now().UnixNano()) },
		logger:      log.Ledger,
	}

	var err error
	if l.tokens, err = newTokenStore(db); err != nil {
		return nil, err
	}
	if l.blocks, err = blocklog.NewStore(db); err != nil {
		return nil, err
	}

	c, ok, err := l.colStore.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		if init.Symbol == "" || init.Name == "" {
			return nil, fmt.Errorf("collection does not exist and init args are incomplete")
		}
		c = newCollection(init, l.nowFn()/SECOND)
		if err := l.colStore.Save(c); err != nil {
			return nil, err
		}
		l.logger.Info().Str("symbol", c.Symbol).Str("name", c.Name).
			Msg("collection created")
	}
	l.collection = c

	if n := l.blocks.Len(); n > 0 {
		last, err := l.blocks.Get(n - 1)
		if err != nil {
			return nil, fmt.Errorf("recover chain head: %w", err)
		}
		h := last.Hash()
		l.lastBlockHash = &h
	}

	l.logger.Info().Uint64("blocks", l.blocks.Len()).
		Uint32("tokens", l.tokens.Len()).Msg("ledger opened")
	return l, nil
}

func newCollection(init InitArgs, nowSec uint64) *Collection {
	s := DefaultSettings()
	if init.Settings != nil {
		s = *init.Settings
	}
	return &Collection{
		Symbol:       init.Symbol,
		Name:         init.Name,
		Description:  init.Description,
		Logo:         init.Logo,
		AssetsOrigin: init.AssetsOrigin,
		SupplyCap:    init.SupplyCap,
		CreatedAt:    nowSec,
		UpdatedAt:    nowSec,
		Minters:      sortedPrincipals(init.Minters),
		Managers:     sortedPrincipals(init.Managers),
		Settings:     s,
	}
}

func sortedPrincipals(ps []types.Principal) []types.Principal {
	out := make([]types.Principal, len(ps))
	copy(out, ps)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Start launches background work: the signing secret is derived from
// the system randomness source off the caller's goroutine. Challenge
// issuance fails until the secret is ready.
func (l *Ledger) Start(ctx context.Context) {
	go func() {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			l.logger.Error().Err(err).Msg("failed to read random seed")
			return
		}
		l.secret.set(crypto.Mac256(seed, []byte("SIGNING_SECRET")))
		l.logger.Info().Msg("signing secret ready")
	}()
}

// Checkpoint flushes the collection record. The other regions are
// written through on every mutation.
func (l *Ledger) Checkpoint() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.colStore.Save(l.collection)
}

// IsController reports whether p is one of the ledger's controllers.
func (l *Ledger) IsController(p types.Principal) bool {
	return containsPrincipal(l.controllers, p)
}

// appendBlock chains tx onto the log. The head hash moves only when the
// append succeeded.
func (l *Ledger) appendBlock(tx blocklog.Transaction) (uint64, error) {
	b := blocklog.Block{PHash: l.lastBlockHash, Tx: tx}
	idx, err := l.blocks.Append(b)
	if err != nil {
		return 0, err
	}
	h := b.Hash()
	l.lastBlockHash = &h
	return idx, nil
}

// settings returns a copy of the current settings, the per-call
// snapshot every batch operation works from.
func (l *Ledger) settings() Settings {
	return l.collection.Settings
}

func (l *Ledger) checkUpdateBatch(n int, s *Settings) error {
	if n == 0 {
		return genericErrorf("no args provided")
	}
	if n > int(s.MaxUpdateBatchSize) {
		return genericErrorf("exceeds max update batch size %d", s.MaxUpdateBatchSize)
	}
	return nil
}

func (l *Ledger) checkQueryBatch(n int) error {
	if n > int(l.collection.Settings.MaxQueryBatchSize) {
		return genericErrorf("exceeds max query batch size %d", l.collection.Settings.MaxQueryBatchSize)
	}
	return nil
}
