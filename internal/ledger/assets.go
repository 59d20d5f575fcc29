package ledger

import (
	"fmt"

	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// assetStore keeps token asset blobs, content-addressed by SHA3-256.
type assetStore struct {
	db storage.DB
}

func newAssetStore(db storage.DB) *assetStore {
	return &assetStore{db: storage.NewRegion(db, "assets")}
}

// Put stores the asset and returns its content hash. Storing the same
// bytes twice is rejected, the hash doubles as a uniqueness constraint
// across token groups.
func (s *assetStore) Put(data []byte) (types.Hash, error) {
	h := types.Hash(crypto.Sha3(data))
	ok, err := s.db.Has(h.Bytes())
	if err != nil {
		return types.Hash{}, fmt.Errorf("check asset %s: %w", h, err)
	}
	if ok {
		return types.Hash{}, genericErrorf("asset %s already exists", h)
	}
	if err := s.db.Put(h.Bytes(), data); err != nil {
		return types.Hash{}, fmt.Errorf("store asset %s: %w", h, err)
	}
	return h, nil
}

// Get loads the asset with the given content hash.
func (s *assetStore) Get(h types.Hash) ([]byte, error) {
	data, err := s.db.Get(h.Bytes())
	if storage.IsNotFound(err) {
		return nil, genericErrorf("asset %s not found", h)
	}
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", h, err)
	}
	return data, nil
}
