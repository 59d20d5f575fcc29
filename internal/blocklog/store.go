package blocklog

import (
	"encoding/binary"
	"fmt"

	"github.com/ldclabs/ic-sft/internal/storage"
	"github.com/ldclabs/ic-sft/pkg/types"
)

var keyCount = []byte("count")

// Store persists blocks in an append-only region. Block indices are
// contiguous starting at zero; the count cell lives in a separate region
// so that a prefix scan over block data never sees it.
type Store struct {
	index storage.DB
	data  storage.DB
	count uint64
}

// NewStore opens the block store over db and loads the cached length.
func NewStore(db storage.DB) (*Store, error) {
	s := &Store{
		index: storage.NewRegion(db, "blockindex"),
		data:  storage.NewRegion(db, "blockdata"),
	}
	raw, err := s.index.Get(keyCount)
	switch {
	case storage.IsNotFound(err):
		s.count = 0
	case err != nil:
		return nil, fmt.Errorf("load block count: %w", err)
	case len(raw) != 8:
		return nil, fmt.Errorf("block count cell has %d bytes, want 8", len(raw))
	default:
		s.count = binary.BigEndian.Uint64(raw)
	}
	return s, nil
}

// Len returns the number of blocks in the log.
func (s *Store) Len() uint64 {
	return s.count
}

func blockKey(idx uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, idx)
	return k
}

// Append writes the encoded block at the next index and returns that
// index. The count cell is updated after the block data so a torn write
// leaves an orphan record rather than a dangling index.
func (s *Store) Append(b Block) (uint64, error) {
	data, err := b.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode block: %w", err)
	}
	idx := s.count
	if err := s.data.Put(blockKey(idx), data); err != nil {
		return 0, fmt.Errorf("store block %d: %w", idx, err)
	}
	cnt := make([]byte, 8)
	binary.BigEndian.PutUint64(cnt, idx+1)
	if err := s.index.Put(keyCount, cnt); err != nil {
		return 0, fmt.Errorf("store block count: %w", err)
	}
	s.count = idx + 1
	return idx, nil
}

// Get loads and decodes the block at idx.
func (s *Store) Get(idx uint64) (Block, error) {
	if idx >= s.count {
		return Block{}, fmt.Errorf("block %d out of range, length %d", idx, s.count)
	}
	raw, err := s.data.Get(blockKey(idx))
	if err != nil {
		return Block{}, fmt.Errorf("load block %d: %w", idx, err)
	}
	b, err := DecodeBlock(raw)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: %w", idx, err)
	}
	return b, nil
}

// GetValue loads the block at idx as its canonical value representation,
// skipping the Transaction decode. Used by the query surface.
func (s *Store) GetValue(idx uint64) (types.Value, error) {
	if idx >= s.count {
		return nil, fmt.Errorf("block %d out of range, length %d", idx, s.count)
	}
	raw, err := s.data.Get(blockKey(idx))
	if err != nil {
		return nil, fmt.Errorf("load block %d: %w", idx, err)
	}
	v, err := types.DecodeValue(raw)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", idx, err)
	}
	return v, nil
}

// GetValues returns up to take block values starting at start. Requests
// past the end of the log return a short or empty slice, not an error.
func (s *Store) GetValues(start, take uint64) ([]types.Value, error) {
	if start >= s.count {
		return nil, nil
	}
	end := start + take
	if end > s.count || end < start {
		end = s.count
	}
	out := make([]types.Value, 0, end-start)
	for i := start; i < end; i++ {
		v, err := s.GetValue(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
