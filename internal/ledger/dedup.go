package ledger

import (
	"fmt"

	"github.com/ldclabs/ic-sft/pkg/crypto"
	"github.com/ldclabs/ic-sft/pkg/types"
)

// dedupIndex remembers recently applied transactions so a retried call
// inside the dedup window reports the original block instead of
// applying twice. Only transactions carrying created_at_time take part.
type dedupIndex struct {
	entries map[types.Hash]dedupEntry
}

type dedupEntry struct {
	block uint64
	seen  uint64 // seconds
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{entries: make(map[types.Hash]dedupEntry)}
}

// key derives the dedup identity of (caller, op, arg) from its canonical
// encoding.
func (d *dedupIndex) key(caller types.Principal, op string, arg any) (types.Hash, error) {
	raw, err := encMode.Marshal([]any{caller, op, arg})
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode dedup key: %w", err)
	}
	return types.Hash(crypto.Hash(raw)), nil
}

// check returns the earlier block index when the key was already seen.
func (d *dedupIndex) check(k types.Hash) (uint64, bool) {
	e, ok := d.entries[k]
	return e.block, ok
}

func (d *dedupIndex) put(k types.Hash, block, nowSec uint64) {
	d.entries[k] = dedupEntry{block: block, seen: nowSec}
}

// prune drops entries older than the dedup window.
func (d *dedupIndex) prune(nowSec, window uint64) {
	if nowSec < window {
		return
	}
	oldest := nowSec - window
	for k, e := range d.entries {
		if e.seen < oldest {
			delete(d.entries, k)
		}
	}
}

// checkDedup resolves the dedup identity of the call and reports a
// DuplicateError when the transaction was already applied. It returns
// the key to record on success, or a zero hash when created is nil and
// dedup does not apply.
func (l *Ledger) checkDedup(caller types.Principal, op string, arg any, created *uint64, nowSec uint64, s *Settings) (types.Hash, error) {
	if created == nil {
		return types.Hash{}, nil
	}
	l.dedup.prune(nowSec, s.TxWindow+s.PermittedDrift)
	k, err := l.dedup.key(caller, op, arg)
	if err != nil {
		return types.Hash{}, err
	}
	if idx, ok := l.dedup.check(k); ok {
		return types.Hash{}, &DuplicateError{DuplicateOf: idx}
	}
	return k, nil
}

func (l *Ledger) recordDedup(k types.Hash, block, nowSec uint64) {
	if !k.IsZero() {
		l.dedup.put(k, block, nowSec)
	}
}
