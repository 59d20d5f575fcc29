package ledger

import "sync"

// signingSecret holds the challenge-signing key. It is derived
// asynchronously after startup, operations needing it fail until then.
type signingSecret struct {
	mu    sync.RWMutex
	key   [32]byte
	ready bool
}

func (s *signingSecret) set(key [32]byte) {
	s.mu.Lock()
	s.key = key
	s.ready = true
	s.mu.Unlock()
}

func (s *signingSecret) get() ([32]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.ready
}
