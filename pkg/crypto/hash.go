// Package crypto provides the hashing primitives used by the SFT ledger.
package crypto

import (
	"crypto/hmac"

	"github.com/ldclabs/ic-sft/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Hash computes a BLAKE3-256 hash of the input data. Used for internal
// keys such as transaction dedup identities, never on the wire.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// Sha3 computes the SHA3-256 hash of the input data. Asset blobs are
// content-addressed by this hash.
func Sha3(data []byte) types.Hash {
	return sha3.Sum256(data)
}

// Mac256 returns the HMAC-SHA3-256 of data under key.
func Mac256(key, data []byte) types.Hash {
	mac := hmac.New(sha3.New256, key)
	mac.Write(data)
	var out types.Hash
	copy(out[:], mac.Sum(nil))
	return out
}

// Mac256x2 returns the HMAC-SHA3-256 of the concatenation of two
// segments under key, without allocating the joined buffer.
func Mac256x2(key, a, b []byte) types.Hash {
	mac := hmac.New(sha3.New256, key)
	mac.Write(a)
	mac.Write(b)
	var out types.Hash
	copy(out[:], mac.Sum(nil))
	return out
}
