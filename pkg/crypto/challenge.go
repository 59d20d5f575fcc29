package crypto

import (
	"crypto/hmac"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Challenge verification errors.
var (
	ErrChallengeExpired = errors.New("challenge expired")
	ErrChallengeInvalid = errors.New("invalid challenge")
)

// challengeMacSize truncates the MAC to 16 bytes to keep tokens short.
const challengeMacSize = 16

// signedChallenge is the wire form of a challenge token: a CBOR array of
// the signing timestamp and the truncated MAC.
type signedChallenge struct {
	_   struct{} `cbor:",toarray"`
	Ts  uint64
	Mac []byte
}

// SignChallenge signs opaque payload bytes at timestamp ts with key.
// The MAC covers payload || cbor(ts), so a token is bound to both the
// payload and the moment it was issued:
//
//	token = cbor([ts, HMAC-SHA3-256(key, payload || cbor(ts))[:16]])
//
// Callers are expected to pass the canonical CBOR encoding of whatever
// they want signed, making the MAC input deterministic.
func SignChallenge(key, payload []byte, ts uint64) ([]byte, error) {
	tsBytes, err := cbor.Marshal(ts)
	if err != nil {
		return nil, fmt.Errorf("encode timestamp: %w", err)
	}
	mac := Mac256x2(key, payload, tsBytes)
	token, err := cbor.Marshal(signedChallenge{Ts: ts, Mac: mac[:challengeMacSize]})
	if err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}
	return token, nil
}

// VerifyChallenge checks a token produced by SignChallenge against the
// same key and payload. Tokens signed before notBefore are rejected as
// expired.
func VerifyChallenge(key, payload []byte, notBefore uint64, token []byte) error {
	var sc signedChallenge
	if err := cbor.Unmarshal(token, &sc); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeInvalid, err)
	}
	if sc.Ts < notBefore {
		return ErrChallengeExpired
	}
	tsBytes, err := cbor.Marshal(sc.Ts)
	if err != nil {
		return fmt.Errorf("encode timestamp: %w", err)
	}
	mac := Mac256x2(key, payload, tsBytes)
	if !hmac.Equal(mac[:challengeMacSize], sc.Mac) {
		return ErrChallengeInvalid
	}
	return nil
}
