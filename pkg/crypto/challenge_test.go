package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestChallenge_SignVerify(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	payload := []byte("author-and-asset-hash")

	token, err := SignChallenge(key, payload, 1000)
	if err != nil {
		t.Fatalf("SignChallenge: %v", err)
	}

	if err := VerifyChallenge(key, payload, 500, token); err != nil {
		t.Fatalf("VerifyChallenge: %v", err)
	}

	// Signed exactly at the cutoff is still valid.
	if err := VerifyChallenge(key, payload, 1000, token); err != nil {
		t.Fatalf("VerifyChallenge at notBefore: %v", err)
	}
}

func TestChallenge_Expired(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	payload := []byte("payload")

	token, err := SignChallenge(key, payload, 1000)
	if err != nil {
		t.Fatalf("SignChallenge: %v", err)
	}

	err = VerifyChallenge(key, payload, 1001, token)
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("err = %v, want ErrChallengeExpired", err)
	}
}

func TestChallenge_WrongPayload(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	token, err := SignChallenge(key, []byte("payload"), 1000)
	if err != nil {
		t.Fatalf("SignChallenge: %v", err)
	}

	err = VerifyChallenge(key, []byte("other payload"), 0, token)
	if !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("err = %v, want ErrChallengeInvalid", err)
	}
}

func TestChallenge_WrongKey(t *testing.T) {
	token, err := SignChallenge([]byte("key-one"), []byte("payload"), 1000)
	if err != nil {
		t.Fatalf("SignChallenge: %v", err)
	}

	err = VerifyChallenge([]byte("key-two"), []byte("payload"), 0, token)
	if !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("err = %v, want ErrChallengeInvalid", err)
	}
}

func TestChallenge_Tampered(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	token, err := SignChallenge(key, []byte("payload"), 1000)
	if err != nil {
		t.Fatalf("SignChallenge: %v", err)
	}

	tampered := append([]byte(nil), token...)
	tampered[len(tampered)-1] ^= 0x01
	if err := VerifyChallenge(key, []byte("payload"), 0, tampered); err == nil {
		t.Fatal("tampered token accepted")
	}

	if err := VerifyChallenge(key, []byte("payload"), 0, []byte("not cbor")); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestHash_Primitives(t *testing.T) {
	a := Hash([]byte("data"))
	b := Hash([]byte("data"))
	if a != b {
		t.Error("blake3 hash is not deterministic")
	}
	if a == Hash([]byte("datb")) {
		t.Error("blake3 hash collision on different input")
	}

	s := Sha3([]byte("data"))
	if s == a {
		t.Error("sha3 and blake3 should differ")
	}

	m1 := Mac256([]byte("key"), []byte("ab"))
	m2 := Mac256x2([]byte("key"), []byte("a"), []byte("b"))
	if !bytes.Equal(m1.Bytes(), m2.Bytes()) {
		t.Error("Mac256x2 should equal Mac256 over the concatenation")
	}
}
