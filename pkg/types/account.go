package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Principal is an opaque caller identity, held as a raw byte string so it
// can be used directly as a map key and ordered lexicographically.
type Principal string

// Anonymous is the unauthenticated caller identity.
const Anonymous Principal = "\x04"

// PrincipalFromBytes builds a principal from raw identity bytes.
func PrincipalFromBytes(b []byte) Principal {
	return Principal(b)
}

// PrincipalFromText parses a hex-encoded principal.
func PrincipalFromText(s string) (Principal, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid principal hex: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("empty principal")
	}
	return Principal(b), nil
}

// Bytes returns the raw identity bytes.
func (p Principal) Bytes() []byte {
	return []byte(p)
}

// IsZero returns true for the empty (unset) principal.
func (p Principal) IsZero() bool {
	return len(p) == 0
}

// IsAnonymous returns true for the anonymous identity.
func (p Principal) IsAnonymous() bool {
	return p == Anonymous
}

// String returns the hex-encoded principal.
func (p Principal) String() string {
	return hex.EncodeToString([]byte(p))
}

// MarshalJSON encodes the principal as a hex string.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a hex string into a principal.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = ""
		return nil
	}
	v, err := PrincipalFromText(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalCBOR encodes the principal as a CBOR byte string. Principals
// hold raw identity bytes, so the text form would not be valid UTF-8.
func (p Principal) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]byte(p))
}

// UnmarshalCBOR decodes a CBOR byte string into a principal.
func (p *Principal) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	*p = Principal(b)
	return nil
}

// Account pairs a principal with an optional subaccount. The ledger does
// not support subaccounts on any operation; the field exists so callers
// that set one get a structured rejection instead of silent truncation.
type Account struct {
	Owner      Principal `json:"owner"`
	Subaccount []byte    `json:"subaccount,omitempty"`
}

// HasSubaccount returns true if a subaccount is set.
func (a Account) HasSubaccount() bool {
	return len(a.Subaccount) > 0
}

// String formats the account for log output.
func (a Account) String() string {
	if a.HasSubaccount() {
		return a.Owner.String() + "." + hex.EncodeToString(a.Subaccount)
	}
	return a.Owner.String()
}
