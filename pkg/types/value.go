package types

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// Value is a self-describing structured value: the wire form for blocks
// and metadata. A Value is one of Nat, Int, Text, Blob, Array or Map.
type Value interface {
	valueNode()
}

// Nat is an unsigned integer value.
type Nat uint64

// Int is a signed integer value.
type Int int64

// Text is a UTF-8 string value.
type Text string

// Blob is a raw byte string value.
type Blob []byte

// Array is an ordered list of values.
type Array []Value

// Map is a string-keyed map of values. Key presence itself encodes
// optionality: absent fields are omitted, never written as null.
type Map map[string]Value

func (Nat) valueNode()   {}
func (Int) valueNode()   {}
func (Text) valueNode()  {}
func (Blob) valueNode()  {}
func (Array) valueNode() {}
func (Map) valueNode()   {}

// valueEncMode uses canonical CBOR so that encoding a Value is
// deterministic: map keys sorted, shortest integer forms.
var valueEncMode cbor.EncMode

func init() {
	var err error
	valueEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// EncodeValue serializes a value with the canonical CBOR codec.
func EncodeValue(v Value) ([]byte, error) {
	return valueEncMode.Marshal(toAny(v))
}

// DecodeValue parses canonical CBOR bytes back into a Value.
func DecodeValue(data []byte) (Value, error) {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return fromAny(raw)
}

func toAny(v Value) any {
	switch v := v.(type) {
	case Nat:
		return uint64(v)
	case Int:
		return int64(v)
	case Text:
		return string(v)
	case Blob:
		return []byte(v)
	case Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = toAny(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = toAny(e)
		}
		return out
	default:
		return nil
	}
}

func fromAny(raw any) (Value, error) {
	switch raw := raw.(type) {
	case uint64:
		return Nat(raw), nil
	case int64:
		if raw >= 0 {
			return Nat(raw), nil
		}
		return Int(raw), nil
	case string:
		return Text(raw), nil
	case []byte:
		return Blob(raw), nil
	case []any:
		out := make(Array, len(raw))
		for i, e := range raw {
			v, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[any]any:
		out := make(Map, len(raw))
		for k, e := range raw {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not text", k)
			}
			v, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(raw))
		for k, e := range raw {
			v, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// MarshalCBOR encodes the map with the canonical codec, so a Map can be
// embedded directly in persisted record structs.
func (m Map) MarshalCBOR() ([]byte, error) {
	return EncodeValue(m)
}

// UnmarshalCBOR decodes canonical CBOR bytes into the map.
func (m *Map) UnmarshalCBOR(data []byte) error {
	v, err := DecodeValue(data)
	if err != nil {
		return err
	}
	mv, ok := v.(Map)
	if !ok {
		return fmt.Errorf("value is %T, not a map", v)
	}
	*m = mv
	return nil
}

// HashValue computes the representation-independent hash of a value:
//
//	Nat:   sha256 of its unsigned LEB128 encoding
//	Int:   sha256 of its signed LEB128 encoding
//	Text:  sha256 of the UTF-8 bytes
//	Blob:  sha256 of the bytes
//	Array: sha256 of the concatenated element hashes
//	Map:   sha256 of the concatenated (sha256(key) || hash(value)) pairs,
//	       sorted lexicographically
//
// The result does not depend on the byte-level serialization, so it is a
// valid witness for any certification scheme built on the same rules.
func HashValue(v Value) Hash {
	switch v := v.(type) {
	case Nat:
		return sha256.Sum256(appendULEB128(nil, uint64(v)))
	case Int:
		return sha256.Sum256(appendSLEB128(nil, int64(v)))
	case Text:
		return sha256.Sum256([]byte(v))
	case Blob:
		return sha256.Sum256(v)
	case Array:
		buf := make([]byte, 0, len(v)*HashSize)
		for _, e := range v {
			h := HashValue(e)
			buf = append(buf, h[:]...)
		}
		return sha256.Sum256(buf)
	case Map:
		pairs := make([][]byte, 0, len(v))
		for k, e := range v {
			kh := sha256.Sum256([]byte(k))
			vh := HashValue(e)
			pair := make([]byte, 0, 2*HashSize)
			pair = append(pair, kh[:]...)
			pair = append(pair, vh[:]...)
			pairs = append(pairs, pair)
		}
		sort.Slice(pairs, func(i, j int) bool {
			return string(pairs[i]) < string(pairs[j])
		})
		buf := make([]byte, 0, len(pairs)*2*HashSize)
		for _, p := range pairs {
			buf = append(buf, p...)
		}
		return sha256.Sum256(buf)
	default:
		return Hash{}
	}
}

func appendULEB128(buf []byte, n uint64) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if n == 0 {
			return buf
		}
	}
}

func appendSLEB128(buf []byte, n int64) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// AccountValue encodes an account as a 1-or-2 element blob array:
// the owner bytes, followed by the subaccount bytes when present.
func AccountValue(a Account) Value {
	parts := Array{Blob(a.Owner.Bytes())}
	if a.HasSubaccount() {
		parts = append(parts, Blob(a.Subaccount))
	}
	return parts
}

// AccountFromValue decodes the 1-or-2 element blob array form.
func AccountFromValue(v Value) (Account, error) {
	arr, ok := v.(Array)
	if !ok || len(arr) == 0 || len(arr) > 2 {
		return Account{}, fmt.Errorf("account must be a 1-or-2 element array")
	}
	owner, ok := arr[0].(Blob)
	if !ok {
		return Account{}, fmt.Errorf("account owner must be a blob")
	}
	acc := Account{Owner: PrincipalFromBytes(owner)}
	if len(arr) == 2 {
		sub, ok := arr[1].(Blob)
		if !ok {
			return Account{}, fmt.Errorf("account subaccount must be a blob")
		}
		acc.Subaccount = append([]byte(nil), sub...)
	}
	return acc, nil
}
