package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// JSON rendering of values uses a tagged form mirroring the value
// variants: {"Nat": 1}, {"Int": -1}, {"Text": "x"}, {"Blob": "<hex>"},
// {"Array": [...]}, {"Map": {...}}. The tag removes the ambiguity
// between naturals, integers and blobs that plain JSON numbers and
// strings would introduce.

// MarshalJSON implements json.Marshaler.
func (v Nat) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]uint64{"Nat": uint64(v)})
}

// MarshalJSON implements json.Marshaler.
func (v Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int64{"Int": int64(v)})
}

// MarshalJSON implements json.Marshaler.
func (v Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Text": string(v)})
}

// MarshalJSON implements json.Marshaler.
func (v Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Blob": hex.EncodeToString(v)})
}

// MarshalJSON implements json.Marshaler.
func (v Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Value{"Array": v})
}

// MarshalJSON implements json.Marshaler.
func (m Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]Value{"Map": m})
}

// ValueFromJSON parses the tagged JSON form back into a value.
func ValueFromJSON(data []byte) (Value, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("value must have exactly one variant tag, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "Nat":
			var n uint64
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, fmt.Errorf("decode Nat: %w", err)
			}
			return Nat(n), nil
		case "Int":
			var n int64
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, fmt.Errorf("decode Int: %w", err)
			}
			return Int(n), nil
		case "Text":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("decode Text: %w", err)
			}
			return Text(s), nil
		case "Blob":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("decode Blob: %w", err)
			}
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("decode Blob: %w", err)
			}
			return Blob(b), nil
		case "Array":
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err != nil {
				return nil, fmt.Errorf("decode Array: %w", err)
			}
			arr := make(Array, len(elems))
			for i, e := range elems {
				v, err := ValueFromJSON(e)
				if err != nil {
					return nil, err
				}
				arr[i] = v
			}
			return arr, nil
		case "Map":
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, fmt.Errorf("decode Map: %w", err)
			}
			m := make(Map, len(fields))
			for k, f := range fields {
				v, err := ValueFromJSON(f)
				if err != nil {
					return nil, err
				}
				m[k] = v
			}
			return m, nil
		}
		return nil, fmt.Errorf("unknown value variant %q", tag)
	}
	return nil, fmt.Errorf("empty value")
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := ValueFromJSON(data)
	if err != nil {
		return err
	}
	mv, ok := v.(Map)
	if !ok {
		return fmt.Errorf("value is not a map")
	}
	*m = mv
	return nil
}
