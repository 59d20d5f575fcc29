package types

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestEncodeValue_Deterministic(t *testing.T) {
	v := Map{
		"b":   Nat(2),
		"a":   Text("x"),
		"sub": Map{"z": Blob{1, 2}, "y": Array{Nat(1), Int(-1)}},
	}

	first, err := EncodeValue(v)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := EncodeValue(v)
		if err != nil {
			t.Fatalf("EncodeValue: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding is not deterministic")
		}
	}
}

func TestValue_RoundTrip(t *testing.T) {
	v := Map{
		"nat":  Nat(42),
		"int":  Int(-42),
		"text": Text("hello"),
		"blob": Blob{0xde, 0xad},
		"arr":  Array{Nat(1), Text("two")},
		"map":  Map{"nested": Nat(7)},
	}

	data, err := EncodeValue(v)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	got, err := DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %#v, want %#v", got, v)
	}
}

func TestHashValue_IndependentOfInsertionOrder(t *testing.T) {
	a := Map{"x": Nat(1), "y": Text("z")}
	b := Map{}
	b["y"] = Text("z")
	b["x"] = Nat(1)

	if HashValue(a) != HashValue(b) {
		t.Error("map hash depends on insertion order")
	}
}

func TestHashValue_Distinguishes(t *testing.T) {
	pairs := [][2]Value{
		{Nat(1), Nat(2)},
		{Text("a"), Blob("a")},
		{Map{"k": Nat(1)}, Map{"k": Nat(2)}},
		{Array{Nat(1)}, Array{Nat(1), Nat(1)}},
		{Int(-1), Nat(1)},
	}
	for _, p := range pairs {
		if HashValue(p[0]) == HashValue(p[1]) {
			t.Errorf("hash collision between %#v and %#v", p[0], p[1])
		}
	}
}

func TestAccountValue_Shapes(t *testing.T) {
	owner := PrincipalFromBytes([]byte{1, 2, 3})

	v := AccountValue(Account{Owner: owner})
	arr, ok := v.(Array)
	if !ok || len(arr) != 1 {
		t.Fatalf("plain account = %#v, want 1-element array", v)
	}

	v = AccountValue(Account{Owner: owner, Subaccount: []byte{9}})
	arr, ok = v.(Array)
	if !ok || len(arr) != 2 {
		t.Fatalf("subaccount form = %#v, want 2-element array", v)
	}

	acc, err := AccountFromValue(v)
	if err != nil {
		t.Fatalf("AccountFromValue: %v", err)
	}
	if acc.Owner != owner || !bytes.Equal(acc.Subaccount, []byte{9}) {
		t.Errorf("decoded account = %+v", acc)
	}
}

func TestAccountFromValue_Malformed(t *testing.T) {
	bad := []Value{
		Nat(1),
		Array{},
		Array{Text("not a blob")},
		Array{Blob{1}, Blob{2}, Blob{3}},
		Array{Blob{1}, Text("not a blob")},
	}
	for _, v := range bad {
		if _, err := AccountFromValue(v); err == nil {
			t.Errorf("AccountFromValue(%#v) accepted malformed input", v)
		}
	}
}

func TestValueJSON_RoundTrip(t *testing.T) {
	v := Map{
		"nat":  Nat(7),
		"text": Text("hi"),
		"blob": Blob{0xab, 0xcd},
		"arr":  Array{Int(-3), Map{"k": Nat(1)}},
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Map
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %#v, want %#v", got, v)
	}
}

func TestValueJSON_TaggedForm(t *testing.T) {
	data, err := json.Marshal(Map{"n": Nat(5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Map":{"n":{"Nat":5}}}`
	if string(data) != want {
		t.Errorf("tagged form = %s, want %s", data, want)
	}
}

func TestValueJSON_RoundTrip2(t *testing.T) {
	v := Map{
		"nat":  Nat(42),
		"int":  Int(-42),
		"text": Text("hello"),
		"blob": Blob{0xde, 0xad},
		"arr":  Array{Nat(1), Text("two")},
		"map":  Map{"nested": Nat(7)},
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Map
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %#v, want %#v", got, v)
	}

	if _, err := ValueFromJSON([]byte(`{"Nat": 1, "Int": 2}`)); err == nil {
		t.Error("two variant tags should fail")
	}
	if _, err := ValueFromJSON([]byte(`{"Bogus": 1}`)); err == nil {
		t.Error("unknown variant tag should fail")
	}
}

func TestPrincipalJSON_Hex(t *testing.T) {
	p := PrincipalFromBytes([]byte{0xab, 0x01})
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"ab01"` {
		t.Errorf("principal json = %s", data)
	}

	var got Principal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != p {
		t.Errorf("round trip = %q, want %q", got, p)
	}
}
