package core

import (
	"math/big"
	"testing"
)

func newTestMarshaller(t *testing.T) *Marshaller {
	t.Helper()
	mem := &fakeGuestMemory{buf: make([]byte, 0)}
	alloc, _ := newFakeAllocator(mem)
	return NewMarshaller(NewArenaHeap(mem, alloc, nil))
}

func TestMarshallerBytesRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	ptr, err := m.NewBytes([]byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	got, err := m.GetBytes(ptr)
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if len(got) != 5 || got[4] != 5 {
		t.Fatalf("got %v, want [1 2 3 4 5]", got)
	}
}

// TestMarshallerStringRoundTrip covers invariant 6 (spec §8): strings
// round-trip through the UTF-16LE wire layout, including characters outside
// the basic multilingual plane.
func TestMarshallerStringRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	for _, s := range []string{"", "hello", "日本語", "emoji \U0001F600"} {
		ptr, err := m.NewString(s)
		if err != nil {
			t.Fatalf("NewString(%q) failed: %v", s, err)
		}
		got, err := m.GetString(ptr)
		if err != nil {
			t.Fatalf("GetString failed: %v", err)
		}
		if got != s {
			t.Fatalf("got %q, want %q", got, s)
		}
	}
}

func TestMarshallerPtrArrayRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	ptrs := []GuestPtr{10, 20, 30}
	ptr, err := m.NewPtrArray(ptrs)
	if err != nil {
		t.Fatalf("NewPtrArray failed: %v", err)
	}
	got, err := m.GetPtrArray(ptr)
	if err != nil {
		t.Fatalf("GetPtrArray failed: %v", err)
	}
	if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("got %v, want %v", got, ptrs)
	}
}

func TestMarshallerUnionRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	ptr, err := m.NewUnion(Union{Tag: 3, Payload: 42})
	if err != nil {
		t.Fatalf("NewUnion failed: %v", err)
	}
	got, err := m.GetUnion(ptr)
	if err != nil {
		t.Fatalf("GetUnion failed: %v", err)
	}
	if got.Tag != 3 || got.Payload != 42 {
		t.Fatalf("got %+v, want {Tag:3 Payload:42}", got)
	}
}

func TestMarshallerOrderedMapRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	keyPtr, _ := m.NewString("key")
	valPtr, _ := m.NewString("value")

	ptr, err := m.NewOrderedMap([]GuestPtr{keyPtr}, []GuestPtr{valPtr})
	if err != nil {
		t.Fatalf("NewOrderedMap failed: %v", err)
	}
	keys, values, err := m.GetOrderedMap(ptr)
	if err != nil {
		t.Fatalf("GetOrderedMap failed: %v", err)
	}
	if len(keys) != 1 || len(values) != 1 {
		t.Fatalf("expected 1 key and 1 value, got %d keys, %d values", len(keys), len(values))
	}
	gotKey, _ := m.GetString(keys[0])
	gotVal, _ := m.GetString(values[0])
	if gotKey != "key" || gotVal != "value" {
		t.Fatalf("got %q=%q, want key=value", gotKey, gotVal)
	}
}

func TestMarshallerOrderedMapLengthMismatch(t *testing.T) {
	m := newTestMarshaller(t)
	_, err := m.NewOrderedMap([]GuestPtr{1, 2}, []GuestPtr{1})
	if err == nil {
		t.Fatalf("expected an error for mismatched key/value array lengths")
	}
}

func TestMarshallerBigIntRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	values := []string{"0", "1", "-1", "123456789012345678901234567890", "-999999999999999999999999999"}
	for _, s := range values {
		x, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatalf("test setup: could not parse %q", s)
		}
		ptr, err := m.NewBigInt(x)
		if err != nil {
			t.Fatalf("NewBigInt(%s) failed: %v", s, err)
		}
		got, err := m.GetBigInt(ptr)
		if err != nil {
			t.Fatalf("GetBigInt failed: %v", err)
		}
		if got.Cmp(x) != 0 {
			t.Fatalf("got %s, want %s", got.String(), x.String())
		}
	}
}

func TestMarshallerBigDecimalRoundTrip(t *testing.T) {
	m := newTestMarshaller(t)
	d := BigDecimal{Digits: big.NewInt(-123456), Exp: -3}
	ptr, err := m.NewBigDecimal(d)
	if err != nil {
		t.Fatalf("NewBigDecimal failed: %v", err)
	}
	got, err := m.GetBigDecimal(ptr)
	if err != nil {
		t.Fatalf("GetBigDecimal failed: %v", err)
	}
	if got.Digits.Cmp(d.Digits) != 0 || got.Exp != d.Exp {
		t.Fatalf("got {%s %d}, want {%s %d}", got.Digits, got.Exp, d.Digits, d.Exp)
	}
}
