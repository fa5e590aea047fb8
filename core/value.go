package core

// Package-level primitives shared by the host-function dispatch layer and
// every host module's Invoke implementation. Host functions exchange guest
// values as a small tagged union rather than raw wasmer types, so that
// HostModule implementations never need to import wasmer-go directly.

// ValueKind identifies the wire shape of a Value.
type ValueKind int

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
)

// Value is a single argument or return value crossing the host/guest
// boundary. Only one of the numeric fields is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	i64  int64
	f64  float64
}

func ValueI32(v int32) Value { return Value{Kind: KindI32, i64: int64(v)} }
func ValueI64(v int64) Value { return Value{Kind: KindI64, i64: v} }
func ValueF32(v float32) Value { return Value{Kind: KindF32, f64: float64(v)} }
func ValueF64(v float64) Value { return Value{Kind: KindF64, f64: v} }

// I32 interprets the value as a 32-bit integer, which is how GuestPtr and
// most ABI-level integers travel across the boundary.
func (v Value) I32() int32 { return int32(v.i64) }

// I64 interprets the value as a 64-bit integer.
func (v Value) I64() int64 { return v.i64 }

// F32 interprets the value as a 32-bit float.
func (v Value) F32() float32 { return float32(v.f64) }

// F64 interprets the value as a 64-bit float.
func (v Value) F64() float64 { return v.f64 }

// Ptr reads the value as a GuestPtr (an unsigned 32-bit offset).
func (v Value) Ptr() GuestPtr { return GuestPtr(uint32(v.i64)) }
