package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"unicode/utf16"
)

// ABI Marshaller (spec §4.2). This is the single place the in-sandbox wire
// layout for every supported host type is defined; a version-branched
// record layout (spec §4.6) is built by composing these primitives
// differently per ExecutionContext.AbiVersion rather than by branching
// inside them.
//
// All writes go through the ArenaHeap so the guest allocator retains
// nominal ownership of every byte the host places in its memory.
type Marshaller struct {
	arena *ArenaHeap
}

func NewMarshaller(arena *ArenaHeap) *Marshaller {
	return &Marshaller{arena: arena}
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// -- byte arrays -------------------------------------------------------

// NewBytes writes a length-prefixed byte array: [u32 length][bytes].
func (m *Marshaller) NewBytes(b []byte) (GuestPtr, error) {
	buf := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(b)))
	copy(buf[4:], b)
	return m.arena.RawNew(buf)
}

// GetBytes reads a length-prefixed byte array back out.
func (m *Marshaller) GetBytes(ptr GuestPtr) ([]byte, error) {
	header, err := m.arena.Get(ptr, 4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header)
	body, err := m.arena.Get(ptr, 4+n)
	if err != nil {
		return nil, err
	}
	return body[4:], nil
}

// -- strings -------------------------------------------------------

// NewString writes a UTF-16LE string with a code-unit length prefix:
// [u32 length_in_units][utf16le bytes].
func (m *Marshaller) NewString(s string) (GuestPtr, error) {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 4+2*len(units))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[4+2*i:], u)
	}
	return m.arena.RawNew(buf)
}

// GetString reads a UTF-16LE string back into a Go string.
func (m *Marshaller) GetString(ptr GuestPtr) (string, error) {
	header, err := m.arena.Get(ptr, 4)
	if err != nil {
		return "", err
	}
	units := binary.LittleEndian.Uint32(header)
	// A corrupt or adversarial length prefix must not be allowed to
	// overflow this uint32 arithmetic: that would wrap to a small body
	// length, pass arena.Get's own bounds check, and then panic on the
	// out-of-range body[4+2*i:] slice below instead of surfacing as a
	// SandboxMemoryAccess error.
	bodyLen := uint64(4) + 2*uint64(units)
	if bodyLen > math.MaxUint32 {
		return "", &SandboxMemoryAccess{Detail: fmt.Sprintf("string length prefix %d overflows guest memory addressing", units)}
	}
	body, err := m.arena.Get(ptr, uint32(bodyLen))
	if err != nil {
		return "", err
	}
	codeUnits := make([]uint16, units)
	for i := range codeUnits {
		codeUnits[i] = binary.LittleEndian.Uint16(body[4+2*i:])
	}
	return string(utf16.Decode(codeUnits)), nil
}

// -- typed arrays of pointers -------------------------------------------------------

// NewPtrArray writes a length-prefixed array of guest pointers:
// [u32 length][length * u32 ptr]. Used for arrays of strings/records and
// for the parallel key/value arrays backing an ordered map.
func (m *Marshaller) NewPtrArray(ptrs []GuestPtr) (GuestPtr, error) {
	buf := make([]byte, 4+4*len(ptrs))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(ptrs)))
	for i, p := range ptrs {
		binary.LittleEndian.PutUint32(buf[4+4*i:], uint32(p))
	}
	return m.arena.RawNew(buf)
}

// GetPtrArray reads a length-prefixed array of guest pointers back out.
func (m *Marshaller) GetPtrArray(ptr GuestPtr) ([]GuestPtr, error) {
	header, err := m.arena.Get(ptr, 4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header)
	body, err := m.arena.Get(ptr, 4+4*n)
	if err != nil {
		return nil, err
	}
	out := make([]GuestPtr, n)
	for i := range out {
		out[i] = GuestPtr(binary.LittleEndian.Uint32(body[4+4*i:]))
	}
	return out, nil
}

// -- tagged unions -------------------------------------------------------

// Union is a tagged value: Tag selects the active variant, Payload points
// at the variant's own representation (already written to the arena).
type Union struct {
	Tag     uint32
	Payload GuestPtr
}

// NewUnion writes [u32 tag][u32 payload ptr].
func (m *Marshaller) NewUnion(u Union) (GuestPtr, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], u.Tag)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(u.Payload))
	return m.arena.RawNew(buf)
}

// GetUnion reads a tagged union header back out.
func (m *Marshaller) GetUnion(ptr GuestPtr) (Union, error) {
	b, err := m.arena.Get(ptr, 8)
	if err != nil {
		return Union{}, err
	}
	return Union{
		Tag:     binary.LittleEndian.Uint32(b[0:4]),
		Payload: GuestPtr(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// -- ordered maps as parallel arrays -------------------------------------------------------

// NewOrderedMap writes a map as two parallel pointer arrays sharing an
// index, per spec §4.2: [u32 keysArrayPtr][u32 valuesArrayPtr].
func (m *Marshaller) NewOrderedMap(keys, values []GuestPtr) (GuestPtr, error) {
	if len(keys) != len(values) {
		return 0, &SandboxMemoryAccess{Detail: "ordered map keys/values length mismatch"}
	}
	keysPtr, err := m.NewPtrArray(keys)
	if err != nil {
		return 0, err
	}
	valuesPtr, err := m.NewPtrArray(values)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(keysPtr))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(valuesPtr))
	return m.arena.RawNew(buf)
}

// GetOrderedMap reads the two parallel arrays back out.
func (m *Marshaller) GetOrderedMap(ptr GuestPtr) (keys, values []GuestPtr, err error) {
	b, err := m.arena.Get(ptr, 8)
	if err != nil {
		return nil, nil, err
	}
	keysPtr := GuestPtr(binary.LittleEndian.Uint32(b[0:4]))
	valuesPtr := GuestPtr(binary.LittleEndian.Uint32(b[4:8]))
	keys, err = m.GetPtrArray(keysPtr)
	if err != nil {
		return nil, nil, err
	}
	values, err = m.GetPtrArray(valuesPtr)
	if err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// -- arbitrary precision numbers -------------------------------------------------------

// NewBigInt writes an arbitrary-precision integer as
// [u32 magnitude_length][u8 sign (0 = non-negative, 1 = negative)][magnitude, little-endian].
func (m *Marshaller) NewBigInt(x *big.Int) (GuestPtr, error) {
	mag := reverseBytes(x.Bytes()) // big.Int.Bytes() is big-endian magnitude
	buf := make([]byte, 5+len(mag))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(mag)))
	if x.Sign() < 0 {
		buf[4] = 1
	}
	copy(buf[5:], mag)
	return m.arena.RawNew(buf)
}

// GetBigInt reads an arbitrary-precision integer back out.
func (m *Marshaller) GetBigInt(ptr GuestPtr) (*big.Int, error) {
	header, err := m.arena.Get(ptr, 5)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:4])
	negative := header[4] == 1
	body, err := m.arena.Get(ptr, 5+n)
	if err != nil {
		return nil, err
	}
	mag := reverseBytes(body[5:])
	x := new(big.Int).SetBytes(mag)
	if negative {
		x.Neg(x)
	}
	return x, nil
}

// BigDecimal is an arbitrary-precision decimal represented as
// digits * 10^exp, matching the AssemblyScript BigDecimal convention of a
// BigInt mantissa plus a signed decimal exponent.
type BigDecimal struct {
	Digits *big.Int
	Exp    int32
}

// NewBigDecimal writes [BigInt layout for Digits][i32 exp].
func (m *Marshaller) NewBigDecimal(d BigDecimal) (GuestPtr, error) {
	mag := reverseBytes(d.Digits.Bytes())
	buf := make([]byte, 5+len(mag)+4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(mag)))
	if d.Digits.Sign() < 0 {
		buf[4] = 1
	}
	copy(buf[5:], mag)
	binary.LittleEndian.PutUint32(buf[5+len(mag):], uint32(d.Exp))
	return m.arena.RawNew(buf)
}

// GetBigDecimal reads a BigDecimal back out.
func (m *Marshaller) GetBigDecimal(ptr GuestPtr) (BigDecimal, error) {
	header, err := m.arena.Get(ptr, 5)
	if err != nil {
		return BigDecimal{}, err
	}
	n := binary.LittleEndian.Uint32(header[:4])
	negative := header[4] == 1
	body, err := m.arena.Get(ptr, 5+n+4)
	if err != nil {
		return BigDecimal{}, err
	}
	mag := reverseBytes(body[5 : 5+n])
	digits := new(big.Int).SetBytes(mag)
	if negative {
		digits.Neg(digits)
	}
	exp := int32(binary.LittleEndian.Uint32(body[5+n:]))
	return BigDecimal{Digits: digits, Exp: exp}, nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
