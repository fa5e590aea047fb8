package core

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
)

// TypeConversionModule is the first built-in host module (spec §4.3): pure
// conversions between byte arrays, hex, decimal strings, fixed-width
// integers, and arbitrary precision numbers. It holds no state of its own
// and touches the ExecutionContext only to reach its Arena/Marshaller.
type TypeConversionModule struct{}

func NewTypeConversionModule() *TypeConversionModule { return &TypeConversionModule{} }

func (m *TypeConversionModule) Name() string { return "typeConversion" }

func (m *TypeConversionModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "typeConversion.bytesToHex", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.bytesToString", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.stringToH160", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.bigIntToString", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.stringToBigInt", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.i32ToBigInt", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "typeConversion.bigIntToI32", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "bigInt.plus", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
		{Name: "bigInt.minus", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
		{Name: "bigInt.times", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
		{Name: "bigInt.dividedBy", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
		{Name: "bigInt.mod", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
	}
}

func (m *TypeConversionModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	mar := NewMarshaller(ctx.Arena)
	switch functionName {
	case "typeConversion.bytesToHex":
		b, err := mar.GetBytes(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		ptr, err := mar.NewString("0x" + hex.EncodeToString(b))
		return ptrValue(ptr, err)

	case "typeConversion.bytesToString":
		b, err := mar.GetBytes(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		ptr, err := mar.NewString(string(b))
		return ptrValue(ptr, err)

	case "typeConversion.stringToH160":
		s, err := mar.GetString(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(trimHexPrefix(s))
		if err != nil {
			return nil, &HostImportError{FunctionName: functionName, Err: err}
		}
		ptr, err := mar.NewBytes(raw)
		return ptrValue(ptr, err)

	case "typeConversion.bigIntToString":
		x, err := mar.GetBigInt(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		ptr, err := mar.NewString(x.String())
		return ptrValue(ptr, err)

	case "typeConversion.stringToBigInt":
		s, err := mar.GetString(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		x, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("invalid decimal string %q", s)}
		}
		ptr, err := mar.NewBigInt(x)
		return ptrValue(ptr, err)

	case "typeConversion.i32ToBigInt":
		ptr, err := mar.NewBigInt(big.NewInt(int64(args[0].I32())))
		return ptrValue(ptr, err)

	case "typeConversion.bigIntToI32":
		x, err := mar.GetBigInt(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		if !x.IsInt64() || x.Int64() < math.MinInt32 || x.Int64() > math.MaxInt32 {
			return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("value %s does not fit in i32", x)}
		}
		v := ValueI32(int32(x.Int64()))
		return &v, nil

	case "bigInt.plus", "bigInt.minus", "bigInt.times", "bigInt.dividedBy", "bigInt.mod":
		a, err := mar.GetBigInt(GuestPtr(args[0].Ptr()))
		if err != nil {
			return nil, err
		}
		b, err := mar.GetBigInt(GuestPtr(args[1].Ptr()))
		if err != nil {
			return nil, err
		}
		result := new(big.Int)
		switch functionName {
		case "bigInt.plus":
			result.Add(a, b)
		case "bigInt.minus":
			result.Sub(a, b)
		case "bigInt.times":
			result.Mul(a, b)
		case "bigInt.dividedBy":
			if b.Sign() == 0 {
				return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("division by zero")}
			}
			result.Quo(a, b)
		case "bigInt.mod":
			if b.Sign() == 0 {
				return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("division by zero")}
			}
			result.Mod(a, b)
		}
		ptr, err := mar.NewBigInt(result)
		return ptrValue(ptr, err)
	}
	return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func ptrValue(ptr GuestPtr, err error) (*Value, error) {
	if err != nil {
		return nil, err
	}
	v := ValueI32(int32(ptr))
	return &v, nil
}
