package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// CryptoModule wraps go-ethereum's Keccak256 (spec SPEC_FULL §4.3,
// §2.2 — grounded on core/virtual_machine.go and core/contracts.go's use of
// github.com/ethereum/go-ethereum/crypto in the teacher repo).
type CryptoModule struct{}

func NewCryptoModule() *CryptoModule { return &CryptoModule{} }

func (m *CryptoModule) Name() string { return "crypto" }

func (m *CryptoModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "crypto.keccak256", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
	}
}

func (m *CryptoModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	if functionName != "crypto.keccak256" {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
	}
	mar := NewMarshaller(ctx.Arena)
	input, err := mar.GetBytes(args[0].Ptr())
	if err != nil {
		return nil, err
	}
	digest := crypto.Keccak256(input)
	ptr, err := mar.NewBytes(digest)
	return ptrValue(ptr, err)
}
