package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// ErrContractCallReverted is returned by a ContractCaller when the
// underlying call reverts; treated as recoverable per spec §7.
var ErrContractCallReverted = errors.New("ethereum: contract call reverted")

// ContractCaller is the out-of-scope blockchain RPC client collaborator
// (spec §1). Signature is non-empty only when the caller's AbiVersion is
// at least 0.0.4 (spec §4.6 bullet 3).
type ContractCaller interface {
	Call(contract common.Address, signature string, input []byte) ([]byte, error)
}

// EthereumModule implements ethereum.call, the contract-call import used
// from inside handlers (spec SPEC_FULL §4.3, spec §4.6 bullet 3).
type EthereumModule struct {
	Caller ContractCaller
}

func NewEthereumModule(caller ContractCaller) *EthereumModule {
	return &EthereumModule{Caller: caller}
}

func (m *EthereumModule) Name() string { return "ethereum" }

func (m *EthereumModule) Functions() []HostFunction {
	return []HostFunction{
		// (contract_ptr, signature_ptr_or_null, input_ptr) -> output_ptr.
		// signature_ptr is only meaningful when ctx.AbiVersion >= 0.0.4; the
		// signature always arrives as the middle argument (0 when absent)
		// rather than through an overloaded arity, keeping one fixed
		// HostFunction signature across API versions (spec §9: prefer a
		// tagged variant selected once, not boolean-flag branching).
		{Name: "ethereum.call", Params: []ValueKind{KindI32, KindI32, KindI32}, Results: []ValueKind{KindI32}},
	}
}

func (m *EthereumModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	if functionName != "ethereum.call" {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
	}
	mar := NewMarshaller(ctx.Arena)

	contractBytes, err := mar.GetBytes(args[0].Ptr())
	if err != nil {
		return nil, err
	}
	contract := common.BytesToAddress(contractBytes)

	var signature string
	if ctx.AbiVersion.GTE(v0_0_4) && args[1].Ptr() != 0 {
		signature, err = mar.GetString(args[1].Ptr())
		if err != nil {
			return nil, err
		}
	}

	input, err := mar.GetBytes(args[2].Ptr())
	if err != nil {
		return nil, err
	}

	output, callErr := m.Caller.Call(contract, signature, input)
	if callErr != nil {
		if errors.Is(callErr, ErrContractCallReverted) {
			logrus.WithFields(logrus.Fields{
				"trace_id": ctx.TraceID,
				"contract": contract.Hex(),
				"error":    callErr,
			}).Warn("ethereum.call: call reverted, returning null to guest")
			v := ValueI32(0) // null sandbox value: guest decides policy (spec §7)
			return &v, nil
		}
		return nil, &HostImportError{FunctionName: functionName, Err: callErr}
	}

	ptr, err := mar.NewBytes(output)
	return ptrValue(ptr, err)
}
