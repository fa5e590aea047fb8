package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ethereum record construction (spec §4.8, §3, §4.6). These are the concrete
// data classes a handler entry point marshals into sandbox memory before
// invoking the guest's exported handler function. Record layout is built by
// composing Marshaller primitives; only the fields that differ between ABI
// versions are branched on here, the individual field encodings never are.

// EthereumBlock is the block a log, call, or block handler runs against.
type EthereumBlock struct {
	Hash       common.Hash
	ParentHash common.Hash
	Number     *big.Int
	Timestamp  *big.Int
	GasLimit   *big.Int
	GasUsed    *big.Int
}

// EthereumTransaction is the transaction carrying a log or call.
type EthereumTransaction struct {
	Hash     common.Hash
	Index    *big.Int
	From     common.Address
	To       *common.Address // nil for contract creation
	Value    *big.Int
	GasLimit *big.Int
	GasPrice *big.Int
	Nonce    *big.Int // v2-transaction only
	Input    []byte   // v2-transaction only
}

// EventParam is one decoded argument of a Solidity event.
type EventParam struct {
	Name  string
	Value GuestPtr // already-marshalled ethereum.Value union
}

// EthereumLog is the input to a log handler.
type EthereumLog struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	LogIndex    *big.Int
	Block       EthereumBlock
	Transaction EthereumTransaction
	Params      []EventParam
}

// EthereumCall is the input to a call handler.
type EthereumCall struct {
	From     common.Address
	To       common.Address
	Block    EthereumBlock
	Transaction EthereumTransaction
	Inputs   []EventParam
	Outputs  []EventParam // v3-call only
}

func (m *Marshaller) marshalAddress(a common.Address) (GuestPtr, error) {
	return m.NewBytes(a.Bytes())
}

func (m *Marshaller) marshalHash(h common.Hash) (GuestPtr, error) {
	return m.NewBytes(h.Bytes())
}

func (m *Marshaller) marshalOptionalAddress(a *common.Address) (GuestPtr, error) {
	if a == nil {
		return m.NewUnion(Union{Tag: 0, Payload: 0})
	}
	addrPtr, err := m.marshalAddress(*a)
	if err != nil {
		return 0, err
	}
	return m.NewUnion(Union{Tag: 1, Payload: addrPtr})
}

func (m *Marshaller) marshalEventParams(params []EventParam) (GuestPtr, error) {
	ptrs := make([]GuestPtr, len(params))
	for i, p := range params {
		namePtr, err := m.NewString(p.Name)
		if err != nil {
			return 0, err
		}
		pairPtr, err := m.NewPtrArray([]GuestPtr{namePtr, p.Value})
		if err != nil {
			return 0, err
		}
		ptrs[i] = pairPtr
	}
	return m.NewPtrArray(ptrs)
}

// NewBlock writes an EthereumBlock record.
func (m *Marshaller) NewBlock(b EthereumBlock) (GuestPtr, error) {
	hashPtr, err := m.marshalHash(b.Hash)
	if err != nil {
		return 0, err
	}
	parentPtr, err := m.marshalHash(b.ParentHash)
	if err != nil {
		return 0, err
	}
	numberPtr, err := m.NewBigInt(b.Number)
	if err != nil {
		return 0, err
	}
	timestampPtr, err := m.NewBigInt(b.Timestamp)
	if err != nil {
		return 0, err
	}
	gasLimitPtr, err := m.NewBigInt(b.GasLimit)
	if err != nil {
		return 0, err
	}
	gasUsedPtr, err := m.NewBigInt(b.GasUsed)
	if err != nil {
		return 0, err
	}
	return m.NewPtrArray([]GuestPtr{hashPtr, parentPtr, numberPtr, timestampPtr, gasLimitPtr, gasUsedPtr})
}

// NewTransaction writes an EthereumTransaction record, selecting the
// v2-transaction layout (adds nonce and input data) when apiVersion is at
// least 0.0.2, and the v1 layout otherwise (spec §4.6).
func (m *Marshaller) NewTransaction(apiVersion Version, tx EthereumTransaction) (GuestPtr, error) {
	hashPtr, err := m.marshalHash(tx.Hash)
	if err != nil {
		return 0, err
	}
	indexPtr, err := m.NewBigInt(tx.Index)
	if err != nil {
		return 0, err
	}
	fromPtr, err := m.marshalAddress(tx.From)
	if err != nil {
		return 0, err
	}
	toPtr, err := m.marshalOptionalAddress(tx.To)
	if err != nil {
		return 0, err
	}
	valuePtr, err := m.NewBigInt(tx.Value)
	if err != nil {
		return 0, err
	}
	gasLimitPtr, err := m.NewBigInt(tx.GasLimit)
	if err != nil {
		return 0, err
	}
	gasPricePtr, err := m.NewBigInt(tx.GasPrice)
	if err != nil {
		return 0, err
	}

	fields := []GuestPtr{hashPtr, indexPtr, fromPtr, toPtr, valuePtr, gasLimitPtr, gasPricePtr}

	if apiVersion.GTE(v0_0_2) {
		noncePtr, err := m.NewBigInt(tx.Nonce)
		if err != nil {
			return 0, err
		}
		inputPtr, err := m.NewBytes(tx.Input)
		if err != nil {
			return 0, err
		}
		fields = append(fields, noncePtr, inputPtr)
	}

	return m.NewPtrArray(fields)
}

// NewLog writes an EthereumLog record (the input to handle_log), selecting
// the v2-transaction layout for its embedded transaction when apiVersion
// permits (spec §4.6: "for logs, if api_version >= 0.0.2, use the
// v2-transaction layout").
func (m *Marshaller) NewLog(apiVersion Version, l EthereumLog) (GuestPtr, error) {
	addrPtr, err := m.marshalAddress(l.Address)
	if err != nil {
		return 0, err
	}
	topicPtrs := make([]GuestPtr, len(l.Topics))
	for i, t := range l.Topics {
		topicPtrs[i], err = m.marshalHash(t)
		if err != nil {
			return 0, err
		}
	}
	topicsPtr, err := m.NewPtrArray(topicPtrs)
	if err != nil {
		return 0, err
	}
	dataPtr, err := m.NewBytes(l.Data)
	if err != nil {
		return 0, err
	}
	logIndexPtr, err := m.NewBigInt(l.LogIndex)
	if err != nil {
		return 0, err
	}
	blockPtr, err := m.NewBlock(l.Block)
	if err != nil {
		return 0, err
	}
	txPtr, err := m.NewTransaction(apiVersion, l.Transaction)
	if err != nil {
		return 0, err
	}
	paramsPtr, err := m.marshalEventParams(l.Params)
	if err != nil {
		return 0, err
	}
	return m.NewPtrArray([]GuestPtr{addrPtr, topicsPtr, dataPtr, logIndexPtr, blockPtr, txPtr, paramsPtr})
}

// NewCall writes an EthereumCall record (the input to handle_call),
// selecting the v3-call layout (adds decoded return values) when apiVersion
// is at least 0.0.3, and the v1 layout otherwise (spec §4.6).
func (m *Marshaller) NewCall(apiVersion Version, c EthereumCall) (GuestPtr, error) {
	fromPtr, err := m.marshalAddress(c.From)
	if err != nil {
		return 0, err
	}
	toPtr, err := m.marshalAddress(c.To)
	if err != nil {
		return 0, err
	}
	blockPtr, err := m.NewBlock(c.Block)
	if err != nil {
		return 0, err
	}
	txPtr, err := m.NewTransaction(apiVersion, c.Transaction)
	if err != nil {
		return 0, err
	}
	inputsPtr, err := m.marshalEventParams(c.Inputs)
	if err != nil {
		return 0, err
	}

	fields := []GuestPtr{fromPtr, toPtr, blockPtr, txPtr, inputsPtr}

	if apiVersion.GTE(v0_0_3) {
		outputsPtr, err := m.marshalEventParams(c.Outputs)
		if err != nil {
			return 0, err
		}
		fields = append(fields, outputsPtr)
	}

	return m.NewPtrArray(fields)
}
