package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"indexer-runtime/core"
)

// eventFixture is the literal JSON shape cmd/runtime reads one event from
// (SPEC_FULL.md §2.1: "invokes it against a literal event read from a JSON
// fixture"). All numeric fields are decimal strings so arbitrarily large
// values round-trip through encoding/json without float64 truncation.
type eventFixture struct {
	WasmPath    string `json:"wasm_path"`
	HandlerName string `json:"handler_name"`
	EventKind   string `json:"event_kind"` // "log", "call", or "block"

	Block blockFixture `json:"block"`

	Transaction *transactionFixture `json:"transaction,omitempty"`
	Log         *logFixture         `json:"log,omitempty"`
	Call        *callFixture        `json:"call,omitempty"`
}

type blockFixture struct {
	Hash       string `json:"hash"`
	ParentHash string `json:"parent_hash"`
	Number     string `json:"number"`
	Timestamp  string `json:"timestamp"`
	GasLimit   string `json:"gas_limit"`
	GasUsed    string `json:"gas_used"`
}

type transactionFixture struct {
	Hash     string `json:"hash"`
	Index    string `json:"index"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Value    string `json:"value"`
	GasLimit string `json:"gas_limit"`
	GasPrice string `json:"gas_price"`
	Nonce    string `json:"nonce"`
	Input    string `json:"input"`
}

type logFixture struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	LogIndex string   `json:"log_index"`
}

type callFixture struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Inputs string `json:"inputs"`
}

func loadFixture(path string) (*eventFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f eventFixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func bigIntOrZero(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

func (f blockFixture) toBlock() core.EthereumBlock {
	return core.EthereumBlock{
		Hash:       common.HexToHash(f.Hash),
		ParentHash: common.HexToHash(f.ParentHash),
		Number:     bigIntOrZero(f.Number),
		Timestamp:  bigIntOrZero(f.Timestamp),
		GasLimit:   bigIntOrZero(f.GasLimit),
		GasUsed:    bigIntOrZero(f.GasUsed),
	}
}

func (f transactionFixture) toTransaction() core.EthereumTransaction {
	var to *common.Address
	if f.To != "" {
		addr := common.HexToAddress(f.To)
		to = &addr
	}
	return core.EthereumTransaction{
		Hash:     common.HexToHash(f.Hash),
		Index:    bigIntOrZero(f.Index),
		From:     common.HexToAddress(f.From),
		To:       to,
		Value:    bigIntOrZero(f.Value),
		GasLimit: bigIntOrZero(f.GasLimit),
		GasPrice: bigIntOrZero(f.GasPrice),
		Nonce:    bigIntOrZero(f.Nonce),
		Input:    common.FromHex(f.Input),
	}
}

func (f logFixture) toLog(tx core.EthereumTransaction) core.EthereumLog {
	topics := make([]common.Hash, len(f.Topics))
	for i, t := range f.Topics {
		topics[i] = common.HexToHash(t)
	}
	return core.EthereumLog{
		Address:     common.HexToAddress(f.Address),
		Topics:      topics,
		Data:        common.FromHex(f.Data),
		LogIndex:    bigIntOrZero(f.LogIndex),
		Transaction: tx,
	}
}

func (f callFixture) toCall(tx core.EthereumTransaction) core.EthereumCall {
	return core.EthereumCall{
		From:        common.HexToAddress(f.From),
		To:          common.HexToAddress(f.To),
		Transaction: tx,
	}
}
