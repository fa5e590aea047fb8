package core

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
)

// ErrIpfsNotFound is returned by an IpfsFetcher when the blob for a CID is
// unavailable. The Ipfs host module treats this as recoverable (spec §7:
// "recoverable conditions are converted to a null sandbox value and
// logged"), never as a trap.
var ErrIpfsNotFound = errors.New("ipfs: blob not found")

// IpfsFetcher is the out-of-scope IPFS client collaborator (spec §1); the
// engine depends only on this narrow interface.
type IpfsFetcher interface {
	Fetch(c cid.Cid) ([]byte, error)
}

// IpfsModule implements ipfs.cat (spec SPEC_FULL §4.3): parses the guest
// byte array as a CID and delegates to the injected fetcher.
type IpfsModule struct {
	Fetcher IpfsFetcher
	Log     *logrus.Entry
}

func NewIpfsModule(fetcher IpfsFetcher, log *logrus.Entry) *IpfsModule {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &IpfsModule{Fetcher: fetcher, Log: log}
}

func (m *IpfsModule) Name() string { return "ipfs" }

func (m *IpfsModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "ipfs.cat", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
	}
}

func (m *IpfsModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	if functionName != "ipfs.cat" {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
	}
	mar := NewMarshaller(ctx.Arena)
	raw, err := mar.GetBytes(args[0].Ptr())
	if err != nil {
		return nil, err
	}
	c, parseErr := cid.Cast(raw)
	if parseErr != nil {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("invalid cid: %w", parseErr)}
	}

	data, fetchErr := m.Fetcher.Fetch(c)
	if fetchErr != nil {
		m.Log.WithFields(logrus.Fields{
			"trace_id": ctx.TraceID,
			"cid":      c.String(),
			"error":    fetchErr,
		}).Warn("ipfs.cat: fetch failed, returning null to guest")
		v := ValueI32(0)
		return &v, nil
	}

	ptr, err := mar.NewBytes(data)
	return ptrValue(ptr, err)
}
