package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"indexer-runtime/core"
)

// httpIpfsFetcher and rpcContractCaller are thin stand-ins for the
// out-of-scope IPFS client and blockchain RPC client collaborators (spec
// §1): real deployments inject a client built against Config.Collaborators'
// endpoints; this CLI logs the request and reports the resource absent,
// matching cmd/synnergy's own mock-command style for commands with no real
// backing network in this exercise.
type httpIpfsFetcher struct {
	endpoint string
	log      *logrus.Entry
}

func newHTTPIpfsFetcher(endpoint string, log *logrus.Entry) *httpIpfsFetcher {
	return &httpIpfsFetcher{endpoint: endpoint, log: log}
}

func (f *httpIpfsFetcher) Fetch(c cid.Cid) ([]byte, error) {
	f.log.WithFields(logrus.Fields{"endpoint": f.endpoint, "cid": c.String()}).
		Debug("ipfs fetch requested (no backing client configured)")
	return nil, core.ErrIpfsNotFound
}

type rpcContractCaller struct {
	endpoint string
	log      *logrus.Entry
}

func newRPCContractCaller(endpoint string, log *logrus.Entry) *rpcContractCaller {
	return &rpcContractCaller{endpoint: endpoint, log: log}
}

func (c *rpcContractCaller) Call(contract common.Address, signature string, input []byte) ([]byte, error) {
	c.log.WithFields(logrus.Fields{
		"endpoint":  c.endpoint,
		"contract":  contract.Hex(),
		"signature": signature,
	}).Debug("ethereum call requested (no backing client configured)")
	return nil, fmt.Errorf("%w: no ethereum RPC client configured", core.ErrContractCallReverted)
}
