package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Backend is the contract access surface the game layer needs: calls and
// transactions plus receipt lookups for confirmation waits. ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client wraps a single network connection. It is created by dialing one of
// the endpoints in a Params definition and verifying the reported chain id
// actually matches, so a misconfigured endpoint cannot masquerade as the
// target network.
type Client struct {
	mu     sync.Mutex
	params Params
	rpc    *gethrpc.Client
	eth    *ethclient.Client
}

// Dial connects to the first reachable RPC endpoint of the network and
// verifies its chain id.
func Dial(ctx context.Context, params Params) (*Client, error) {
	if len(params.RPCURLs) == 0 {
		return nil, errors.New("network definition has no RPC endpoints")
	}

	var lastErr error
	for _, url := range params.RPCURLs {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		rpcClient, err := gethrpc.DialContext(ctx, url)
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w", url, err)
			continue
		}
		eth := ethclient.NewClient(rpcClient)
		chainID, err := eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			lastErr = fmt.Errorf("query chain id of %s: %w", url, err)
			continue
		}
		if chainID.Uint64() != params.ChainID {
			eth.Close()
			lastErr = fmt.Errorf("endpoint %s reports chain id %s, want %d", url, chainID, params.ChainID)
			continue
		}
		return &Client{params: params, rpc: rpcClient, eth: eth}, nil
	}
	return nil, fmt.Errorf("no reachable endpoint for %s: %w", params.Name, lastErr)
}

// Params returns the network definition this client is connected to.
func (c *Client) Params() Params {
	return c.params
}

// ChainID returns the connected network's chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).SetUint64(c.params.ChainID)
}

// Backend exposes the contract backend for bindings and confirmation waits.
func (c *Client) Backend() Backend {
	return c.eth
}

// BalanceAt fetches the native currency balance of an account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	if c == nil || c.eth == nil {
		return nil, errors.New("chain client is not connected")
	}
	return c.eth.BalanceAt(ctx, account, nil)
}

// Close releases the underlying connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
}
