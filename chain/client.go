package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the thin EVM node surface the router needs: a gas price for
// charging route hops and the head block for health reporting.
type Client interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	GetLatestHeight(ctx context.Context) (uint64, error)
}

type chainClient struct {
	eth *ethclient.Client
}

var _ Client = &chainClient{}

// NewClient dials the JSON-RPC endpoint. The connection is lazy; a node that
// is down at startup surfaces on the first call instead.
func NewClient(rpcEndpoint string) (Client, error) {
	eth, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, err
	}
	return &chainClient{eth: eth}, nil
}

func (c *chainClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *chainClient) GetLatestHeight(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}
