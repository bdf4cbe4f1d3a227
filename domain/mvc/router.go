// Package mvc holds the use-case contracts consumed by the delivery layer.
package mvc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/batchswap/sor/domain"
)

// RouterUsecase is the smart order router's quoting surface.
type RouterUsecase interface {
	// GetSwaps finds the best route set for the trade and renders it as a
	// settlement-ready instruction list. swapAmount is in the native
	// decimals of tokenIn for ExactIn and tokenOut for ExactOut. A
	// zero-swap SwapInfo means no viable route; errors are reserved for
	// infrastructure failures.
	GetSwaps(ctx context.Context, tokenIn, tokenOut common.Address, kind domain.SwapTypes, swapAmount *big.Int, opts domain.SwapOptions) (domain.SwapInfo, error)
}
