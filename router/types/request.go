package types

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/batchswap/sor/domain"
)

// GetQuoteRequest represents a swap quote request for the /sor/quote endpoint.
type GetQuoteRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	// Amount is in tokenIn native decimals for ExactIn and tokenOut native
	// decimals for ExactOut.
	Amount   *big.Int
	SwapType domain.SwapTypes

	GasPrice  *big.Int
	MaxPools  int
	Timestamp int64
	PoolTypes []domain.PoolType
}

// UnmarshalHTTPRequest parses the quote request from echo query parameters.
func (r *GetQuoteRequest) UnmarshalHTTPRequest(c echo.Context) error {
	tokenIn := c.QueryParam("tokenIn")
	if tokenIn == "" {
		return ErrTokenInNotSpecified
	}
	if !common.IsHexAddress(tokenIn) {
		return ErrTokenNotValid
	}
	r.TokenIn = common.HexToAddress(tokenIn)

	tokenOut := c.QueryParam("tokenOut")
	if tokenOut == "" {
		return ErrTokenOutNotSpecified
	}
	if !common.IsHexAddress(tokenOut) {
		return ErrTokenNotValid
	}
	r.TokenOut = common.HexToAddress(tokenOut)

	amountStr := c.QueryParam("amount")
	if amountStr == "" {
		return ErrAmountNotSpecified
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() <= 0 {
		return ErrAmountNotValid
	}
	r.Amount = amount

	switch c.QueryParam("swapType") {
	case "", "ExactIn":
		r.SwapType = domain.SwapExactIn
	case "ExactOut":
		r.SwapType = domain.SwapExactOut
	default:
		return ErrSwapTypeNotValid
	}

	if gasPriceStr := c.QueryParam("gasPrice"); gasPriceStr != "" {
		gasPrice, ok := new(big.Int).SetString(gasPriceStr, 10)
		if !ok || gasPrice.Sign() < 0 {
			return ErrGasPriceNotValid
		}
		r.GasPrice = gasPrice
	}

	if maxPoolsStr := c.QueryParam("maxPools"); maxPoolsStr != "" {
		maxPools, err := strconv.Atoi(maxPoolsStr)
		if err != nil || maxPools <= 0 {
			return ErrMaxPoolsNotValid
		}
		r.MaxPools = maxPools
	}

	if timestampStr := c.QueryParam("timestamp"); timestampStr != "" {
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil || timestamp < 0 {
			return ErrTimestampNotValid
		}
		r.Timestamp = timestamp
	}

	if poolTypesStr := c.QueryParam("poolTypes"); poolTypesStr != "" {
		for _, tag := range strings.Split(poolTypesStr, ",") {
			poolType := domain.ParsePoolType(strings.TrimSpace(tag))
			if poolType == domain.Unknown {
				return ErrPoolTypeNotValid
			}
			r.PoolTypes = append(r.PoolTypes, poolType)
		}
	}

	return nil
}

// Validate validates the GetQuoteRequest.
func (r *GetQuoteRequest) Validate() error {
	if r.TokenIn == r.TokenOut {
		return ErrSameToken
	}
	return nil
}

// SwapOptions maps the per-request knobs onto the router options.
func (r *GetQuoteRequest) SwapOptions() domain.SwapOptions {
	return domain.SwapOptions{
		GasPrice:       r.GasPrice,
		MaxPools:       r.MaxPools,
		PoolTypeFilter: r.PoolTypes,
		Timestamp:      r.Timestamp,
	}
}
