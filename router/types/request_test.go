package types_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/labstack/echo/v4"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/router/types"
)

func quoteContext(t *testing.T, params url.Values) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/sor/quote?"+params.Encode(), nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestUnmarshalQuoteRequest(t *testing.T) {
	params := url.Values{}
	params.Set("tokenIn", "0x6b175474e89094c44da98b954eedeac495271d0f")
	params.Set("tokenOut", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	params.Set("amount", "1000000000000000000")
	params.Set("swapType", "ExactOut")
	params.Set("gasPrice", "30000000000")
	params.Set("maxPools", "3")
	params.Set("timestamp", "1700000000")
	params.Set("poolTypes", "Weighted, Stable")

	var request types.GetQuoteRequest
	err := request.UnmarshalHTTPRequest(quoteContext(t, params))
	assert.NoError(t, err)
	assert.NoError(t, request.Validate())

	assert.Equal(t, "0x6B175474E89094C44Da98b954EedeAC495271d0F", request.TokenIn.Hex())
	assert.Equal(t, domain.SwapExactOut, request.SwapType)
	assert.Equal(t, "1000000000000000000", request.Amount.String())
	assert.Equal(t, "30000000000", request.GasPrice.String())
	assert.Equal(t, 3, request.MaxPools)
	assert.Equal(t, int64(1700000000), request.Timestamp)
	assert.Equal(t, []domain.PoolType{domain.Weighted, domain.Stable}, request.PoolTypes)

	opts := request.SwapOptions()
	assert.Equal(t, 3, opts.MaxPools)
	assert.Equal(t, int64(1700000000), opts.Timestamp)
}

func TestUnmarshalQuoteRequestDefaults(t *testing.T) {
	params := url.Values{}
	params.Set("tokenIn", "0x6b175474e89094c44da98b954eedeac495271d0f")
	params.Set("tokenOut", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	params.Set("amount", "5")

	var request types.GetQuoteRequest
	err := request.UnmarshalHTTPRequest(quoteContext(t, params))
	assert.NoError(t, err)

	assert.Equal(t, domain.SwapExactIn, request.SwapType)
	assert.Zero(t, request.GasPrice)
	assert.Equal(t, 0, request.MaxPools)
	assert.Equal(t, int64(0), request.Timestamp)
	assert.Zero(t, request.PoolTypes)
}

func TestUnmarshalQuoteRequestErrors(t *testing.T) {
	base := func() url.Values {
		params := url.Values{}
		params.Set("tokenIn", "0x6b175474e89094c44da98b954eedeac495271d0f")
		params.Set("tokenOut", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
		params.Set("amount", "1000")
		return params
	}

	tests := []struct {
		name    string
		mutate  func(url.Values)
		wantErr error
	}{
		{
			name:    "missing tokenIn",
			mutate:  func(p url.Values) { p.Del("tokenIn") },
			wantErr: types.ErrTokenInNotSpecified,
		},
		{
			name:    "missing tokenOut",
			mutate:  func(p url.Values) { p.Del("tokenOut") },
			wantErr: types.ErrTokenOutNotSpecified,
		},
		{
			name:    "malformed address",
			mutate:  func(p url.Values) { p.Set("tokenIn", "0x123") },
			wantErr: types.ErrTokenNotValid,
		},
		{
			name:    "missing amount",
			mutate:  func(p url.Values) { p.Del("amount") },
			wantErr: types.ErrAmountNotSpecified,
		},
		{
			name:    "negative amount",
			mutate:  func(p url.Values) { p.Set("amount", "-5") },
			wantErr: types.ErrAmountNotValid,
		},
		{
			name:    "zero amount",
			mutate:  func(p url.Values) { p.Set("amount", "0") },
			wantErr: types.ErrAmountNotValid,
		},
		{
			name:    "bad swap type",
			mutate:  func(p url.Values) { p.Set("swapType", "ExactMiddle") },
			wantErr: types.ErrSwapTypeNotValid,
		},
		{
			name:    "bad gas price",
			mutate:  func(p url.Values) { p.Set("gasPrice", "fast") },
			wantErr: types.ErrGasPriceNotValid,
		},
		{
			name:    "bad max pools",
			mutate:  func(p url.Values) { p.Set("maxPools", "0") },
			wantErr: types.ErrMaxPoolsNotValid,
		},
		{
			name:    "unknown pool type",
			mutate:  func(p url.Values) { p.Set("poolTypes", "Weighted,Parabolic") },
			wantErr: types.ErrPoolTypeNotValid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := base()
			tc.mutate(params)
			var request types.GetQuoteRequest
			err := request.UnmarshalHTTPRequest(quoteContext(t, params))
			assert.IsError(t, err, tc.wantErr)
		})
	}
}

func TestValidateSameToken(t *testing.T) {
	params := url.Values{}
	params.Set("tokenIn", "0x6b175474e89094c44da98b954eedeac495271d0f")
	params.Set("tokenOut", "0x6B175474E89094C44Da98b954EedeAC495271d0F")
	params.Set("amount", "1")

	var request types.GetQuoteRequest
	assert.NoError(t, request.UnmarshalHTTPRequest(quoteContext(t, params)))
	assert.IsError(t, request.Validate(), types.ErrSameToken)
}
