package http_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
	routerhttp "github.com/batchswap/sor/router/delivery/http"
)

type stubRouterUsecase struct {
	info domain.SwapInfo
	err  error

	gotTokenIn  common.Address
	gotTokenOut common.Address
	gotKind     domain.SwapTypes
	gotAmount   *big.Int
	gotOpts     domain.SwapOptions
}

func (s *stubRouterUsecase) GetSwaps(ctx context.Context, tokenIn, tokenOut common.Address, kind domain.SwapTypes, swapAmount *big.Int, opts domain.SwapOptions) (domain.SwapInfo, error) {
	s.gotTokenIn = tokenIn
	s.gotTokenOut = tokenOut
	s.gotKind = kind
	s.gotAmount = swapAmount
	s.gotOpts = opts
	return s.info, s.err
}

func newQuoteServer(stub *stubRouterUsecase) *echo.Echo {
	e := echo.New()
	routerhttp.NewRouterHandler(e, stub, nil, &log.NoOpLogger{})
	return e
}

func TestGetQuote(t *testing.T) {
	tokenIn := common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	tokenOut := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	stub := &stubRouterUsecase{
		info: domain.SwapInfo{
			Swaps: []domain.Swap{
				{PoolID: "0xp1", AssetInIndex: 0, AssetOutIndex: 1, Amount: "1000", UserData: "0x"},
			},
			TokenAddresses:              []common.Address{tokenIn, tokenOut},
			TokenIn:                     tokenIn,
			TokenOut:                    tokenOut,
			SwapAmount:                  big.NewInt(1000),
			ReturnAmount:                big.NewInt(990),
			ReturnAmountConsideringFees: big.NewInt(985),
			MarketSP:                    osmomath.ZeroDec(),
		},
	}
	e := newQuoteServer(stub)

	req := httptest.NewRequest(http.MethodGet,
		"/sor/quote?tokenIn="+tokenIn.Hex()+"&tokenOut="+tokenOut.Hex()+"&amount=1000&swapType=ExactIn&maxPools=2", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tokenIn, stub.gotTokenIn)
	assert.Equal(t, tokenOut, stub.gotTokenOut)
	assert.Equal(t, domain.SwapExactIn, stub.gotKind)
	assert.Equal(t, "1000", stub.gotAmount.String())
	assert.Equal(t, 2, stub.gotOpts.MaxPools)

	var decoded domain.SwapInfo
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, 1, len(decoded.Swaps))
	assert.Equal(t, "0xp1", decoded.Swaps[0].PoolID)
	assert.Equal(t, "990", decoded.ReturnAmount.String())
}

func TestGetQuoteBadRequest(t *testing.T) {
	e := newQuoteServer(&stubRouterUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/sor/quote?tokenIn=0x123&tokenOut=0x456&amount=5", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var response domain.ResponseError
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotZero(t, response.Message)
}

type stubGasSuggester struct {
	price *big.Int
}

func (s *stubGasSuggester) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return s.price, nil
}

func TestGetQuoteSuggestsGasPrice(t *testing.T) {
	stub := &stubRouterUsecase{info: domain.SwapInfo{MarketSP: osmomath.ZeroDec()}}
	e := echo.New()
	routerhttp.NewRouterHandler(e, stub, &stubGasSuggester{price: big.NewInt(30_000_000_000)}, &log.NoOpLogger{})

	base := "/sor/quote?tokenIn=0x6b175474e89094c44da98b954eedeac495271d0f&tokenOut=0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48&amount=5"

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30000000000", stub.gotOpts.GasPrice.String())

	// An explicit gasPrice wins over the suggestion.
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"&gasPrice=7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", stub.gotOpts.GasPrice.String())
}

func TestGetQuoteUsecaseError(t *testing.T) {
	e := newQuoteServer(&stubRouterUsecase{err: domain.ErrInternalServerError})

	req := httptest.NewRequest(http.MethodGet,
		"/sor/quote?tokenIn=0x6b175474e89094c44da98b954eedeac495271d0f&tokenOut=0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48&amount=5", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
