package usecase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ethereum/go-ethereum/common"

	"github.com/batchswap/sor/log"
	tokensusecase "github.com/batchswap/sor/tokens/usecase"
)

func TestGetNativeAssetPriceInToken(t *testing.T) {
	token := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")

	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		assert.Equal(t, token.Hex(), r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"price": "2043.52"}`))
	}))
	defer server.Close()

	service := tokensusecase.NewTokensUsecase(server.URL, &log.NoOpLogger{})

	price, err := service.GetNativeAssetPriceInToken(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "2043.520000000000000000", price.String())

	// Second lookup is served from the cache.
	_, err = service.GetNativeAssetPriceInToken(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestGetNativeAssetPriceInTokenErrors(t *testing.T) {
	token := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed price", body: `{"price": "cheap"}`, code: http.StatusOK},
		{name: "negative price", body: `{"price": "-5"}`, code: http.StatusOK},
		{name: "upstream failure", body: "", code: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			service := tokensusecase.NewTokensUsecase(server.URL, &log.NoOpLogger{})
			_, err := service.GetNativeAssetPriceInToken(context.Background(), token)
			assert.Error(t, err)
		})
	}
}
