package usecase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
	poolsusecase "github.com/batchswap/sor/pools/usecase"
)

const snapshotBody = `{
	"pools": [
		{
			"id": "0xp1",
			"address": "0x00000000000000000000000000000000000000a1",
			"poolType": "Weighted",
			"swapFee": "2500000000000000",
			"swapEnabled": true,
			"tokens": [
				{"address": "0x0000000000000000000000000000000000000001", "balance": "1000000000000000000000", "decimals": 18, "weight": "500000000000000000"},
				{"address": "0x0000000000000000000000000000000000000002", "balance": "2000000000", "decimals": 6, "weight": "500000000000000000"}
			]
		},
		{
			"id": "0xbad",
			"address": "0x00000000000000000000000000000000000000a2",
			"poolType": "Weighted",
			"swapFee": "not-a-number",
			"swapEnabled": true,
			"tokens": []
		},
		{
			"id": "0xlinear",
			"address": "0x00000000000000000000000000000000000000a3",
			"poolType": "AaveLinear",
			"swapFee": "10000000000000000",
			"swapEnabled": true,
			"totalShares": "2500000000000000000000",
			"mainIndex": 0,
			"wrappedIndex": 1,
			"bptIndex": 2,
			"lowerTarget": "1000000000000000000000",
			"upperTarget": "2000000000000000000000",
			"tokens": [
				{"address": "0x0000000000000000000000000000000000000003", "balance": "1500000000000000000000", "decimals": 18},
				{"address": "0x0000000000000000000000000000000000000004", "balance": "1000000000000000000000", "decimals": 18, "priceRate": "1100000000000000000"},
				{"address": "0x00000000000000000000000000000000000000a3", "balance": "5000000000000000000000", "decimals": 18}
			]
		}
	]
}`

func TestGetPools(t *testing.T) {
	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	service := poolsusecase.NewPoolsUsecase(server.URL, time.Minute, &log.NoOpLogger{})

	records, err := service.GetPools(context.Background())
	assert.NoError(t, err)

	// The malformed pool is skipped, not fatal.
	assert.Equal(t, 2, len(records))

	assert.Equal(t, "0xp1", records[0].ID)
	assert.Equal(t, domain.Weighted, records[0].Type)
	assert.Equal(t, "2500000000000000", records[0].SwapFee.String())
	assert.Equal(t, 2, len(records[0].Tokens))
	assert.Equal(t, uint8(6), records[0].Tokens[1].Decimals)
	assert.Equal(t, "2000000000", records[0].Tokens[1].Balance.String())

	assert.Equal(t, domain.Linear, records[1].Type)
	assert.Equal(t, 2, records[1].BptIndex)
	assert.Equal(t, "1100000000000000000", records[1].Tokens[1].PriceRate.String())
	assert.Equal(t, "2500000000000000000000", records[1].TotalShares.String())

	// A second call within the TTL serves the cached snapshot.
	_, err = service.GetPools(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestGetPoolsServesStaleOnError(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	service := poolsusecase.NewPoolsUsecase(server.URL, time.Nanosecond, &log.NoOpLogger{})

	records, err := service.GetPools(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))

	failing.Store(true)
	time.Sleep(time.Millisecond)

	records, err = service.GetPools(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))
}

func TestGetPoolsNoSnapshotOnFirstError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := poolsusecase.NewPoolsUsecase(server.URL, time.Minute, &log.NoOpLogger{})

	_, err := service.GetPools(context.Background())
	assert.Error(t, err)
}
