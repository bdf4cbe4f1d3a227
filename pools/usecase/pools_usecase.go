package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	deliveryhttp "github.com/batchswap/sor/delivery/http"
	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
)

var (
	snapshotFetchesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_pool_snapshot_fetches_total",
			Help: "Total number of pool snapshot fetches",
		},
	)
	snapshotErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_pool_snapshot_errors_total",
			Help: "Total number of failed pool snapshot fetches",
		},
	)
	snapshotPoolsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sor_pool_snapshot_pools",
			Help: "Number of pools in the last good snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(snapshotFetchesCounter)
	prometheus.MustRegister(snapshotErrorsCounter)
	prometheus.MustRegister(snapshotPoolsGauge)
}

// poolJSON is the wire shape of one pool in the snapshot endpoint's response.
// Balances are integer strings in each token's native decimals; fees, weights,
// rates, targets and bounds are 18-decimal fixed-point integer strings. Amp is
// scaled by its own precision of 1000.
type poolJSON struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	PoolType    string `json:"poolType"`
	SwapFee     string `json:"swapFee"`
	SwapEnabled bool   `json:"swapEnabled"`
	TotalShares string `json:"totalShares,omitempty"`

	Amp string `json:"amp,omitempty"`

	MainIndex    int    `json:"mainIndex,omitempty"`
	WrappedIndex int    `json:"wrappedIndex,omitempty"`
	BptIndex     int    `json:"bptIndex,omitempty"`
	LowerTarget  string `json:"lowerTarget,omitempty"`
	UpperTarget  string `json:"upperTarget,omitempty"`

	SqrtAlpha string `json:"sqrtAlpha,omitempty"`
	SqrtBeta  string `json:"sqrtBeta,omitempty"`

	Alpha  string `json:"alpha,omitempty"`
	Beta   string `json:"beta,omitempty"`
	Delta  string `json:"delta,omitempty"`
	Lambda string `json:"lambda,omitempty"`

	StartTime int64 `json:"startTime,omitempty"`
	EndTime   int64 `json:"endTime,omitempty"`

	Tokens []tokenJSON `json:"tokens"`
}

type tokenJSON struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Decimals  uint8  `json:"decimals"`
	Weight    string `json:"weight,omitempty"`
	PriceRate string `json:"priceRate,omitempty"`
}

type snapshotJSON struct {
	Pools []poolJSON `json:"pools"`
}

type poolsUseCase struct {
	client   *http.Client
	endpoint string
	logger   log.Logger

	// snapshotTTL bounds how long a fetched snapshot is served before the
	// endpoint is polled again.
	snapshotTTL time.Duration

	mu        sync.RWMutex
	snapshot  []*domain.PoolRecord
	fetchedAt time.Time
}

var _ domain.PoolDataService = &poolsUseCase{}

// NewPoolsUsecase will create a new pool data service polling the given
// snapshot endpoint.
func NewPoolsUsecase(endpoint string, snapshotTTL time.Duration, logger log.Logger) domain.PoolDataService {
	return &poolsUseCase{
		client:      deliveryhttp.DefaultClient,
		endpoint:    endpoint,
		logger:      logger,
		snapshotTTL: snapshotTTL,
	}
}

// GetPools implements domain.PoolDataService. It serves the cached snapshot
// while fresh and refetches otherwise. A failed refetch falls back to the
// last good snapshot when one exists.
func (p *poolsUseCase) GetPools(ctx context.Context) ([]*domain.PoolRecord, error) {
	p.mu.RLock()
	if p.snapshot != nil && time.Since(p.fetchedAt) < p.snapshotTTL {
		snapshot := p.snapshot
		p.mu.RUnlock()
		return snapshot, nil
	}
	p.mu.RUnlock()

	records, err := p.fetch(ctx)
	if err != nil {
		snapshotErrorsCounter.Inc()

		p.mu.RLock()
		stale := p.snapshot
		p.mu.RUnlock()
		if stale != nil {
			p.logger.Warn("serving stale pool snapshot", zap.Error(err))
			return stale, nil
		}
		return nil, err
	}

	p.mu.Lock()
	p.snapshot = records
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	snapshotPoolsGauge.Set(float64(len(records)))
	return records, nil
}

func (p *poolsUseCase) fetch(ctx context.Context) ([]*domain.PoolRecord, error) {
	snapshotFetchesCounter.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pool snapshot endpoint returned status %d", resp.StatusCode)
	}

	var snapshot snapshotJSON
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, err
	}

	records := make([]*domain.PoolRecord, 0, len(snapshot.Pools))
	for _, pool := range snapshot.Pools {
		record, err := parsePool(pool)
		if err != nil {
			// One malformed pool must not take down the whole snapshot.
			p.logger.Warn("skipping malformed pool",
				zap.String("pool_id", pool.ID),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func parsePool(pool poolJSON) (*domain.PoolRecord, error) {
	swapFee, err := parseBig(pool.SwapFee, true)
	if err != nil {
		return nil, fmt.Errorf("swapFee: %w", err)
	}

	record := &domain.PoolRecord{
		ID:           pool.ID,
		Address:      common.HexToAddress(pool.Address),
		Type:         domain.ParsePoolType(pool.PoolType),
		SwapFee:      swapFee,
		SwapEnabled:  pool.SwapEnabled,
		MainIndex:    pool.MainIndex,
		WrappedIndex: pool.WrappedIndex,
		BptIndex:     pool.BptIndex,
		StartTime:    pool.StartTime,
		EndTime:      pool.EndTime,
	}

	optional := []struct {
		raw  string
		dest **big.Int
		name string
	}{
		{pool.TotalShares, &record.TotalShares, "totalShares"},
		{pool.Amp, &record.Amp, "amp"},
		{pool.LowerTarget, &record.LowerTarget, "lowerTarget"},
		{pool.UpperTarget, &record.UpperTarget, "upperTarget"},
		{pool.SqrtAlpha, &record.SqrtAlpha, "sqrtAlpha"},
		{pool.SqrtBeta, &record.SqrtBeta, "sqrtBeta"},
		{pool.Alpha, &record.Alpha, "alpha"},
		{pool.Beta, &record.Beta, "beta"},
		{pool.Delta, &record.Delta, "delta"},
		{pool.Lambda, &record.Lambda, "lambda"},
	}
	for _, field := range optional {
		if field.raw == "" {
			continue
		}
		value, err := parseBig(field.raw, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dest = value
	}

	record.Tokens = make([]domain.TokenRecord, 0, len(pool.Tokens))
	for _, token := range pool.Tokens {
		balance, err := parseBig(token.Balance, true)
		if err != nil {
			return nil, fmt.Errorf("token %s balance: %w", token.Address, err)
		}
		tokenRecord := domain.TokenRecord{
			Address:  common.HexToAddress(token.Address),
			Balance:  balance,
			Decimals: token.Decimals,
		}
		if token.Weight != "" {
			if tokenRecord.Weight, err = parseBig(token.Weight, true); err != nil {
				return nil, fmt.Errorf("token %s weight: %w", token.Address, err)
			}
		}
		if token.PriceRate != "" {
			if tokenRecord.PriceRate, err = parseBig(token.PriceRate, true); err != nil {
				return nil, fmt.Errorf("token %s priceRate: %w", token.Address, err)
			}
		}
		record.Tokens = append(record.Tokens, tokenRecord)
	}

	return record, nil
}

func parseBig(raw string, nonNegative bool) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", raw)
	}
	if nonNegative && value.Sign() < 0 {
		return nil, fmt.Errorf("negative value: %q", raw)
	}
	return value, nil
}
