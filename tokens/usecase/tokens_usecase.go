package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/osmosis-labs/osmosis/osmomath"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	deliveryhttp "github.com/batchswap/sor/delivery/http"
	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
)

var pricesFetchesCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sor_token_price_fetches_total",
		Help: "Total number of token price fetches",
	},
)

func init() {
	prometheus.MustRegister(pricesFetchesCounter)
}

const (
	priceCacheSize = 1024
	priceCacheTTL  = 30 * time.Second
)

// priceJSON is the wire shape of the price endpoint's response: the price of
// one native asset (e.g. ETH) expressed in the queried token.
type priceJSON struct {
	Price string `json:"price"`
}

type tokensUseCase struct {
	client   *http.Client
	endpoint string
	logger   log.Logger

	priceCache *expirable.LRU[common.Address, osmomath.Dec]
}

var _ domain.TokenPriceService = &tokensUseCase{}

// NewTokensUsecase will create a new token price service backed by the given
// price endpoint.
func NewTokensUsecase(endpoint string, logger log.Logger) domain.TokenPriceService {
	return &tokensUseCase{
		client:     deliveryhttp.DefaultClient,
		endpoint:   endpoint,
		logger:     logger,
		priceCache: expirable.NewLRU[common.Address, osmomath.Dec](priceCacheSize, nil, priceCacheTTL),
	}
}

// GetNativeAssetPriceInToken implements domain.TokenPriceService.
func (t *tokensUseCase) GetNativeAssetPriceInToken(ctx context.Context, token common.Address) (osmomath.Dec, error) {
	if price, ok := t.priceCache.Get(token); ok {
		return price, nil
	}

	price, err := t.fetchPrice(ctx, token)
	if err != nil {
		t.logger.Warn("token price fetch failed",
			zap.Stringer("token", token),
			zap.Error(err),
		)
		return osmomath.Dec{}, err
	}

	t.priceCache.Add(token, price)
	return price, nil
}

func (t *tokensUseCase) fetchPrice(ctx context.Context, token common.Address) (osmomath.Dec, error) {
	pricesFetchesCounter.Inc()

	url := fmt.Sprintf("%s?token=%s", t.endpoint, token.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return osmomath.Dec{}, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return osmomath.Dec{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return osmomath.Dec{}, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var payload priceJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return osmomath.Dec{}, err
	}

	price, err := osmomath.NewDecFromStr(payload.Price)
	if err != nil {
		return osmomath.Dec{}, fmt.Errorf("malformed price %q: %w", payload.Price, err)
	}
	if price.IsNegative() {
		return osmomath.Dec{}, fmt.Errorf("negative price %q", payload.Price)
	}
	return price, nil
}
