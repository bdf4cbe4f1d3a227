package usecase

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/domain/cache"
	"github.com/batchswap/sor/domain/mvc"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/log"
	"github.com/batchswap/sor/router/usecase/pools"
	"github.com/batchswap/sor/router/usecase/route"
)

var (
	routesCacheHitsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_routes_cache_hits_total",
			Help: "Total number of candidate route cache hits",
		},
	)
	routesCacheMissesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_routes_cache_misses_total",
			Help: "Total number of candidate route cache misses",
		},
	)
	quoteRequestsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_quote_requests_total",
			Help: "Total number of quote requests processed",
		},
	)
	quoteErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sor_quote_errors_total",
			Help: "Total number of quote requests that failed",
		},
	)
)

func init() {
	prometheus.MustRegister(routesCacheHitsCounter)
	prometheus.MustRegister(routesCacheMissesCounter)
	prometheus.MustRegister(quoteRequestsCounter)
	prometheus.MustRegister(quoteErrorsCounter)
}

// cachedPath is the snapshot-independent shape of one candidate route: the
// pool IDs and the hop token sequence. Views are rebuilt against the fresh
// snapshot on every request, so cached paths never carry stale balances.
type cachedPath struct {
	PoolIDs []string
	Tokens  []common.Address
}

type routerUseCaseImpl struct {
	poolsService domain.PoolDataService
	priceService domain.TokenPriceService
	config       domain.RouterConfig
	logger       log.Logger

	routesCache *cache.RoutesCache[[]cachedPath]
}

var _ mvc.RouterUsecase = &routerUseCaseImpl{}

// NewRouterUsecase wires the router with its data dependencies.
func NewRouterUsecase(
	poolsService domain.PoolDataService,
	priceService domain.TokenPriceService,
	config domain.RouterConfig,
	logger log.Logger,
) mvc.RouterUsecase {
	var routesCache *cache.RoutesCache[[]cachedPath]
	if config.RouteCacheEnabled {
		routesCache = cache.New[[]cachedPath](
			config.RouteCacheSize,
			time.Duration(config.RouteCacheExpirySeconds)*time.Second,
		)
	}
	return &routerUseCaseImpl{
		poolsService: poolsService,
		priceService: priceService,
		config:       config,
		logger:       logger,
		routesCache:  routesCache,
	}
}

func (r *routerUseCaseImpl) GetSwaps(
	ctx context.Context,
	tokenIn, tokenOut common.Address,
	kind domain.SwapTypes,
	swapAmount *big.Int,
	opts domain.SwapOptions,
) (domain.SwapInfo, error) {
	quoteRequestsCounter.Inc()

	if tokenIn == tokenOut || swapAmount == nil || swapAmount.Sign() <= 0 {
		return emptySwapInfo(tokenIn, tokenOut, swapAmount), nil
	}
	if opts.MaxPools <= 0 {
		opts.MaxPools = r.config.MaxPools
	}

	records, err := r.poolsService.GetPools(ctx)
	if err != nil {
		quoteErrorsCounter.Inc()
		r.logger.Error("failed to fetch pool snapshot", zap.Error(err))
		return domain.SwapInfo{}, err
	}

	graph := buildPoolGraph(records, opts)
	recordByID := make(map[string]*domain.PoolRecord, len(records))
	for _, record := range records {
		recordByID[record.ID] = record
	}

	candidates := r.candidateRoutes(graph, recordByID, tokenIn, tokenOut, kind, opts.Timestamp)
	if len(candidates) == 0 {
		r.logger.Debug("no candidate routes",
			zap.Stringer("token_in", tokenIn),
			zap.Stringer("token_out", tokenOut),
		)
		return emptySwapInfo(tokenIn, tokenOut, swapAmount), nil
	}

	// The trade amount enters the scaled space through the decimals of the
	// side it is denominated in.
	scaleToken := tokenIn
	if kind == domain.SwapExactOut {
		scaleToken = tokenOut
	}
	decimals, ok := tokenDecimals(records, scaleToken)
	if !ok {
		return emptySwapInfo(tokenIn, tokenOut, swapAmount), nil
	}
	scaledAmount, err := fixpoint.Upscale(swapAmount, fixpoint.ScalingFactor(decimals))
	if err != nil {
		quoteErrorsCounter.Inc()
		return domain.SwapInfo{}, err
	}

	routerConfig := r.config
	routerConfig.MaxPools = opts.MaxPools

	ranked := rankRoutes(candidates, kind)
	solution, err := optimizeSplit(ranked, scaledAmount, kind, routerConfig, r.gasCostFn(ctx, tokenIn, tokenOut, kind, opts))
	if err != nil {
		quoteErrorsCounter.Inc()
		return domain.SwapInfo{}, err
	}

	info := buildSwapInfo(solution, tokenIn, tokenOut, kind, swapAmount)
	r.logger.Info("quote computed",
		zap.Stringer("token_in", tokenIn),
		zap.Stringer("token_out", tokenOut),
		zap.Stringer("kind", kind),
		zap.String("swap_amount", swapAmount.String()),
		zap.String("return_amount", info.ReturnAmount.String()),
		zap.Int("split_routes", len(solution.RoutesOrEmpty())),
	)
	return info, nil
}

// candidateRoutes returns fresh working copies for the pair, consulting the
// structural cache when enabled.
func (r *routerUseCaseImpl) candidateRoutes(
	graph *poolGraph,
	recordByID map[string]*domain.PoolRecord,
	tokenIn, tokenOut common.Address,
	kind domain.SwapTypes,
	timestamp int64,
) []route.RouteImpl {
	if r.routesCache == nil {
		return graph.candidateRoutes(tokenIn, tokenOut)
	}

	key := cache.RouteCacheKey{TokenIn: tokenIn, TokenOut: tokenOut, Kind: kind}
	if paths, ok := r.routesCache.Get(key); ok {
		routesCacheHitsCounter.Inc()
		if rebuilt, ok := rebuildRoutes(paths, recordByID, timestamp); ok {
			return rebuilt
		}
		// Snapshot drifted under the cached structure; fall through to a
		// fresh discovery.
	}
	routesCacheMissesCounter.Inc()

	discovered := graph.candidateRoutes(tokenIn, tokenOut)
	r.routesCache.Set(key, pathsOf(discovered))
	return discovered
}

func pathsOf(routes []route.RouteImpl) []cachedPath {
	paths := make([]cachedPath, len(routes))
	for i, r := range routes {
		path := cachedPath{
			PoolIDs: make([]string, len(r.Pools)),
			Tokens:  make([]common.Address, 0, len(r.Pools)+1),
		}
		path.Tokens = append(path.Tokens, r.Pools[0].GetTokenIn())
		for j, pool := range r.Pools {
			path.PoolIDs[j] = pool.GetID()
			path.Tokens = append(path.Tokens, pool.GetTokenOut())
		}
		paths[i] = path
	}
	return paths
}

func rebuildRoutes(paths []cachedPath, recordByID map[string]*domain.PoolRecord, timestamp int64) ([]route.RouteImpl, bool) {
	routes := make([]route.RouteImpl, 0, len(paths))
	for _, path := range paths {
		hops := make([]domain.RoutablePool, 0, len(path.PoolIDs))
		valid := true
		for i, id := range path.PoolIDs {
			record, ok := recordByID[id]
			if !ok {
				valid = false
				break
			}
			view, err := pools.NewRoutablePool(record, path.Tokens[i], path.Tokens[i+1], timestamp)
			if err != nil {
				valid = false
				break
			}
			hops = append(hops, view)
		}
		if !valid {
			return nil, false
		}
		routes = append(routes, route.NewRoute(hops...))
	}
	return routes, true
}

// gasCostFn prices one route's gas in units of the return-side token. Price
// lookups degrade to a zero cost; a missing gas price disables the charge.
func (r *routerUseCaseImpl) gasCostFn(
	ctx context.Context,
	tokenIn, tokenOut common.Address,
	kind domain.SwapTypes,
	opts domain.SwapOptions,
) func(route.RouteImpl) *big.Int {
	zero := func(route.RouteImpl) *big.Int { return big.NewInt(0) }
	if opts.GasPrice == nil || opts.GasPrice.Sign() == 0 {
		return zero
	}

	returnToken := tokenOut
	if kind == domain.SwapExactOut {
		returnToken = tokenIn
	}
	nativePrice, err := r.priceService.GetNativeAssetPriceInToken(ctx, returnToken)
	if err != nil {
		r.logger.Warn("gas pricing degraded to zero",
			zap.Stringer("token", returnToken),
			zap.Error(err),
		)
		return zero
	}

	// Cost in scaled return-token units: wei * (return token per native).
	weiPerHop := new(big.Int).Mul(new(big.Int).SetUint64(r.config.HopGasUnits), opts.GasPrice)
	return func(rt route.RouteImpl) *big.Int {
		wei := new(big.Int).Mul(weiPerHop, big.NewInt(int64(len(rt.Pools))))
		cost := nativePrice.MulInt(osmomath.NewIntFromBigInt(wei))
		return cost.TruncateInt().BigInt()
	}
}

// tokenDecimals finds the token's native decimals anywhere in the snapshot.
func tokenDecimals(records []*domain.PoolRecord, token common.Address) (uint8, bool) {
	for _, record := range records {
		for _, t := range record.Tokens {
			if t.Address == token {
				return t.Decimals, true
			}
		}
	}
	return 0, false
}

// RoutesOrEmpty lets callers log the split width without a nil check.
func (s *splitSolution) RoutesOrEmpty() []route.RouteImpl {
	if s == nil {
		return nil
	}
	return s.routes
}
