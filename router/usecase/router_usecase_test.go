package usecase_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"
	"github.com/stretchr/testify/suite"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/domain/mvc"
	"github.com/batchswap/sor/log"
	routerusecase "github.com/batchswap/sor/router/usecase"
)

var (
	tokenUSDC = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenWETH = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenDAI  = common.HexToAddress("0x0000000000000000000000000000000000000003")
	tokenBDAI = common.HexToAddress("0x0000000000000000000000000000000000000004")
	tokenBUSD = common.HexToAddress("0x0000000000000000000000000000000000000005")
)

type RouterTestSuite struct {
	suite.Suite
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

type mockPoolService struct {
	records []*domain.PoolRecord
}

func (m *mockPoolService) GetPools(ctx context.Context) ([]*domain.PoolRecord, error) {
	return m.records, nil
}

type mockPriceService struct {
	price osmomath.Dec
}

func (m *mockPriceService) GetNativeAssetPriceInToken(ctx context.Context, token common.Address) (osmomath.Dec, error) {
	return m.price, nil
}

func fix(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number: " + s)
	}
	return v
}

func weightedRecord(id string, a, b common.Address, balA, balB string, decA, decB uint8) *domain.PoolRecord {
	return &domain.PoolRecord{
		ID:          id,
		Type:        domain.Weighted,
		SwapFee:     fix("2500000000000000"), // 0.25%
		SwapEnabled: true,
		Tokens: []domain.TokenRecord{
			{Address: a, Balance: fix(balA), Decimals: decA, Weight: fix("500000000000000000")},
			{Address: b, Balance: fix(balB), Decimals: decB, Weight: fix("500000000000000000")},
		},
	}
}

func (s *RouterTestSuite) newRouter(records []*domain.PoolRecord) mvc.RouterUsecase {
	cfg := domain.DefaultRouterConfig()
	cfg.RouteCacheEnabled = false
	return routerusecase.NewRouterUsecase(
		&mockPoolService{records: records},
		&mockPriceService{price: osmomath.MustNewDecFromStr("2000")},
		cfg,
		&log.NoOpLogger{},
	)
}

// TestDirectWeightedSwap routes 1 WETH into a single 50/50 pool and checks
// the settlement list shape and amount conservation.
func (s *RouterTestSuite) TestDirectWeightedSwap() {
	records := []*domain.PoolRecord{
		weightedRecord("0xp1", tokenWETH, tokenUSDC,
			"1000000000000000000000", // 1000 WETH, 18 decimals
			"2000000000000000",       // 2,000,000 USDC, 6 decimals
			18, 6),
	}
	router := s.newRouter(records)

	amountIn := fix("1000000000000000000") // 1 WETH
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, amountIn, domain.SwapOptions{})
	s.Require().NoError(err)

	s.Require().Len(info.Swaps, 1)
	s.Require().Equal("0xp1", info.Swaps[0].PoolID)
	s.Require().Equal(amountIn.String(), info.Swaps[0].Amount)
	s.Require().Equal(info.TokenAddresses[info.Swaps[0].AssetInIndex], tokenWETH)
	s.Require().Equal(info.TokenAddresses[info.Swaps[0].AssetOutIndex], tokenUSDC)

	// ~2000 USDC minus fee and slippage, in 6-decimal units.
	s.Require().True(info.ReturnAmount.Cmp(fix("1980000000")) > 0, "return=%s", info.ReturnAmount)
	s.Require().True(info.ReturnAmount.Cmp(fix("2000000000")) < 0)
}

// TestTwoHopRoute forces a hop through USDC.
func (s *RouterTestSuite) TestTwoHopRoute() {
	records := []*domain.PoolRecord{
		weightedRecord("0xp1", tokenWETH, tokenUSDC,
			"1000000000000000000000", "2000000000000000", 18, 6),
		weightedRecord("0xp2", tokenUSDC, tokenDAI,
			"2000000000000000", "2000000000000000000000000", 6, 18),
	}
	router := s.newRouter(records)

	amountIn := fix("1000000000000000000")
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenDAI, domain.SwapExactIn, amountIn, domain.SwapOptions{})
	s.Require().NoError(err)

	s.Require().Len(info.Swaps, 2)
	s.Require().Equal(amountIn.String(), info.Swaps[0].Amount)
	s.Require().Equal("0", info.Swaps[1].Amount, "second hop must chain on the first hop's output")

	s.Require().True(info.ReturnAmount.Cmp(fix("1900000000000000000000")) > 0, "return=%s", info.ReturnAmount)
}

// TestDisabledPoolYieldsNoRoute: the only pool is paused, so the valid
// outcome is an empty SwapInfo, not an error.
func (s *RouterTestSuite) TestDisabledPoolYieldsNoRoute() {
	record := weightedRecord("0xp1", tokenWETH, tokenUSDC,
		"1000000000000000000000", "2000000000000000", 18, 6)
	record.SwapEnabled = false
	router := s.newRouter([]*domain.PoolRecord{record})

	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("1000000000000000000"), domain.SwapOptions{})
	s.Require().NoError(err)
	s.Require().Empty(info.Swaps)
	s.Require().Equal("0", info.ReturnAmount.String())
}

// TestLbpOutsideScheduleYieldsNoRoute mirrors the disabled-pool outcome for
// a bootstrapping pool queried outside its weight schedule.
func (s *RouterTestSuite) TestLbpOutsideScheduleYieldsNoRoute() {
	record := weightedRecord("0xlbp", tokenWETH, tokenUSDC,
		"1000000000000000000000", "2000000000000000", 18, 6)
	record.Type = domain.LiquidityBootstrapping
	record.StartTime = 1000
	record.EndTime = 2000
	router := s.newRouter([]*domain.PoolRecord{record})

	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("1000000000000000000"), domain.SwapOptions{Timestamp: 5000})
	s.Require().NoError(err)
	s.Require().Empty(info.Swaps)

	// Inside the schedule the pool trades.
	info, err = router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("1000000000000000000"), domain.SwapOptions{Timestamp: 1500})
	s.Require().NoError(err)
	s.Require().Len(info.Swaps, 1)
}

// TestMultiPathSplit gives two parallel pools with different depths; a
// large trade should split across both and beat the best single-pool fill.
func (s *RouterTestSuite) TestMultiPathSplit() {
	records := []*domain.PoolRecord{
		weightedRecord("0xdeep", tokenWETH, tokenUSDC,
			"2000000000000000000000", "4000000000000000", 18, 6),
		weightedRecord("0xshallow", tokenWETH, tokenUSDC,
			"500000000000000000000", "1000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	amountIn := fix("100000000000000000000") // 100 WETH
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, amountIn, domain.SwapOptions{})
	s.Require().NoError(err)

	s.Require().Len(info.Swaps, 2, "large trade should split across both pools")

	// Native input amounts conserve the request exactly.
	total := new(big.Int)
	for _, swap := range info.Swaps {
		amount, ok := new(big.Int).SetString(swap.Amount, 10)
		s.Require().True(ok)
		total.Add(total, amount)
	}
	s.Require().Equal(0, total.Cmp(amountIn))

	// The split must beat sending everything through the deep pool alone.
	soloInfo, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, amountIn, domain.SwapOptions{MaxPools: 1})
	s.Require().NoError(err)
	s.Require().True(info.ReturnAmount.Cmp(soloInfo.ReturnAmount) > 0)
}

// TestGasCostPrunesMarginalSplit: with an enormous gas price the second
// path's marginal improvement cannot pay for its hop, so the router
// collapses back to a single path.
func (s *RouterTestSuite) TestGasCostPrunesMarginalSplit() {
	records := []*domain.PoolRecord{
		weightedRecord("0xdeep", tokenWETH, tokenUSDC,
			"2000000000000000000000", "4000000000000000", 18, 6),
		weightedRecord("0xshallow", tokenWETH, tokenUSDC,
			"500000000000000000000", "1000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	amountIn := fix("10000000000000000000") // 10 WETH
	opts := domain.SwapOptions{GasPrice: fix("10000000000000000")}
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, amountIn, opts)
	s.Require().NoError(err)
	s.Require().Len(info.Swaps, 1)

	// The net return must account for the gas charge.
	s.Require().True(info.ReturnAmountConsideringFees.Cmp(info.ReturnAmount) < 0)
}

// TestExactOutQuote requests an exact output and verifies reverse hop
// ordering and that the input covers a subsequent exact-in quote.
func (s *RouterTestSuite) TestExactOutQuote() {
	records := []*domain.PoolRecord{
		weightedRecord("0xp1", tokenWETH, tokenUSDC,
			"1000000000000000000000", "2000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	amountOut := fix("2000000000") // 2000 USDC
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactOut, amountOut, domain.SwapOptions{})
	s.Require().NoError(err)

	s.Require().Len(info.Swaps, 1)
	s.Require().Equal(amountOut.String(), info.Swaps[0].Amount)

	// Slightly more than 1 WETH.
	s.Require().True(info.ReturnAmount.Cmp(fix("1000000000000000000")) > 0, "in=%s", info.ReturnAmount)
	s.Require().True(info.ReturnAmount.Cmp(fix("1020000000000000000")) < 0, "in=%s", info.ReturnAmount)
}

// TestBoostedLinearChain routes DAI to a boosted BPT through a linear pool
// and a composable stable pool, exercising phantom-BPT path discovery.
func (s *RouterTestSuite) TestBoostedLinearChain() {
	linearPool := &domain.PoolRecord{
		ID:           "0xlinear",
		Type:         domain.Linear,
		SwapFee:      fix("10000000000000000"),
		SwapEnabled:  true,
		TotalShares:  fix("2500000000000000000000"),
		MainIndex:    0,
		WrappedIndex: 1,
		BptIndex:     2,
		LowerTarget:  fix("1000000000000000000000"),
		UpperTarget:  fix("2000000000000000000000"),
		Tokens: []domain.TokenRecord{
			{Address: tokenDAI, Balance: fix("1500000000000000000000"), Decimals: 18},
			{Address: tokenWETH, Balance: fix("1000000000000000000000"), Decimals: 18},
			{Address: tokenBDAI, Balance: fix("5000000000000000000000"), Decimals: 18},
		},
	}
	boostedPool := &domain.PoolRecord{
		ID:          "0xboosted",
		Type:        domain.ComposableStable,
		SwapFee:     fix("400000000000000"),
		SwapEnabled: true,
		Amp:         fix("200000"),
		TotalShares: fix("4000000000000000000000"),
		BptIndex:    0,
		Tokens: []domain.TokenRecord{
			{Address: tokenBUSD, Balance: fix("4000000000000000000000"), Decimals: 18},
			{Address: tokenBDAI, Balance: fix("2000000000000000000000"), Decimals: 18},
			{Address: tokenUSDC, Balance: fix("2000000000000000000000"), Decimals: 18},
		},
	}
	router := s.newRouter([]*domain.PoolRecord{linearPool, boostedPool})

	amountIn := fix("100000000000000000000") // 100 DAI
	info, err := router.GetSwaps(context.Background(), tokenDAI, tokenUSDC, domain.SwapExactIn, amountIn, domain.SwapOptions{})
	s.Require().NoError(err)

	s.Require().Len(info.Swaps, 2)
	s.Require().Equal("0xlinear", info.Swaps[0].PoolID)
	s.Require().Equal("0xboosted", info.Swaps[1].PoolID)
	s.Require().Equal(amountIn.String(), info.Swaps[0].Amount)
	s.Require().Equal("0", info.Swaps[1].Amount)

	// Near parity across the boosted chain.
	s.Require().True(info.ReturnAmount.Cmp(fix("95000000000000000000")) > 0, "return=%s", info.ReturnAmount)
}

// TestOverLimitRequestYieldsNoRoute: a request larger than the only pool's
// trade limit must come back as the empty outcome rather than an over-limit
// allocation.
func (s *RouterTestSuite) TestOverLimitRequestYieldsNoRoute() {
	records := []*domain.PoolRecord{
		weightedRecord("0xp1", tokenWETH, tokenUSDC,
			"1000000000000000000000", "2000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	// 450 WETH against a 1000 WETH balance exceeds the 30% cap.
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("450000000000000000000"), domain.SwapOptions{})
	s.Require().NoError(err)
	s.Require().Empty(info.Swaps)
	s.Require().Equal("0", info.ReturnAmount.String())
}

// TestSplitRespectsPathLimits pushes a request past any single pool's cap;
// the split must cover it without any path exceeding its own limit.
func (s *RouterTestSuite) TestSplitRespectsPathLimits() {
	records := []*domain.PoolRecord{
		weightedRecord("0xdeep", tokenWETH, tokenUSDC,
			"2000000000000000000000", "4000000000000000", 18, 6),
		weightedRecord("0xshallow", tokenWETH, tokenUSDC,
			"500000000000000000000", "1000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	// 700 WETH: over the deep pool's 600 cap alone, under the 750 aggregate.
	amountIn := fix("700000000000000000000")
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, amountIn, domain.SwapOptions{})
	s.Require().NoError(err)
	s.Require().Len(info.Swaps, 2)

	limits := map[string]*big.Int{
		"0xdeep":    fix("600000000000000000000"),
		"0xshallow": fix("150000000000000000000"),
	}
	total := new(big.Int)
	for _, swap := range info.Swaps {
		amount, ok := new(big.Int).SetString(swap.Amount, 10)
		s.Require().True(ok)
		s.Require().True(amount.Cmp(limits[swap.PoolID]) <= 0,
			"pool %s allocation %s exceeds its limit", swap.PoolID, swap.Amount)
		total.Add(total, amount)
	}
	s.Require().Equal(0, total.Cmp(amountIn))
}

// TestPoolTypeFilter restricts candidates to the requested families.
func (s *RouterTestSuite) TestPoolTypeFilter() {
	records := []*domain.PoolRecord{
		weightedRecord("0xp1", tokenWETH, tokenUSDC,
			"1000000000000000000000", "2000000000000000", 18, 6),
	}
	router := s.newRouter(records)

	opts := domain.SwapOptions{PoolTypeFilter: []domain.PoolType{domain.Stable}}
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("1000000000000000000"), opts)
	s.Require().NoError(err)
	s.Require().Empty(info.Swaps)

	opts.PoolTypeFilter = []domain.PoolType{domain.Weighted}
	info, err = router.GetSwaps(context.Background(), tokenWETH, tokenUSDC, domain.SwapExactIn, fix("1000000000000000000"), opts)
	s.Require().NoError(err)
	s.Require().Len(info.Swaps, 1)
}

// TestSameTokenRejected returns the empty outcome for degenerate input.
func (s *RouterTestSuite) TestSameTokenRejected() {
	router := s.newRouter(nil)
	info, err := router.GetSwaps(context.Background(), tokenWETH, tokenWETH, domain.SwapExactIn, fix("1"), domain.SwapOptions{})
	s.Require().NoError(err)
	s.Require().Empty(info.Swaps)
}
