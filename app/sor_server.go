package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/batchswap/sor/chain"
	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
	"github.com/batchswap/sor/middleware"
	poolsUseCase "github.com/batchswap/sor/pools/usecase"
	routerHttpDelivery "github.com/batchswap/sor/router/delivery/http"
	routerUseCase "github.com/batchswap/sor/router/usecase"
	systemhttpdelivery "github.com/batchswap/sor/system/delivery/http"
	tokensUseCase "github.com/batchswap/sor/tokens/usecase"
)

// SmartOrderRouterServer defines the interface for the quoting server. It
// wires the pool snapshot source, the pricing source and the router use case
// behind an HTTP surface.
type SmartOrderRouterServer interface {
	GetLogger() log.Logger
	Shutdown(context.Context) error
	Start(context.Context) error
}

type smartOrderRouterServer struct {
	e       *echo.Echo
	address string
	logger  log.Logger
}

const poolSnapshotTTL = 5 * time.Second

// GetLogger implements SmartOrderRouterServer.
func (s *smartOrderRouterServer) GetLogger() log.Logger {
	return s.logger
}

// Shutdown implements SmartOrderRouterServer.
func (s *smartOrderRouterServer) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Start implements SmartOrderRouterServer.
func (s *smartOrderRouterServer) Start(context.Context) error {
	s.logger.Info("Starting smart order router server", zap.String("address", s.address))
	return s.e.Start(s.address)
}

// NewSmartOrderRouterServer creates the server from the config.
func NewSmartOrderRouterServer(config domain.Config, logger log.Logger) (SmartOrderRouterServer, error) {
	// Setup echo server
	e := echo.New()
	corsConfig := config.CORS
	if corsConfig == nil {
		corsConfig = DefaultConfig.CORS
	}
	goMiddleware := middleware.InitMiddleware(corsConfig)
	e.Use(goMiddleware.CORS)
	e.Use(goMiddleware.InstrumentMiddleware)
	e.Use(goMiddleware.TraceWithParamsMiddleware("sor"))

	poolsService := poolsUseCase.NewPoolsUsecase(config.PoolDataEndpoint, poolSnapshotTTL, logger)
	priceService := tokensUseCase.NewTokensUsecase(config.TokenPriceEndpoint, logger)

	routerConfig := domain.DefaultRouterConfig()
	if config.Router != nil {
		routerConfig = *config.Router
	}
	routerService := routerUseCase.NewRouterUsecase(poolsService, priceService, routerConfig, logger)

	// The chain client is optional; without it requests must carry their own
	// gas price to enable gas costing.
	var chainClient chain.Client
	if config.ChainRPCEndpoint != "" {
		var err error
		chainClient, err = chain.NewClient(config.ChainRPCEndpoint)
		if err != nil {
			return nil, err
		}
	}

	routerHttpDelivery.NewRouterHandler(e, routerService, chainClient, logger)
	systemhttpdelivery.NewSystemHandler(e, config, logger, chainClient, poolsService)

	return &smartOrderRouterServer{
		e:       e,
		address: config.ServerAddress,
		logger:  logger,
	}, nil
}
