package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/batchswap/sor/chain"
	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/log"
)

type SystemHandler struct {
	logger      log.Logger
	chainClient chain.Client
	poolsClient domain.PoolDataService
	config      domain.Config
}

// NewSystemHandler will initialize the /debug/pprof resources endpoint
func NewSystemHandler(e *echo.Echo, config domain.Config, logger log.Logger, chainClient chain.Client, poolsClient domain.PoolDataService) {
	handler := &SystemHandler{
		logger:      logger,
		chainClient: chainClient,
		poolsClient: poolsClient,
		config:      config,
	}

	// if debug mode, enable additional profiles that are too intensive
	// for production.
	if !config.LoggerIsProduction {
		runtime.SetMutexProfileFraction(2)
		runtime.SetBlockProfileRate(2)
	}

	e.GET("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))
	e.GET("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	e.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	e.GET("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))

	e.GET("/healthcheck", handler.GetHealthStatus)
	e.GET("/config", handler.GetConfig)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// GetConfig returns the active config for the router service
func (h *SystemHandler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.config)
}

// GetHealthStatus checks the chain node and the pool snapshot endpoint. The
// chain client is optional; without one only the snapshot source is checked.
func (h *SystemHandler) GetHealthStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status := map[string]string{
		"pool_data_status": "running",
	}

	if h.chainClient != nil {
		height, err := h.chainClient.GetLatestHeight(ctx)
		if err != nil {
			h.logger.Error("error checking chain node status", zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "error connecting to the chain node")
		}
		status["chain_status"] = "running"
		status["chain_latest_height"] = fmt.Sprint(height)
	}

	if err := h.checkPoolData(ctx); err != nil {
		h.logger.Error("error checking pool data source", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "error fetching pool data")
	}

	return c.JSON(http.StatusOK, status)
}

func (h *SystemHandler) checkPoolData(ctx context.Context) error {
	_, err := h.poolsClient.GetPools(ctx)
	return err
}
