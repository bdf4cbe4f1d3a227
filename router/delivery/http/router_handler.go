package http

import (
	"context"
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	deliveryhttp "github.com/batchswap/sor/delivery/http"
	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/domain/mvc"
	"github.com/batchswap/sor/log"
	"github.com/batchswap/sor/router/types"
)

// GasPriceSuggester supplies a gas price when the request does not carry one.
// A nil suggester or a failed suggestion leaves gas costing disabled for the
// request.
type GasPriceSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// RouterHandler represent the httphandler for the router
type RouterHandler struct {
	RUsecase     mvc.RouterUsecase
	gasSuggester GasPriceSuggester
	logger       log.Logger
}

const routerResource = "/sor"

func formatRouterResource(resource string) string {
	return routerResource + resource
}

// NewRouterHandler will initialize the /sor resources endpoint
func NewRouterHandler(e *echo.Echo, us mvc.RouterUsecase, gasSuggester GasPriceSuggester, logger log.Logger) {
	handler := &RouterHandler{
		RUsecase:     us,
		gasSuggester: gasSuggester,
		logger:       logger,
	}
	e.GET(formatRouterResource("/quote"), handler.GetQuote)
}

// @Summary Swap Quote
// @Description returns the best batch-swap instruction list for the given
// tokenIn, tokenOut and amount. For swapType ExactIn the amount is the input
// in tokenIn decimals; for ExactOut it is the desired output in tokenOut
// decimals. An empty swaps list means no viable route was found.
// @ID get-sor-quote
// @Produce json
// @Param tokenIn query string true "Hex address of the token being sold."
// @Param tokenOut query string true "Hex address of the token being bought."
// @Param amount query string true "Trade amount as a decimal integer string."
// @Param swapType query string false "ExactIn (default) or ExactOut."
// @Param gasPrice query string false "Gas price in wei used to charge each pool hop against the return amount."
// @Param maxPools query int false "Cap on the number of distinct pools across all split paths."
// @Param timestamp query int false "Unix seconds for schedule-gated pools; zero disables the check."
// @Param poolTypes query string false "Comma-separated pool families to restrict routing to."
// @Success 200 {object} domain.SwapInfo "The computed batch-swap instruction list"
// @Router /sor/quote [get]
func (a *RouterHandler) GetQuote(c echo.Context) error {
	ctx, span := deliveryhttp.Span(c)

	var request types.GetQuoteRequest
	if err := deliveryhttp.ParseRequest(c, &request); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}

	opts := request.SwapOptions()
	if opts.GasPrice == nil && a.gasSuggester != nil {
		gasPrice, err := a.gasSuggester.SuggestGasPrice(ctx)
		if err != nil {
			a.logger.Warn("gas price suggestion failed", zap.Error(err))
		} else {
			opts.GasPrice = gasPrice
		}
	}

	info, err := a.RUsecase.GetSwaps(ctx, request.TokenIn, request.TokenOut, request.SwapType, request.Amount, opts)
	if err != nil {
		deliveryhttp.RecordSpanError(ctx, span, err)
		return c.JSON(domain.GetStatusCode(err), domain.ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, info)
}
