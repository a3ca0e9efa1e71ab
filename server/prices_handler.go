package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PricesHandler struct {
	prices PriceService
	logger *zap.Logger
}

func NewPricesHandler(prices PriceService, logger *zap.Logger) *PricesHandler {
	return &PricesHandler{
		prices: prices,
		logger: logger,
	}
}

func (h *PricesHandler) Get(c *gin.Context) {
	if h.prices == nil {
		unavailable(c, "price feed")
		return
	}

	quote, err := h.prices.Price(c.Request.Context(), c.Param(SymbolKey), c.Query("vs"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    quote.Symbol,
		"vs":        quote.VsCurrency,
		"price":     quote.Price.String(),
		"fetchedAt": quote.FetchedAt,
	})
}
