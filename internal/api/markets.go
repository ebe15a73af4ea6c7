package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poly-pro/clob-relay/internal/services"
)

// getMarket returns the tick size, neg-risk flag and midpoint the relay would price a
// trade on the token with.
func (server *Server) getMarket(c *gin.Context) {
	info, err := server.trades.MarketInfo(c.Request.Context(), c.Param("tokenId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		case errors.Is(err, services.ErrMarketData):
			server.logger.Warn("market lookup failed", "token_id", c.Param("tokenId"), "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "Failed to fetch market data"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": info})
}
