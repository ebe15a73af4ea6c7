/**
 * @description
 * This file contains the HTTP handlers for the trading endpoints.
 *
 * Key features:
 * - `/trade`: Always runs the relay's own pipeline (price, build, sign, submit).
 * - `/order`: Forwards a caller-signed order when the body carries `order` plus venue
 *   headers; otherwise behaves like `/trade`.
 * - Standardized Responses: Failures use `{success, submitted, error}`; validation
 *   failures and venue rejections are 400, anything unexpected is 500.
 */

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poly-pro/clob-relay/internal/services"
)

func tradeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "submitted": false, "error": message})
}

func (server *Server) trade(c *gin.Context) {
	server.handleTrade(c, false)
}

func (server *Server) order(c *gin.Context) {
	server.handleTrade(c, true)
}

func (server *Server) handleTrade(c *gin.Context, allowPassThrough bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			tradeError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		tradeError(c, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	parsed, err := ParseTradeRequest(body, allowPassThrough)
	if err != nil {
		server.logger.Warn("invalid trade request body", "error", err)
		tradeError(c, http.StatusBadRequest, err.Error())
		return
	}

	switch req := parsed.(type) {
	case *PassThroughOrder:
		server.forwardOrder(c, req)
	case *TradeParameters:
		server.executeTrade(c, req)
	}
}

/**
 * @description
 * executeTrade runs the relay pipeline and maps its outcome onto HTTP.
 *
 * @notes
 * - A venue rejection after all attempts is a 400 carrying the last error text,
 *   finalPrice and tickSize, so callers can see what was tried.
 */
func (server *Server) executeTrade(c *gin.Context, req *TradeParameters) {
	req.RequestID = c.GetString(requestIDKey)

	result, err := server.trades.ExecuteTrade(c.Request.Context(), req.TradeRequest)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			server.logger.Warn("rejected trade request", "request_id", req.RequestID, "error", err)
			tradeError(c, http.StatusBadRequest, err.Error())
			return
		}
		server.logger.Error("trade failed", "request_id", req.RequestID, "error", err)
		tradeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (server *Server) forwardOrder(c *gin.Context, req *PassThroughOrder) {
	result, err := server.trades.ForwardOrder(c.Request.Context(), req.Order, req.Headers)
	if err != nil {
		server.logger.Error("order forwarding failed", "request_id", c.GetString(requestIDKey), "error", err)
		tradeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(result.Status, result)
}

// forward handles /proxy: an arbitrary outbound call made from the relay.
func (server *Server) forward(c *gin.Context) {
	var req services.ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody.Error()})
		return
	}

	result, err := server.proxy.Forward(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(result.Status, result)
}
