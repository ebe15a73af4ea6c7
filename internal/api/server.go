/**
 * @description
 * This file defines the HTTP server for the CLOB relay.
 * It initializes the Gin router and registers the relay's routes and middleware.
 *
 * Key features:
 * - Router Setup: Uses the Gin framework for routing and default middleware (logger, recovery).
 * - Route Definitions: `/health` is public; `/trade`, `/order`, `/proxy` and
 *   `/markets/:tokenId` sit behind the relay-secret middleware.
 * - Request IDs: Every request gets an `X-Request-ID`, echoed in the response and
 *   carried into trade logs and events.
 *
 * @dependencies
 * - github.com/gin-gonic/gin: The web framework used for routing and handling HTTP requests.
 * - github.com/google/uuid: For request identifiers.
 */

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poly-pro/clob-relay/internal/auth"
	"github.com/poly-pro/clob-relay/internal/config"
	"github.com/poly-pro/clob-relay/internal/events"
	"github.com/poly-pro/clob-relay/internal/services"
)

const (
	// maxBodyBytes caps inbound JSON bodies.
	maxBodyBytes = 1 << 20

	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// TradeExecutor is the trade pipeline as seen by the handlers.
type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, req services.TradeRequest) (services.SubmissionResult, error)
	ForwardOrder(ctx context.Context, order json.RawMessage, headers map[string]string) (*services.ForwardResult, error)
	MarketInfo(ctx context.Context, tokenID string) (*services.MarketInfo, error)
}

// Proxy performs arbitrary outbound calls for /proxy.
type Proxy interface {
	Forward(ctx context.Context, req services.ProxyRequest) (*services.ProxyResult, error)
}

// Server serves HTTP requests for the relay.
type Server struct {
	config    config.Config
	trades    TradeExecutor
	proxy     Proxy
	publisher events.Publisher
	logger    *slog.Logger
	Router    *gin.Engine
}

/**
 * @description
 * NewServer creates a new HTTP server and sets up routing.
 *
 * @param cfg The relay configuration; only presence flags and the secret are read here.
 * @param trades The trade pipeline.
 * @param proxy The /proxy forwarder.
 * @param publisher The trade event publisher, closed with the server. May be nil.
 * @returns A pointer to a new Server instance.
 */
func NewServer(cfg config.Config, trades TradeExecutor, proxy Proxy, publisher events.Publisher, logger *slog.Logger) *Server {
	server := &Server{
		config:    cfg,
		trades:    trades,
		proxy:     proxy,
		publisher: publisher,
		logger:    logger,
	}

	// Initialize the Gin router with default middleware (logger and recovery)
	router := gin.Default()
	router.Use(requestIDMiddleware(), bodyLimitMiddleware(maxBodyBytes))

	// ------------------------------------------------------------------
	// Route Definitions
	// ------------------------------------------------------------------
	router.GET("/health", server.health)

	protected := router.Group("/")
	protected.Use(auth.NewRelayAuthMiddleware(cfg.RelaySecret))
	{
		protected.POST("/trade", server.trade)
		protected.POST("/order", server.order)
		protected.POST("/proxy", server.forward)
		protected.GET("/markets/:tokenId", server.getMarket)
	}

	server.Router = router
	return server
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ts":         time.Now().UnixMilli(),
		"hasWallet":  s.config.PrivateKey != "",
		"hasProxy":   s.config.ProxyWalletAddress != "",
		"hasL2Creds": s.config.HasStaticCredentials(),
	})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

/**
 * @description
 * Close closes all connections and resources held by the server.
 * This should be called during graceful shutdown of the application.
 */
func (s *Server) Close() error {
	if s.publisher != nil {
		return s.publisher.Close()
	}
	return nil
}
