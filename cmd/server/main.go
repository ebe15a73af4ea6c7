/**
 * @description
 * This is the main entry point for the CLOB relay service.
 * It is responsible for initializing and starting the relay's HTTP server.
 *
 * Key features:
 * - Configuration Loading: Loads environment variables from a .env.local or .env file.
 * - Pipeline Wiring: Builds the CLOB client, credential cache, order builder and
 *   submission engine and hands them to the HTTP server.
 * - Trade Events: Publishes trade outcomes to Redis when REDIS_URL is set.
 * - Graceful Shutdown: Handles interrupt signals (like Ctrl+C) to shut down the server gracefully.
 */

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poly-pro/clob-relay/internal/api"
	"github.com/poly-pro/clob-relay/internal/config"
	"github.com/poly-pro/clob-relay/internal/events"
	"github.com/poly-pro/clob-relay/internal/polymarket"
	"github.com/poly-pro/clob-relay/internal/services"
	"github.com/rs/cors"
)

func main() {
	// Initialize a structured logger for better log management.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ------------------------------------------------------------------
	// Configuration Loading
	// ------------------------------------------------------------------
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("cannot load config", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded successfully",
		"clob_api_url", cfg.CLOBAPIURL,
		"chain_id", cfg.ChainID,
		"has_wallet", cfg.PrivateKey != "",
		"has_proxy", cfg.ProxyWalletAddress != "",
		"has_l2_creds", cfg.HasStaticCredentials(),
	)
	if cfg.PrivateKey == "" {
		logger.Warn("POLYMARKET_PRIVATE_KEY not set, trades will fail until it is configured")
	}
	if cfg.RelaySecret == "" {
		logger.Warn("RELAY_SECRET not set, trading routes are unauthenticated")
	}

	// ------------------------------------------------------------------
	// Trade Events
	// ------------------------------------------------------------------
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisPublisher, err := events.NewRedisPublisher(context.Background(), cfg.RedisURL, cfg.RedisTradeChannel, logger)
		if err != nil {
			logger.Error("cannot connect to redis", "error", err)
			os.Exit(1)
		}
		publisher = redisPublisher
		logger.Info("trade events enabled", "channel", redisPublisher.Channel())
	}

	// ------------------------------------------------------------------
	// Pipeline Initialization
	// ------------------------------------------------------------------
	clobClient := polymarket.NewCLOBAPIClient(cfg.CLOBAPIURL, cfg.ChainID, logger)
	credentialCache := services.NewCredentialCache(clobClient, services.CredentialCacheConfig{
		PrivateKey:         cfg.PrivateKey,
		ProxyWalletAddress: cfg.ProxyWalletAddress,
		StaticCredentials: polymarket.APICredentials{
			APIKey:     cfg.CLOBAPIKey,
			Secret:     cfg.CLOBAPISecret,
			Passphrase: cfg.CLOBAPIPassphrase,
		},
	}, logger)
	orderBuilder := services.NewOrderBuilder(cfg.Domain, cfg.FeeRateBps, cfg.OrderExpiration)
	submissionEngine := services.NewSubmissionEngine(orderBuilder, services.DefaultSubmitPolicy(), logger)
	tradeService := services.NewTradeService(credentialCache, clobClient, submissionEngine, publisher, logger)

	server := api.NewServer(cfg, tradeService, services.NewForwarder(logger), publisher, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Relay-Secret", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler.Handler(server.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ------------------------------------------------------------------
	// Start Server & Handle Graceful Shutdown
	// ------------------------------------------------------------------
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting server", "address", httpServer.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdownChannel:
		logger.Info("shutdown signal received", "signal", sig)

		// In-flight trades may still be inside their retry window.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}

		if err := server.Close(); err != nil {
			logger.Error("failed to close server resources", "error", err)
		}

		logger.Info("server shutdown complete")
	}

	logger.Info("application has shut down")
}
