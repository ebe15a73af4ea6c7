/**
 * @description
 * This service runs the relay's trade pipeline: it validates a simplified trade
 * request, reads the market's tick size and midpoint, normalizes the price and hands
 * the order to the submission engine. It also forwards caller-signed orders verbatim.
 *
 * Key features:
 * - Early Validation: Malformed requests are rejected before any network call.
 * - Market Defaults: A failed tick size lookup falls back to 0.01 and a failed
 *   midpoint lookup to 0.5; neither aborts the trade.
 * - Trade Events: Every outcome is handed to the event publisher, best effort.
 *
 * @dependencies
 * - github.com/poly-pro/clob-relay/internal/polymarket: Venue client.
 * - github.com/poly-pro/clob-relay/internal/events: Trade event publisher.
 */

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/poly-pro/clob-relay/internal/events"
	"github.com/poly-pro/clob-relay/internal/polymarket"
)

// ClientProvider yields the authenticated venue client for the configured identity.
type ClientProvider interface {
	GetAuthedClient(ctx context.Context) (*polymarket.AuthedClient, error)
}

// TradeRequest is a simplified trade as received from a caller.
// A zero Quantity means the caller gave none; a nil Price means the midpoint is used.
type TradeRequest struct {
	RequestID string
	TokenID   string
	Side      string
	Quantity  float64
	Price     *float64
	OrderType string
}

// Validate rejects requests the pipeline cannot act on.
func (r TradeRequest) Validate() error {
	if r.TokenID == "" || r.Side == "" || r.Quantity == 0 {
		return validationErrorf("Missing: tokenId, side, amount/size")
	}
	if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) || r.Quantity < 0 {
		return validationErrorf("Invalid amount/size")
	}
	return nil
}

// ForwardResult is the venue's answer to a pass-through order.
type ForwardResult struct {
	Success bool    `json:"success"`
	Status  int     `json:"status"`
	Data    any     `json:"data"`
	OrderID *string `json:"orderID"`
}

// MarketInfo is the per-token market data the relay prices against.
type MarketInfo struct {
	TokenID      string   `json:"tokenId"`
	TickSize     string   `json:"tickSize"`
	NegRisk      bool     `json:"negRisk"`
	MinOrderSize string   `json:"minOrderSize,omitempty"`
	Midpoint     *float64 `json:"midpoint"`
}

// marketData is the read side of the venue used for pricing.
type marketData interface {
	GetOrderBook(ctx context.Context, tokenID string) (*polymarket.OrderBookSummary, error)
	GetMidpoint(ctx context.Context, tokenID string) (float64, error)
}

// TradeService wires the pipeline components together.
type TradeService struct {
	clients   ClientProvider
	clob      *polymarket.CLOBAPIClient
	engine    *SubmissionEngine
	publisher events.Publisher
	logger    *slog.Logger
}

// NewTradeService creates a TradeService. A nil publisher disables trade events.
func NewTradeService(clients ClientProvider, clob *polymarket.CLOBAPIClient, engine *SubmissionEngine, publisher events.Publisher, logger *slog.Logger) *TradeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TradeService{
		clients:   clients,
		clob:      clob,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

/**
 * @description
 * ExecuteTrade runs one trade request through the full pipeline.
 *
 * @param req The caller's trade request.
 * @returns The submission result. A result with Success false is a venue-side
 *          failure after all attempts.
 * @returns An ErrValidation error for malformed requests, an ErrConfiguration error
 *          when no signing identity is set up, or the credential error.
 */
func (s *TradeService) ExecuteTrade(ctx context.Context, req TradeRequest) (SubmissionResult, error) {
	if err := req.Validate(); err != nil {
		return SubmissionResult{}, err
	}
	tokenID, err := NormalizeTokenID(req.TokenID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if _, ok := new(big.Int).SetString(tokenID, 10); !ok {
		return SubmissionResult{}, validationErrorf("Invalid tokenId: %q", req.TokenID)
	}

	client, err := s.clients.GetAuthedClient(ctx)
	if err != nil {
		return SubmissionResult{}, err
	}

	tickSize, negRisk := s.tickSize(ctx, client, tokenID)
	price := s.price(ctx, client, tokenID, req.Price)

	params := OrderParams{
		TokenID:   tokenID,
		Side:      ParseSide(req.Side),
		Size:      math.Max(MinOrderSize, req.Quantity),
		Price:     RoundToTick(price, tickSize),
		OrderType: ParseOrderType(req.OrderType),
		NegRisk:   negRisk,
	}

	s.logger.Info("executing trade",
		"request_id", req.RequestID,
		"token_id", tokenID,
		"side", params.Side.String(),
		"size", OrderSize(params.Size).StringFixed(2),
		"price", params.Price,
		"tick_size", tickSize,
		"order_type", params.OrderType,
	)

	result := s.engine.Submit(ctx, client, params, tickSize)

	s.publish(ctx, events.TradeEvent{
		RequestID: req.RequestID,
		TokenID:   tokenID,
		Side:      params.Side.String(),
		OrderType: string(params.OrderType),
		Price:     result.FinalPrice,
		TickSize:  result.TickSize,
		Size:      result.Size,
		Success:   result.Success,
		OrderID:   result.OrderID,
		Attempts:  result.Attempt,
		Error:     result.Error,
	})

	return result, nil
}

func (s *TradeService) tickSize(ctx context.Context, client marketData, tokenID string) (float64, bool) {
	book, err := client.GetOrderBook(ctx, tokenID)
	if err != nil {
		s.logger.Warn("tick size lookup failed, using default", "token_id", tokenID, "error", fmt.Errorf("%w: %v", ErrMarketData, err))
		return DefaultTickSize, false
	}
	tick, err := strconv.ParseFloat(book.TickSize, 64)
	if err != nil || tick <= 0 || math.IsInf(tick, 0) {
		s.logger.Warn("order book has no usable tick size, using default", "token_id", tokenID, "tick_size", book.TickSize)
		return DefaultTickSize, book.NegRisk
	}
	return tick, book.NegRisk
}

func (s *TradeService) price(ctx context.Context, client marketData, tokenID string, requested *float64) float64 {
	if requested != nil {
		p := *requested
		if !math.IsNaN(p) && p > 0 && p < 1 {
			return p
		}
	}
	mid, err := client.GetMidpoint(ctx, tokenID)
	if err != nil {
		s.logger.Warn("midpoint lookup failed, using default price", "token_id", tokenID, "error", fmt.Errorf("%w: %v", ErrMarketData, err))
		return DefaultPrice
	}
	if math.IsNaN(mid) || math.IsInf(mid, 0) || mid <= 0 {
		return DefaultPrice
	}
	return mid
}

func (s *TradeService) publish(ctx context.Context, event events.TradeEvent) {
	event.Timestamp = time.Now().UnixMilli()
	if err := s.publisher.PublishTrade(ctx, event); err != nil {
		s.logger.Warn("failed to publish trade event", "token_id", event.TokenID, "error", err)
	}
}

/**
 * @description
 * ForwardOrder posts a caller-built, caller-signed order to the venue unchanged.
 *
 * @param order The order body, forwarded byte for byte.
 * @param headers The caller's venue auth headers.
 * @returns The venue status and body. Non-JSON bodies are wrapped as {"raw": text}.
 */
func (s *TradeService) ForwardOrder(ctx context.Context, order json.RawMessage, headers map[string]string) (*ForwardResult, error) {
	resp, err := s.clob.PostRawOrder(ctx, order, headers)
	if err != nil {
		return nil, err
	}

	result := &ForwardResult{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		Data:    responseData(resp.Body),
	}

	var parsed polymarket.PostOrderResponse
	if err := json.Unmarshal(resp.Body, &parsed); err == nil {
		if id := parsed.ID(); id != "" {
			result.OrderID = &id
		}
	}

	s.logger.Info("forwarded order", "status_code", resp.StatusCode, "order_id", parsed.ID())
	s.publish(ctx, events.TradeEvent{
		Success:     result.Success,
		OrderID:     parsed.ID(),
		PassThrough: true,
	})
	return result, nil
}

// MarketInfo reads the tick size, neg-risk flag and midpoint for a token.
func (s *TradeService) MarketInfo(ctx context.Context, tokenID string) (*MarketInfo, error) {
	id, err := NormalizeTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, validationErrorf("Missing: tokenId")
	}

	book, err := s.clob.GetOrderBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketData, err)
	}

	info := &MarketInfo{
		TokenID:      id,
		TickSize:     book.TickSize,
		NegRisk:      book.NegRisk,
		MinOrderSize: book.MinOrderSize,
	}
	if info.TickSize == "" {
		info.TickSize = strconv.FormatFloat(DefaultTickSize, 'f', -1, 64)
	}

	if mid, err := s.clob.GetMidpoint(ctx, id); err == nil {
		info.Midpoint = &mid
	} else {
		s.logger.Warn("midpoint lookup failed", "token_id", id, "error", err)
	}
	return info, nil
}

// responseData decodes a venue body as JSON, or wraps it as {"raw": text}.
func responseData(body []byte) any {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return map[string]string{"raw": string(body)}
}
