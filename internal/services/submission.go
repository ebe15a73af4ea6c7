package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poly-pro/clob-relay/internal/polymarket"
	"github.com/poly-pro/clob-relay/internal/retry"
)

const (
	// MaxSubmitAttempts is the attempt ceiling for one trade.
	MaxSubmitAttempts = 3
	// SubmitRetryDelay is the fixed pause between attempts.
	SubmitRetryDelay = 400 * time.Millisecond
)

// Venue is an authenticated account that can post orders.
type Venue interface {
	Account
	PostOrder(ctx context.Context, order *polymarket.SignedOrder, orderType polymarket.OrderType) (*polymarket.PostOrderResponse, error)
}

// SubmissionResult is the outcome of one trade request.
type SubmissionResult struct {
	Success    bool            `json:"success"`
	Submitted  bool            `json:"submitted"`
	OrderID    string          `json:"orderID,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	FinalPrice float64         `json:"finalPrice"`
	TickSize   string          `json:"tickSize"`
	Size       string          `json:"size"`
	Attempt    int             `json:"attempt,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// errOrderBuild wraps build/sign failures, which no retry can fix.
var errOrderBuild = errors.New("order build failed")

// DefaultSubmitPolicy is 3 attempts with a fixed 400ms pause; build failures are not retried.
func DefaultSubmitPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: MaxSubmitAttempts,
		Delay:       SubmitRetryDelay,
		Retryable:   func(err error) bool { return !errors.Is(err, errOrderBuild) },
	}
}

// SubmissionEngine builds, signs and posts an order with bounded retry.
type SubmissionEngine struct {
	builder *OrderBuilder
	policy  retry.Policy
	logger  *slog.Logger
}

// NewSubmissionEngine creates a SubmissionEngine.
func NewSubmissionEngine(builder *OrderBuilder, policy retry.Policy, logger *slog.Logger) *SubmissionEngine {
	return &SubmissionEngine{
		builder: builder,
		policy:  policy,
		logger:  logger,
	}
}

/**
 * @description
 * Submit posts the order described by params, retrying on transport errors and
 * unsuccessful responses. Every attempt builds and signs a fresh order.
 *
 * @param venue The authenticated account to build for and post through.
 * @param params The normalized order inputs; Price is the final tick-rounded price.
 * @param tickSize The market tick size, echoed in the result.
 * @returns The result. Success stops immediately and reports the attempt index;
 *          exhaustion reports the last error text.
 */
func (e *SubmissionEngine) Submit(ctx context.Context, venue Venue, params OrderParams, tickSize float64) SubmissionResult {
	result := SubmissionResult{
		FinalPrice: params.Price,
		TickSize:   strconv.FormatFloat(tickSize, 'f', -1, 64),
		Size:       OrderSize(params.Size).StringFixed(2),
	}

	lastError := "unknown"
	var accepted *polymarket.PostOrderResponse

	attempts, err := e.policy.Do(ctx, func(attempt int) error {
		order, err := e.builder.BuildOrder(venue, params)
		if err != nil {
			lastError = err.Error()
			return fmt.Errorf("%w: %v", errOrderBuild, err)
		}

		resp, err := venue.PostOrder(ctx, order, params.OrderType)
		if err != nil {
			lastError = err.Error()
			e.logger.Warn("order post failed", "attempt", attempt, "token_id", params.TokenID, "error", err)
			return fmt.Errorf("%w: %v", ErrSubmission, err)
		}
		if !resp.Success {
			lastError = resp.ErrorText()
			e.logger.Warn("order rejected", "attempt", attempt, "token_id", params.TokenID, "error", lastError)
			return fmt.Errorf("%w: %s", ErrSubmission, lastError)
		}

		accepted = resp
		return nil
	})

	if err == nil && accepted != nil {
		result.Success = true
		result.Submitted = true
		result.OrderID = accepted.ID()
		result.Data = accepted.Raw
		result.Attempt = attempts
		e.logger.Info("order submitted", "order_id", result.OrderID, "attempt", attempts, "price", params.Price, "size", result.Size)
		return result
	}

	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		lastError = err.Error()
	}
	result.Error = lastError
	e.logger.Error("order submission failed", "attempts", attempts, "token_id", params.TokenID, "error", lastError)
	return result
}
