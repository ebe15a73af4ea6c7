/**
 * @description
 * This file implements the HTTP client for Polymarket's CLOB API.
 *
 * Key features:
 * - Market Data: Order book (tick size, neg-risk flag) and midpoint lookups.
 * - Credential Derivation: Derive or create L2 API credentials with L1 headers.
 * - Order Placement: Submit signed orders with L2 headers.
 * - Pass-Through: Forward a caller-built order body with caller-supplied headers.
 *
 * @dependencies
 * - net/http: For HTTP requests
 * - encoding/json: For JSON parsing
 * - log/slog: For structured logging
 */

package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poly-pro/clob-relay/internal/crypto"
)

// DefaultBaseURL is the production CLOB host.
const DefaultBaseURL = "https://clob.polymarket.com"

const userAgent = "clob-relay/1.0"

// CLOBAPIClient handles interactions with Polymarket's CLOB API
type CLOBAPIClient struct {
	baseURL    string
	chainID    int64
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewCLOBAPIClient creates a new CLOB API client
func NewCLOBAPIClient(baseURL string, chainID int64, logger *slog.Logger) *CLOBAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if chainID == 0 {
		chainID = DefaultChainID
	}

	return &CLOBAPIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// OrderBookSummary represents the order book response from CLOB API
type OrderBookSummary struct {
	Market       string       `json:"market"`
	AssetID      string       `json:"asset_id"`
	Timestamp    string       `json:"timestamp"`
	Hash         string       `json:"hash"`
	Bids         []OrderLevel `json:"bids"`
	Asks         []OrderLevel `json:"asks"`
	MinOrderSize string       `json:"min_order_size"`
	TickSize     string       `json:"tick_size"`
	NegRisk      bool         `json:"neg_risk"`
}

// OrderLevel represents a single price level in the order book
type OrderLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type midpointResponse struct {
	Mid string `json:"mid"`
}

// PostOrderRequest represents the request to place an order
type PostOrderRequest struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
}

// PostOrderResponse represents the response from placing an order.
// The order identifier arrives under one of several spellings; use ID.
type PostOrderResponse struct {
	Success      bool     `json:"success"`
	Error        string   `json:"error"`
	ErrorMsg     string   `json:"errorMsg"`
	OrderID      string   `json:"orderID"`
	OrderIDSnake string   `json:"order_id"`
	OrderIDCamel string   `json:"orderId"`
	OrderHashes  []string `json:"orderHashes"`
	Status       string   `json:"status"`

	StatusCode int             `json:"-"`
	Raw        json.RawMessage `json:"-"`
}

// ID returns the venue order identifier regardless of spelling.
func (r *PostOrderResponse) ID() string {
	switch {
	case r.OrderID != "":
		return r.OrderID
	case r.OrderIDSnake != "":
		return r.OrderIDSnake
	default:
		return r.OrderIDCamel
	}
}

// ErrorText returns the rejection reason, or "Order rejected" when the venue gave none.
func (r *PostOrderResponse) ErrorText() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.ErrorMsg != "":
		return r.ErrorMsg
	default:
		return "Order rejected"
	}
}

// RawResponse is an unparsed venue response.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// CLOBError represents an error response from the CLOB API
type CLOBError struct {
	Error string `json:"error"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CLOB API returned status %d: %s", e.StatusCode, e.Message)
}

func (c *CLOBAPIClient) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *CLOBAPIClient) getJSON(ctx context.Context, path string, params url.Values, headers map[string]string, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var clobErr CLOBError
	if err := json.Unmarshal(body, &clobErr); err == nil && clobErr.Error != "" {
		return &APIError{StatusCode: status, Message: clobErr.Error}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

// GetOrderBook fetches the order book for a specific token
func (c *CLOBAPIClient) GetOrderBook(ctx context.Context, tokenID string) (*OrderBookSummary, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var orderBook OrderBookSummary
	if err := c.getJSON(ctx, "/book", params, nil, &orderBook); err != nil {
		return nil, fmt.Errorf("failed to fetch order book: %w", err)
	}
	return &orderBook, nil
}

// GetMidpoint fetches the current midpoint price for a token.
func (c *CLOBAPIClient) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var mid midpointResponse
	if err := c.getJSON(ctx, "/midpoint", params, nil, &mid); err != nil {
		return 0, fmt.Errorf("failed to fetch midpoint: %w", err)
	}
	price, err := strconv.ParseFloat(mid.Mid, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse midpoint %q: %w", mid.Mid, err)
	}
	return price, nil
}

// DeriveAPIKey fetches the existing API credentials for the signer's wallet.
func (c *CLOBAPIClient) DeriveAPIKey(ctx context.Context, signer *crypto.Signer) (APICredentials, error) {
	headers, err := L1Headers(signer, c.chainID, c.now().Unix(), 0)
	if err != nil {
		return APICredentials{}, err
	}

	var creds APICredentials
	if err := c.getJSON(ctx, "/auth/derive-api-key", nil, headers, &creds); err != nil {
		return APICredentials{}, fmt.Errorf("failed to derive API key: %w", err)
	}
	if !creds.Complete() {
		return APICredentials{}, errors.New("derive API key returned incomplete credentials")
	}
	return creds, nil
}

// CreateAPIKey registers new API credentials for the signer's wallet.
func (c *CLOBAPIClient) CreateAPIKey(ctx context.Context, signer *crypto.Signer) (APICredentials, error) {
	headers, err := L1Headers(signer, c.chainID, c.now().Unix(), 0)
	if err != nil {
		return APICredentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/api-key", nil)
	if err != nil {
		return APICredentials{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, body, err := c.do(req)
	if err != nil {
		return APICredentials{}, fmt.Errorf("failed to create API key: %w", err)
	}
	if status != http.StatusOK {
		return APICredentials{}, fmt.Errorf("failed to create API key: %w", apiError(status, body))
	}

	var creds APICredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return APICredentials{}, fmt.Errorf("failed to parse API key response: %w", err)
	}
	if !creds.Complete() {
		return APICredentials{}, errors.New("create API key returned incomplete credentials")
	}
	return creds, nil
}

// CreateOrDeriveAPIKey creates credentials, deriving the existing ones if creation fails.
func (c *CLOBAPIClient) CreateOrDeriveAPIKey(ctx context.Context, signer *crypto.Signer) (APICredentials, error) {
	creds, err := c.CreateAPIKey(ctx, signer)
	if err == nil {
		return creds, nil
	}
	c.logger.Warn("create API key failed, deriving instead", "error", err)
	return c.DeriveAPIKey(ctx, signer)
}

/**
 * @description
 * PostOrder submits a signed order to the CLOB API.
 *
 * @param creds The L2 credentials; the API key is also the order owner.
 * @param address The wallet address sent as POLY_ADDRESS.
 * @returns The parsed response. A rejected order is not an error; check Success.
 * @returns An error only for transport failures or unparseable responses.
 */
func (c *CLOBAPIClient) PostOrder(ctx context.Context, creds APICredentials, address string, signedOrder *SignedOrder, orderType OrderType) (*PostOrderResponse, error) {
	bodyBytes, err := json.Marshal(PostOrderRequest{
		Order:     *signedOrder,
		Owner:     creds.APIKey,
		OrderType: orderType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	path := "/order"
	authHeaders, err := L2Headers(creds, address, http.MethodPost, path, string(bodyBytes), c.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create auth headers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range authHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("submitting order to CLOB API", "token_id", signedOrder.TokenID, "side", signedOrder.Side.String(), "order_type", orderType)

	status, body, err := c.do(req)
	if err != nil {
		c.logger.Error("failed to submit order to CLOB API", "error", err)
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}

	var orderResp PostOrderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, apiError(status, body)
	}
	orderResp.StatusCode = status
	orderResp.Raw = body
	if status < 200 || status >= 300 {
		orderResp.Success = false
	}

	if !orderResp.Success {
		c.logger.Warn("order submission rejected", "status_code", status, "error", orderResp.ErrorText())
	} else {
		c.logger.Info("order successfully submitted", "order_id", orderResp.ID(), "status", orderResp.Status)
	}
	return &orderResp, nil
}

// PostRawOrder forwards a caller-built order body to the order endpoint unchanged.
func (c *CLOBAPIClient) PostRawOrder(ctx context.Context, order json.RawMessage, headers map[string]string) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(order))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to forward order: %w", err)
	}
	return &RawResponse{StatusCode: status, Body: body}, nil
}
