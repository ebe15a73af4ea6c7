/**
 * @description
 * This file parses inbound trade bodies into a tagged union before any pipeline
 * logic runs. A body is either a caller-signed order to forward verbatim or a
 * simplified trade for the relay to price, build and sign.
 *
 * Key features:
 * - Lenient Numbers: `amount`, `size` and `price` accept JSON numbers or numeric strings.
 *   Unparseable values become NaN so validation can reject them with a clear message.
 * - Pass-Through Detection: an `order` object plus `headers` (or `polyHeaders`) selects
 *   forwarding. Header values that are numbers or booleans are sent as text.
 */

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/poly-pro/clob-relay/internal/services"
)

var errInvalidBody = errors.New("Invalid JSON body")

// TradeRequest is either a *PassThroughOrder or a *TradeParameters.
type TradeRequest interface {
	isTradeRequest()
}

// PassThroughOrder is a caller-built, caller-signed order and its venue auth headers.
type PassThroughOrder struct {
	Order   json.RawMessage
	Headers map[string]string
}

// TradeParameters is a simplified trade for the pipeline.
type TradeParameters struct {
	services.TradeRequest
}

func (*PassThroughOrder) isTradeRequest() {}
func (*TradeParameters) isTradeRequest()  {}

// flexNumber is a JSON number or numeric string. Anything else non-null is NaN.
type flexNumber struct {
	set   bool
	value float64
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.set, n.value = true, f
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f = math.NaN()
		}
		n.set, n.value = true, f
		return nil
	}

	n.set, n.value = true, math.NaN()
	return nil
}

// flexString is a JSON string kept as-is, or any other scalar kept as its JSON text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	*s = flexString(data)
	return nil
}

// headerMap is a JSON object of header values. Non-string scalars are sent as their
// JSON text and nulls are dropped. A non-object leaves the map nil.
type headerMap map[string]string

func (h *headerMap) UnmarshalJSON(data []byte) error {
	var raw map[string]flexString
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil
	}
	out := make(headerMap, len(raw))
	for k, v := range raw {
		if v != "" {
			out[k] = string(v)
		}
	}
	*h = out
	return nil
}

type rawTradeRequest struct {
	TokenID     flexString      `json:"tokenId"`
	Side        flexString      `json:"side"`
	Amount      flexNumber      `json:"amount"`
	Size        flexNumber      `json:"size"`
	Price       flexNumber      `json:"price"`
	OrderType   flexString      `json:"orderType"`
	Order       json.RawMessage `json:"order"`
	Headers     headerMap       `json:"headers"`
	PolyHeaders headerMap       `json:"polyHeaders"`
}

// isObject reports whether raw is a JSON object. Only an object is a forwardable order.
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

/**
 * @description
 * ParseTradeRequest decodes an inbound body.
 *
 * @param body The raw request body. An empty body is treated as `{}`.
 * @param allowPassThrough Whether `order` + `headers|polyHeaders` selects forwarding.
 * @returns A *PassThroughOrder or a *TradeParameters.
 * @returns An error if the body is not a JSON object.
 */
func ParseTradeRequest(body []byte, allowPassThrough bool) (TradeRequest, error) {
	var raw rawTradeRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, errInvalidBody
		}
	}

	if allowPassThrough && isObject(raw.Order) {
		headers := raw.Headers
		if headers == nil {
			headers = raw.PolyHeaders
		}
		if headers != nil {
			return &PassThroughOrder{Order: raw.Order, Headers: headers}, nil
		}
	}

	req := services.TradeRequest{
		TokenID:   strings.TrimSpace(string(raw.TokenID)),
		Side:      strings.TrimSpace(string(raw.Side)),
		OrderType: string(raw.OrderType),
	}
	switch {
	case raw.Amount.set && raw.Amount.value != 0:
		req.Quantity = raw.Amount.value
	case raw.Size.set:
		req.Quantity = raw.Size.value
	}
	if raw.Price.set {
		p := raw.Price.value
		req.Price = &p
	}
	return &TradeParameters{TradeRequest: req}, nil
}
