package polymarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poly-pro/clob-relay/internal/crypto"
)

var testSecret = base64.URLEncoding.EncodeToString([]byte("relay-test-secret"))

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *CLOBAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCLOBAPIClient(srv.URL, DefaultChainID, testLogger())
}

func TestGetOrderBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" || r.URL.Query().Get("token_id") != "123" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"asset_id":"123","tick_size":"0.001","neg_risk":true}`))
	})

	book, err := c.GetOrderBook(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if book.TickSize != "0.001" || !book.NegRisk {
		t.Errorf("book = %+v", book)
	}
}

func TestGetOrderBookError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"No orderbook exists for the requested token id"}`))
	})

	_, err := c.GetOrderBook(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || !strings.Contains(apiErr.Message, "No orderbook") {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestGetMidpoint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/midpoint" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"mid":"0.425"}`))
	})

	mid, err := c.GetMidpoint(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetMidpoint: %v", err)
	}
	if mid != 0.425 {
		t.Errorf("mid = %v, want 0.425", mid)
	}
}

func TestDeriveAPIKeySendsL1Headers(t *testing.T) {
	signer, _ := crypto.GenerateKey()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/auth/derive-api-key" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("POLY_ADDRESS"); got != signer.Address().Hex() {
			t.Errorf("POLY_ADDRESS = %s", got)
		}
		for _, h := range []string{"POLY_SIGNATURE", "POLY_TIMESTAMP", "POLY_NONCE"} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing header %s", h)
			}
		}
		w.Write([]byte(`{"apiKey":"k","secret":"s","passphrase":"p"}`))
	})

	creds, err := c.DeriveAPIKey(context.Background(), signer)
	if err != nil {
		t.Fatalf("DeriveAPIKey: %v", err)
	}
	if creds != (APICredentials{APIKey: "k", Secret: "s", Passphrase: "p"}) {
		t.Errorf("creds = %+v", creds)
	}
}

func TestCreateOrDeriveFallsBackToDerive(t *testing.T) {
	signer, _ := crypto.GenerateKey()
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/auth/api-key" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"could not create api key"}`))
			return
		}
		w.Write([]byte(`{"apiKey":"k","secret":"s","passphrase":"p"}`))
	})

	creds, err := c.CreateOrDeriveAPIKey(context.Background(), signer)
	if err != nil {
		t.Fatalf("CreateOrDeriveAPIKey: %v", err)
	}
	if creds.APIKey != "k" {
		t.Errorf("creds = %+v", creds)
	}
	want := []string{"POST /auth/api-key", "GET /auth/derive-api-key"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func testSignedOrder() *SignedOrder {
	return &SignedOrder{
		Order: Order{
			Salt:          "12345",
			Maker:         "0x0000000000000000000000000000000000000002",
			Signer:        "0x0000000000000000000000000000000000000002",
			Taker:         ZeroAddress,
			TokenID:       "42",
			MakerAmount:   "4850000",
			TakerAmount:   "5000000",
			Expiration:    "0",
			Nonce:         "0",
			FeeRateBps:    "0",
			Side:          BUY,
			SignatureType: SignatureTypeEOA,
		},
		Signature: "0xsig",
	}
}

func TestPostOrderSignsWithL2Headers(t *testing.T) {
	creds := APICredentials{APIKey: "key-1", Secret: testSecret, Passphrase: "pass"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		message := r.Header.Get("POLY_TIMESTAMP") + r.Method + r.URL.Path + string(body)
		h := hmac.New(sha256.New, []byte("relay-test-secret"))
		h.Write([]byte(message))
		if want := base64.URLEncoding.EncodeToString(h.Sum(nil)); r.Header.Get("POLY_SIGNATURE") != want {
			t.Errorf("POLY_SIGNATURE = %s, want %s", r.Header.Get("POLY_SIGNATURE"), want)
		}
		if r.Header.Get("POLY_API_KEY") != "key-1" || r.Header.Get("POLY_PASSPHRASE") != "pass" {
			t.Errorf("missing api key headers: %v", r.Header)
		}

		var req struct {
			Order     map[string]any `json:"order"`
			Owner     string         `json:"owner"`
			OrderType string         `json:"orderType"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad body: %v", err)
			return
		}
		if req.Owner != "key-1" || req.OrderType != "FAK" {
			t.Errorf("owner/orderType = %s/%s", req.Owner, req.OrderType)
		}
		if req.Order["side"] != "BUY" {
			t.Errorf("side = %v, want BUY", req.Order["side"])
		}
		if _, ok := req.Order["salt"].(float64); !ok {
			t.Errorf("salt = %T, want JSON number", req.Order["salt"])
		}

		w.Write([]byte(`{"success":true,"order_id":"0xabc","status":"matched"}`))
	})

	resp, err := c.PostOrder(context.Background(), creds, "0x0000000000000000000000000000000000000002", testSignedOrder(), OrderTypeFAK)
	if err != nil {
		t.Fatalf("PostOrder: %v", err)
	}
	if !resp.Success || resp.ID() != "0xabc" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPostOrderRejection(t *testing.T) {
	creds := APICredentials{APIKey: "k", Secret: testSecret, Passphrase: "p"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"not enough balance / allowance"}`))
	})

	resp, err := c.PostOrder(context.Background(), creds, "0x1", testSignedOrder(), OrderTypeFOK)
	if err != nil {
		t.Fatalf("PostOrder: %v", err)
	}
	if resp.Success {
		t.Error("rejected order reported success")
	}
	if resp.ErrorText() != "not enough balance / allowance" {
		t.Errorf("ErrorText = %q", resp.ErrorText())
	}
}

func TestPostOrderWithoutCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	_, err := c.PostOrder(context.Background(), APICredentials{}, "0x1", testSignedOrder(), OrderTypeFAK)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestPostRawOrderForwardsVerbatim(t *testing.T) {
	const order = `{"order":{"salt":1},"owner":"abc","orderType":"GTC"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != order {
			t.Errorf("body = %s", body)
		}
		if r.Header.Get("POLY_API_KEY") != "caller-key" {
			t.Errorf("caller header not forwarded")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true}`))
	})

	resp, err := c.PostRawOrder(context.Background(), json.RawMessage(order), map[string]string{"POLY_API_KEY": "caller-key"})
	if err != nil {
		t.Fatalf("PostRawOrder: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || string(resp.Body) != `{"success":true}` {
		t.Errorf("resp = %d %s", resp.StatusCode, resp.Body)
	}
}

func TestPostOrderResponseID(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"orderID":"a"}`, "a"},
		{`{"order_id":"b"}`, "b"},
		{`{"orderId":"c"}`, "c"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var r PostOrderResponse
		if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.body, err)
		}
		if got := r.ID(); got != tt.want {
			t.Errorf("ID(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
