package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.PublishTrade(context.Background(), TradeEvent{TokenID: "1"}); err != nil {
		t.Fatalf("PublishTrade() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestNewRedisPublisherRejectsBadURL(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	_, err := NewRedisPublisher(context.Background(), "http://not-redis", "", logger)
	if err == nil {
		t.Fatal("expected error for non-redis URL")
	}
	if !strings.Contains(err.Error(), "invalid redis url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTradeEventJSON(t *testing.T) {
	ev := TradeEvent{
		TokenID:   "2748",
		Side:      "BUY",
		OrderType: "FAK",
		Price:     0.97,
		TickSize:  "0.01",
		Size:      "5.00",
		Success:   true,
		OrderID:   "0xabc",
		Attempts:  1,
		Timestamp: 1700000000000,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"token_id", "side", "order_type", "price", "tick_size", "size", "success", "order_id", "timestamp"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}
	for _, key := range []string{"error", "request_id", "pass_through"} {
		if _, ok := m[key]; ok {
			t.Errorf("unexpected key %q in %s", key, b)
		}
	}
}
