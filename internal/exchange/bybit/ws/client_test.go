package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sniper/internal/exchange"
	"sniper/internal/logger"
	"sniper/internal/models"
)

const orderPush = `{"topic":"order","creationTime":1700000000000,"data":[{"orderId":"o-1","orderLinkId":"abc-tp-1","symbol":"BTCUSDT","side":"Sell","orderType":"Limit","price":"105","qty":"1","cumExecQty":"1","orderStatus":"Filled","reduceOnly":true,"updatedTime":"1700000000000"}]}`

const executionPush = `{"topic":"execution","creationTime":1700000000001,"data":[{"orderId":"o-1","orderLinkId":"abc-tp-1","execId":"e-1","symbol":"BTCUSDT","side":"Sell","execPrice":"105","execQty":"1","leavesQty":"0","execTime":"1700000000001","seq":7}]}`

func TestClient_ReceivesPrivateUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var ops []string
		for len(ops) < 2 {
			var msg SubscribeMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ops = append(ops, msg.Op)
		}
		received <- ops

		_ = conn.WriteMessage(websocket.TextMessage, []byte(orderPush))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(executionPush))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := New("ws"+strings.TrimPrefix(srv.URL, "http"), "acc-1", "key", "secret", logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := client.SubscribeToTopics(ctx, []string{"order", "execution"}); err != nil {
		t.Fatalf("SubscribeToTopics: %v", err)
	}

	select {
	case ops := <-received:
		if ops[0] != "auth" || ops[1] != "subscribe" {
			t.Fatalf("expected auth then subscribe, got %v", ops)
		}
	case <-ctx.Done():
		t.Fatal("server never saw auth and subscribe")
	}

	var events []exchange.Event
	for len(events) < 2 {
		select {
		case ev := <-client.Events():
			events = append(events, ev)
		case <-ctx.Done():
			t.Fatalf("got %d events before timeout", len(events))
		}
	}

	order := events[0]
	if order.Type != exchange.EventTypeOrder || order.AccountID != "acc-1" {
		t.Fatalf("unexpected first event %+v", order)
	}
	if order.Order.Status != models.OrderStatusFilled || order.Order.LinkID != "abc-tp-1" || order.Order.FilledQty != 1 {
		t.Errorf("unexpected order update %+v", order.Order)
	}

	fill := events[1]
	if fill.Type != exchange.EventTypeFill || fill.Fill.ExecID != "e-1" || fill.Fill.Price != 105 || fill.Fill.Sequence != 7 {
		t.Errorf("unexpected fill %+v", fill.Fill)
	}
}

func TestNew_RejectsEmptyURL(t *testing.T) {
	if _, err := New("", "acc-1", "", "", logger.Nop()); err == nil {
		t.Fatal("expected an error for an empty url")
	}
}

func TestNextBackoff_Caps(t *testing.T) {
	c, _ := New("ws://localhost", "acc-1", "", "", logger.Nop())
	if got := c.nextBackoff(time.Second); got != 2*time.Second {
		t.Errorf("backoff should double, got %s", got)
	}
	if got := c.nextBackoff(20 * time.Second); got != c.reconnectMax {
		t.Errorf("backoff should cap at %s, got %s", c.reconnectMax, got)
	}
}

func TestHandleOrder_EmitsEveryItemOfOnePush(t *testing.T) {
	c, err := New("ws://localhost", "acc-1", "", "", logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	push := `[` +
		`{"orderId":"o-1","orderLinkId":"abc-tp-0","symbol":"BTCUSDT","orderStatus":"Filled","cumExecQty":"1","updatedTime":"1700000000000","seq":41},` +
		`{"orderId":"o-2","orderLinkId":"abc-tp-1","symbol":"BTCUSDT","orderStatus":"Filled","cumExecQty":"1","updatedTime":"1700000000000","seq":42}` +
		`]`
	c.handleOrder(Message{Topic: "order", TS: 1700000000000, Data: json.RawMessage(push)})

	var got []*models.OrderUpdate
	for len(got) < 2 {
		select {
		case ev := <-c.Events():
			got = append(got, ev.Order)
		case <-time.After(time.Second):
			t.Fatalf("got %d of 2 order updates", len(got))
		}
	}
	if got[0].LinkID != "abc-tp-0" || got[1].LinkID != "abc-tp-1" {
		t.Fatalf("updates out of order: %+v %+v", got[0], got[1])
	}
	if got[0].Sequence != 41 || got[1].Sequence != 42 {
		t.Fatalf("per-item sequence lost: %d %d", got[0].Sequence, got[1].Sequence)
	}
}
