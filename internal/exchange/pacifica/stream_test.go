package pacifica

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestPriceStaleness(t *testing.T) {
	stream := NewPriceStream("")
	stream.prices["BTC"] = streamPrice{value: 65000, at: time.Now()}
	stream.prices["ETH"] = streamPrice{value: 3500, at: time.Now().Add(-time.Minute)}

	if price, ok := stream.Price("BTC"); !ok || price != 65000 {
		t.Errorf("신선한 가격이 조회되지 않음: %v, %v", price, ok)
	}
	if _, ok := stream.Price("ETH"); ok {
		t.Error("오래된 가격은 없는 것으로 취급되어야 함")
	}
	if _, ok := stream.Price("SOL"); ok {
		t.Error("수신한 적 없는 심볼의 가격이 존재함")
	}
}

func TestHandleMessage(t *testing.T) {
	stream := NewPriceStream("")

	// prices 채널 프레임은 가격을 갱신한다
	stream.handleMessage([]byte(`{"channel":"prices","data":[{"symbol":"BTC","mark":"64999.5"}]}`))
	if price, ok := stream.Price("BTC"); !ok || price != 64999.5 {
		t.Fatalf("가격이 갱신되지 않음: %v, %v", price, ok)
	}

	// 다른 채널 프레임은 무시한다
	stream.handleMessage([]byte(`{"channel":"orders","data":[{"symbol":"BTC","mark":"1"}]}`))
	if price, _ := stream.Price("BTC"); price != 64999.5 {
		t.Errorf("다른 채널 프레임이 가격을 덮어씀: %v", price)
	}

	// 파싱할 수 없는 가격은 건너뛰고 나머지는 반영한다
	stream.handleMessage([]byte(`{"channel":"prices","data":[{"symbol":"BTC","mark":"not-a-number"},{"symbol":"ETH","mark":"3500"}]}`))
	if price, _ := stream.Price("BTC"); price != 64999.5 {
		t.Errorf("잘못된 가격 값이 반영됨: %v", price)
	}
	if price, ok := stream.Price("ETH"); !ok || price != 3500 {
		t.Errorf("정상 가격이 반영되지 않음: %v, %v", price, ok)
	}

	// 깨진 프레임은 조용히 무시한다
	stream.handleMessage([]byte(`not json`))
}

func TestPriceStreamReceivesFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan map[string]any, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("웹소켓 업그레이드 실패: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("구독 요청 수신 실패: %v", err)
			return
		}
		subscribed <- sub

		frame := map[string]any{
			"channel": "prices",
			"data": []map[string]string{
				{"symbol": "BTC", "mark": "65123.5"},
				{"symbol": "ETH", "mark": "3498.75"},
			},
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}

		// 클라이언트가 연결을 닫을 때까지 유지한다
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewPriceStream(wsURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Start(ctx)
	defer stream.Stop()

	select {
	case sub := <-subscribed:
		if sub["method"] != "subscribe" {
			t.Errorf("구독 메시지가 다름: %+v", sub)
		}
		params, _ := sub["params"].(map[string]any)
		if params["source"] != "prices" {
			t.Errorf("구독 소스가 다름: %+v", params)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("구독 요청이 도착하지 않음")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if price, ok := stream.Price("BTC"); ok {
			if price != 65123.5 {
				t.Errorf("스트림 가격이 다름: got %v, want 65123.5", price)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("스트림 가격이 제한 시간 안에 수신되지 않음")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if price, ok := stream.Price("ETH"); !ok || price != 3498.75 {
		t.Errorf("두 번째 심볼 가격이 다름: %v, %v", price, ok)
	}
}
