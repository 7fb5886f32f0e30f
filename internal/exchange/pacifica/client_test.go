package pacifica

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/assist-by/pacifica/internal/exchange"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// newTestClient는 테스트 서버를 향하는 클라이언트를 생성합니다
func newTestClient(t *testing.T, serverURL string, opts ...ClientOption) *Client {
	t.Helper()

	opts = append([]ClientOption{WithBaseURL(serverURL), WithTimeout(5 * time.Second)}, opts...)
	client, err := NewClient(base58.Encode(testSeed), opts...)
	if err != nil {
		t.Fatalf("클라이언트 생성 실패: %v", err)
	}
	return client
}

// verifyRequestSignature는 요청 본문의 서명이 계정 공개키로 검증되는지 확인합니다
func verifyRequestSignature(t *testing.T, body map[string]any, opType string) {
	t.Helper()

	account, _ := body["account"].(string)
	signature, _ := body["signature"].(string)
	timestampRaw, _ := body["timestamp"].(float64)
	if account == "" || signature == "" || timestampRaw == 0 {
		t.Errorf("인증 필드가 누락됨: %+v", body)
		return
	}

	payload := make(map[string]any)
	for k, v := range body {
		switch k {
		case "account", "signature", "timestamp", "expiry_window":
		default:
			payload[k] = v
		}
	}

	message, err := buildSignMessage(opType, int64(timestampRaw), payload)
	if err != nil {
		t.Errorf("서명 메시지 생성 실패: %v", err)
		return
	}

	pubBytes, err := base58.Decode(account)
	if err != nil {
		t.Errorf("계정 주소 디코딩 실패: %v", err)
		return
	}
	sigBytes, err := base58.Decode(signature)
	if err != nil {
		t.Errorf("서명 디코딩 실패: %v", err)
		return
	}
	if !ed25519.Verify(ed25519.PublicKey(pubBytes), message, sigBytes) {
		t.Errorf("요청 서명 검증 실패")
	}
}

func TestPlaceMarketOrder(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/create_market" {
			t.Errorf("잘못된 요청: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("요청 본문 파싱 실패: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"order_id":12345}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.PlaceMarketOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTC",
		Side:     domain.Bid,
		Quantity: 0.023,
		Amount:   "0.023",
		Slippage: 0.5,
	})
	if err != nil {
		t.Fatalf("예상치 못한 에러: %v", err)
	}

	if !result.Success {
		t.Errorf("주문이 성공해야 함")
	}
	if result.OrderID != "12345" {
		t.Errorf("주문 ID가 다름: got %s, want 12345", result.OrderID)
	}

	// 페이로드 검증
	if gotBody["symbol"] != "BTC" || gotBody["side"] != "bid" {
		t.Errorf("주문 페이로드가 다름: %+v", gotBody)
	}
	if gotBody["amount"] != "0.023" {
		t.Errorf("수량 문자열이 다름: %v", gotBody["amount"])
	}
	if gotBody["slippage_percent"] != "0.5" {
		t.Errorf("슬리피지 문자열이 다름: %v", gotBody["slippage_percent"])
	}
	if gotBody["reduce_only"] != false {
		t.Errorf("reduce_only가 false여야 함: %v", gotBody["reduce_only"])
	}
	clientOrderID, _ := gotBody["client_order_id"].(string)
	if _, err := uuid.Parse(clientOrderID); err != nil {
		t.Errorf("client_order_id가 UUID가 아님: %v", clientOrderID)
	}

	verifyRequestSignature(t, gotBody, "create_market_order")
}

func TestClosePosition(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("요청 본문 파싱 실패: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"order_id":777}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.ClosePosition(context.Background(), "SOL", domain.LongPosition, 1.5)
	if err != nil {
		t.Fatalf("예상치 못한 에러: %v", err)
	}

	if !result.Success || result.OrderID != "777" {
		t.Errorf("청산 결과가 다름: %+v", result)
	}
	// 롱 포지션 청산은 반대 방향(ask) reduce-only 주문이어야 한다
	if gotBody["side"] != "ask" {
		t.Errorf("청산 주문 방향이 다름: %v", gotBody["side"])
	}
	if gotBody["reduce_only"] != true {
		t.Errorf("reduce_only가 true여야 함: %v", gotBody["reduce_only"])
	}
	if gotBody["amount"] != "1.5" {
		t.Errorf("청산 수량이 다름: %v", gotBody["amount"])
	}
}

func TestGetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info/prices" {
			t.Errorf("잘못된 경로: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"symbol":"BTC","mark":"65000.5"},{"symbol":"ETH","mark":"3500.25"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	price, err := client.GetPrice(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("예상치 못한 에러: %v", err)
	}
	if price != 3500.25 {
		t.Errorf("가격이 다름: got %v, want 3500.25", price)
	}

	if _, err := client.GetPrice(context.Background(), "DOGE"); err == nil {
		t.Errorf("목록에 없는 심볼은 에러여야 함")
	}
}

func TestGetPriceFromStream(t *testing.T) {
	t.Run("신선한 스트림 가격 우선", func(t *testing.T) {
		// REST가 호출되면 실패하는 서버로 스트림 우선 동작을 확인한다
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("스트림 가격이 있으면 REST를 호출하면 안 됨")
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		stream := NewPriceStream("")
		stream.prices["BTC"] = streamPrice{value: 64321.5, at: time.Now()}

		client := newTestClient(t, server.URL, WithPriceStream(stream))
		price, err := client.GetPrice(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("예상치 못한 에러: %v", err)
		}
		if price != 64321.5 {
			t.Errorf("스트림 가격이 아님: got %v", price)
		}
	})

	t.Run("오래된 가격은 REST로 폴백", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":[{"symbol":"BTC","mark":"65100"}]}`))
		}))
		defer server.Close()

		stream := NewPriceStream("")
		stream.prices["BTC"] = streamPrice{value: 64321.5, at: time.Now().Add(-time.Minute)}

		client := newTestClient(t, server.URL, WithPriceStream(stream))
		price, err := client.GetPrice(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("예상치 못한 에러: %v", err)
		}
		if price != 65100 {
			t.Errorf("REST 가격으로 폴백해야 함: got %v", price)
		}
	})
}

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{
			name: "계정 순자산 우선",
			body: `{"success":true,"data":{"balance":"480.5","account_equity":"500.25"}}`,
			want: 500.25,
		},
		{
			name: "순자산이 없으면 잔고 사용",
			body: `{"success":true,"data":{"balance":"480.5"}}`,
			want: 480.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/account" {
					t.Errorf("잘못된 경로: %s", r.URL.Path)
				}
				if r.URL.Query().Get("account") == "" {
					t.Errorf("account 파라미터가 누락됨")
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			balance, err := client.GetBalance(context.Background())
			if err != nil {
				t.Fatalf("예상치 못한 에러: %v", err)
			}
			if balance != tt.want {
				t.Errorf("잔고가 다름: got %v, want %v", balance, tt.want)
			}
		})
	}
}

func TestListOpenPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[
			{"symbol":"SOL","side":"bid","amount":"1.5","entry_price":"150.25"},
			{"symbol":"ETH","side":"ask","amount":"0","entry_price":"0"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	positions, err := client.ListOpenPositions(context.Background())
	if err != nil {
		t.Fatalf("예상치 못한 에러: %v", err)
	}

	// 수량 0인 포지션은 걸러져야 한다
	if len(positions) != 1 {
		t.Fatalf("포지션 수가 다름: got %d, want 1", len(positions))
	}
	p := positions[0]
	if p.Pair.Symbol != "SOL" || p.Side != domain.LongPosition {
		t.Errorf("포지션 매핑이 다름: %+v", p)
	}
	if p.Quantity != 1.5 || p.EntryPrice != 150.25 {
		t.Errorf("포지션 값이 다름: %+v", p)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantFatal     bool
	}{
		{
			name:      "인증 실패는 치명적",
			status:    http.StatusUnauthorized,
			body:      `{"success":false,"error":"invalid signature","code":401}`,
			wantFatal: true,
		},
		{
			name:          "서버 오류는 일시적",
			status:        http.StatusServiceUnavailable,
			body:          `{"success":false,"error":"unavailable"}`,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			_, err := client.PlaceMarketOrder(context.Background(), domain.OrderRequest{
				Symbol: "BTC", Side: domain.Bid, Quantity: 0.001, Amount: "0.001",
			})
			if err == nil {
				t.Fatal("에러를 기대했지만 nil이 반환됨")
			}

			var apiErr *exchange.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIError가 아님: %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("상태 코드가 다름: got %d, want %d", apiErr.Status, tt.status)
			}
			if got := exchange.IsRetryableError(err); got != tt.wantRetryable {
				t.Errorf("IsRetryableError = %v, want %v", got, tt.wantRetryable)
			}
			if got := exchange.IsFatalError(err); got != tt.wantFatal {
				t.Errorf("IsFatalError = %v, want %v", got, tt.wantFatal)
			}
		})
	}
}

func TestSuccessFalseIsError(t *testing.T) {
	// HTTP 200이어도 success=false면 에러로 취급해야 한다
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"insufficient margin","code":3001}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PlaceMarketOrder(context.Background(), domain.OrderRequest{
		Symbol: "BTC", Side: domain.Bid, Quantity: 0.001, Amount: "0.001",
	})
	if err == nil {
		t.Fatal("에러를 기대했지만 nil이 반환됨")
	}

	var apiErr *exchange.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIError가 아님: %v", err)
	}
	if apiErr.Code != 3001 {
		t.Errorf("에러 코드가 다름: got %d, want 3001", apiErr.Code)
	}
}
