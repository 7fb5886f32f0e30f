// internal/exchange/pacifica/client.go
package pacifica

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/assist-by/pacifica/internal/exchange"
	"github.com/google/uuid"
)

// 기본 REST API 주소
const defaultBaseURL = "https://api.pacifica.fi/api/v1"

// Client는 Pacifica API 클라이언트를 구현합니다
type Client struct {
	privateKey ed25519.PrivateKey
	account    string
	baseURL    string
	httpClient *http.Client
	slippage   float64
	stream     *PriceStream
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient는 HTTP 클라이언트를 교체합니다
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSlippage는 시장가 주문의 기본 슬리피지(%)를 설정합니다
func WithSlippage(slippage float64) ClientOption {
	return func(c *Client) {
		c.slippage = slippage
	}
}

// WithPriceStream은 웹소켓 가격 스트림을 연결합니다.
// 스트림이 신선한 가격을 보유한 동안에는 REST 조회를 생략합니다
func WithPriceStream(stream *PriceStream) ClientOption {
	return func(c *Client) {
		c.stream = stream
	}
}

// NewClient는 새로운 Pacifica API 클라이언트를 생성합니다
func NewClient(privateKey string, opts ...ClientOption) (*Client, error) {
	key, err := ParseKeypair(privateKey)
	if err != nil {
		return nil, err
	}

	c := &Client{
		privateKey: key,
		account:    AccountAddress(key),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		slippage:   0.5,
	}

	// 옵션 적용
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Account는 클라이언트가 사용하는 계정 주소를 반환합니다
func (c *Client) Account() string {
	return c.account
}

// apiResponse는 Pacifica API 응답의 공통 형식입니다
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

// doPost는 서명된 POST 요청을 실행하고 응답 데이터를 반환합니다
func (c *Client) doPost(ctx context.Context, endpoint, opType string, payload map[string]any) (json.RawMessage, error) {
	timestamp := time.Now().UnixMilli()

	signature, err := signOperation(c.privateKey, opType, timestamp, payload)
	if err != nil {
		return nil, fmt.Errorf("서명 생성 실패: %w", err)
	}

	// 요청 본문 = 인증 필드 + 작업 페이로드
	body := map[string]any{
		"account":       c.account,
		"signature":     signature,
		"timestamp":     timestamp,
		"expiry_window": int64(expiryWindowMs),
	}
	for k, v := range payload {
		body[k] = v
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("요청 직렬화 실패: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.execute(req)
}

// doGet은 공개 GET 요청을 실행하고 응답 데이터를 반환합니다
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("URL 파싱 실패: %w", err)
	}
	if params != nil {
		reqURL.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	return c.execute(req)
}

// execute는 HTTP 요청을 실행하고 공통 응답 형식을 해석합니다
func (c *Client) execute(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	var parsed apiResponse
	if len(body) > 0 {
		// 본문이 JSON이 아닌 경우도 있으므로 파싱 실패는 무시한다
		_ = json.Unmarshal(body, &parsed)
	}

	if resp.StatusCode != http.StatusOK {
		message := parsed.Error
		if message == "" {
			message = string(body)
		}
		return nil, &exchange.APIError{Status: resp.StatusCode, Code: parsed.Code, Message: message}
	}

	if !parsed.Success {
		message := parsed.Error
		if message == "" {
			message = string(body)
		}
		return nil, &exchange.APIError{Status: resp.StatusCode, Code: parsed.Code, Message: message}
	}

	return parsed.Data, nil
}

// GetBalance는 계정 잔고를 조회합니다
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("account", c.account)

	data, err := c.doGet(ctx, "/account", params)
	if err != nil {
		return 0, fmt.Errorf("잔고 조회 실패: %w", err)
	}

	var result struct {
		Balance       string `json:"balance"`
		AccountEquity string `json:"account_equity"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("잔고 응답 파싱 실패: %w", err)
	}

	// 계정 순자산이 있으면 우선 사용한다
	source := result.AccountEquity
	if source == "" {
		source = result.Balance
	}
	balance, err := strconv.ParseFloat(source, 64)
	if err != nil {
		return 0, fmt.Errorf("잔고 값 파싱 실패: %w", err)
	}
	return balance, nil
}

// GetPrice는 심볼의 현재 마크 가격을 조회합니다.
// 가격 스트림이 신선한 값을 갖고 있으면 REST 호출 없이 반환합니다
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if c.stream != nil {
		if price, ok := c.stream.Price(symbol); ok {
			return price, nil
		}
	}

	data, err := c.doGet(ctx, "/info/prices", nil)
	if err != nil {
		return 0, fmt.Errorf("가격 조회 실패: %w", err)
	}

	var prices []struct {
		Symbol string `json:"symbol"`
		Mark   string `json:"mark"`
	}
	if err := json.Unmarshal(data, &prices); err != nil {
		return 0, fmt.Errorf("가격 응답 파싱 실패: %w", err)
	}

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Mark, 64)
		if err != nil {
			return 0, fmt.Errorf("가격 값 파싱 실패 (%s): %w", symbol, err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("가격 정보를 찾을 수 없음: %s", symbol)
}

// ListOpenPositions는 계정의 열린 포지션 목록을 조회합니다
func (c *Client) ListOpenPositions(ctx context.Context) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("account", c.account)

	data, err := c.doGet(ctx, "/positions", params)
	if err != nil {
		return nil, fmt.Errorf("포지션 조회 실패: %w", err)
	}

	var raw []struct {
		Symbol     string `json:"symbol"`
		Side       string `json:"side"`
		Amount     string `json:"amount"`
		EntryPrice string `json:"entry_price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("포지션 응답 파싱 실패: %w", err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		quantity, err := strconv.ParseFloat(p.Amount, 64)
		if err != nil {
			return nil, fmt.Errorf("포지션 수량 파싱 실패 (%s): %w", p.Symbol, err)
		}
		if quantity == 0 {
			continue
		}
		entryPrice, _ := strconv.ParseFloat(p.EntryPrice, 64)

		side := domain.ShortPosition
		if p.Side == string(domain.Bid) {
			side = domain.LongPosition
		}

		positions = append(positions, domain.Position{
			Pair:       domain.TradingPair{Symbol: p.Symbol},
			Side:       side,
			Quantity:   quantity,
			EntryPrice: entryPrice,
		})
	}
	return positions, nil
}

// PlaceMarketOrder는 시장가 주문을 실행합니다
func (c *Client) PlaceMarketOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResult, error) {
	clientOrderID := order.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	slippage := order.Slippage
	if slippage == 0 {
		slippage = c.slippage
	}

	amount := order.Amount
	if amount == "" {
		amount = strconv.FormatFloat(order.Quantity, 'f', -1, 64)
	}

	payload := map[string]any{
		"symbol":           order.Symbol,
		"side":             string(order.Side),
		"amount":           amount,
		"slippage_percent": strconv.FormatFloat(slippage, 'f', -1, 64),
		"reduce_only":      order.ReduceOnly,
		"client_order_id":  clientOrderID,
	}

	data, err := c.doPost(ctx, "/orders/create_market", "create_market_order", payload)
	if err != nil {
		return nil, fmt.Errorf("주문 실행 실패: %w", err)
	}

	// 거래소 주문 ID가 없으면 클라이언트 주문 ID를 사용한다
	orderID := clientOrderID
	var result struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.Unmarshal(data, &result); err == nil && result.OrderID != 0 {
		orderID = strconv.FormatInt(result.OrderID, 10)
	}

	return &domain.OrderResult{
		Success:   true,
		OrderID:   orderID,
		FilledQty: order.Quantity,
	}, nil
}

// ClosePosition은 reduce-only 반대 방향 시장가 주문으로 포지션을 청산합니다
func (c *Client) ClosePosition(ctx context.Context, symbol string, side domain.PositionSide, quantity float64) (*domain.CloseResult, error) {
	order := domain.OrderRequest{
		Symbol:        symbol,
		Side:          side.CloseSide(),
		Quantity:      quantity,
		Amount:        strconv.FormatFloat(quantity, 'f', -1, 64),
		ReduceOnly:    true,
		ClientOrderID: uuid.NewString(),
	}

	result, err := c.PlaceMarketOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("포지션 청산 주문 실패: %w", err)
	}

	return &domain.CloseResult{Success: result.Success, OrderID: result.OrderID}, nil
}
