// Package paper는 실제 API 호출 없이 거래를 시뮬레이션하는 모의 게이트웨이를 제공합니다.
// 키 없이 봇 전체 흐름을 리허설할 때 사용합니다.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/google/uuid"
)

// defaultPrices는 모의 체결에 사용하는 고정 가격표입니다
var defaultPrices = map[string]float64{
	"BTC":  65000.0,
	"ETH":  3500.0,
	"HYPE": 0.25,
	"SOL":  150.0,
	"BNB":  600.0,
}

// fallbackPrice는 가격표에 없는 심볼의 기본 가격입니다
const fallbackPrice = 100.0

// Client는 메모리 내에서 잔고와 포지션 하나를 시뮬레이션하는 게이트웨이입니다.
// exchange.Gateway 인터페이스를 구현합니다.
type Client struct {
	mu       sync.Mutex
	balance  float64
	prices   map[string]float64
	position *domain.Position
}

// NewClient는 지정한 시작 잔고로 모의 게이트웨이를 생성합니다
func NewClient(startingBalance float64) *Client {
	prices := make(map[string]float64, len(defaultPrices))
	for symbol, price := range defaultPrices {
		prices[symbol] = price
	}
	return &Client{
		balance: startingBalance,
		prices:  prices,
	}
}

// SetPrice는 심볼의 모의 가격을 조정합니다 (테스트용)
func (c *Client) SetPrice(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
}

// GetBalance는 시뮬레이션 잔고를 반환합니다
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, nil
}

// GetPrice는 가격표의 모의 가격을 반환합니다
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priceLocked(symbol), nil
}

func (c *Client) priceLocked(symbol string) float64 {
	if price, ok := c.prices[symbol]; ok {
		return price
	}
	return fallbackPrice
}

// ListOpenPositions는 현재 시뮬레이션 중인 포지션 목록을 반환합니다
func (c *Client) ListOpenPositions(ctx context.Context) ([]domain.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position == nil {
		return nil, nil
	}
	snapshot := *c.position
	return []domain.Position{snapshot}, nil
}

// PlaceMarketOrder는 현재 모의 가격으로 즉시 체결을 시뮬레이션합니다.
// reduce-only 주문은 열린 포지션을 청산합니다.
func (c *Client) PlaceMarketOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if order.ReduceOnly {
		orderID, err := c.settleLocked(order.Symbol)
		if err != nil {
			return nil, err
		}
		return &domain.OrderResult{Success: true, OrderID: orderID, FilledQty: order.Quantity}, nil
	}

	if c.position != nil {
		return nil, fmt.Errorf("이미 열린 포지션이 있습니다: %s", c.position.Pair.Symbol)
	}

	price := c.priceLocked(order.Symbol)
	orderID := uuid.NewString()
	c.position = &domain.Position{
		Pair:       domain.TradingPair{Symbol: order.Symbol},
		Side:       order.Side.PositionSide(),
		Quantity:   order.Quantity,
		EntryPrice: price,
		OpenedAt:   time.Now(),
		OrderID:    orderID,
	}

	return &domain.OrderResult{Success: true, OrderID: orderID, FilledQty: order.Quantity}, nil
}

// ClosePosition은 열린 포지션을 현재 모의 가격으로 청산하고 손익을 잔고에 반영합니다
func (c *Client) ClosePosition(ctx context.Context, symbol string, side domain.PositionSide, quantity float64) (*domain.CloseResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orderID, err := c.settleLocked(symbol)
	if err != nil {
		return nil, err
	}
	return &domain.CloseResult{Success: true, OrderID: orderID}, nil
}

// settleLocked는 포지션을 청산하고 손익을 잔고에 반영합니다. 락을 잡은 상태에서 호출해야 합니다.
func (c *Client) settleLocked(symbol string) (string, error) {
	if c.position == nil {
		return "", fmt.Errorf("청산할 포지션이 없습니다: %s", symbol)
	}
	if c.position.Pair.Symbol != symbol {
		return "", fmt.Errorf("열린 포지션 심볼이 다릅니다: got %s, open %s", symbol, c.position.Pair.Symbol)
	}

	mark := c.priceLocked(symbol)
	c.balance += c.position.UnrealizedPnL(mark)
	c.position = nil
	return uuid.NewString(), nil
}
