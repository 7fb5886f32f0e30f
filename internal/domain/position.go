package domain

import "time"

// TradingPair는 거래 대상 페어의 정적 설정을 표현합니다
type TradingPair struct {
	Symbol   string  // 심볼 (예: BTC)
	Leverage int     // 레버리지 배수
	LotSize  float64 // 최소 주문 단위
}

// Position은 현재 보유 중인 단일 포지션을 표현합니다.
// 시스템 전체에서 동시에 0개 또는 1개만 존재합니다
type Position struct {
	Pair        TradingPair   // 거래 페어
	Side        PositionSide  // 롱/숏 포지션
	Quantity    float64       // 포지션 수량
	EntryPrice  float64       // 진입가
	OpenedAt    time.Time     // 진입 시각
	PlannedHold time.Duration // 계획된 보유 시간
	OrderID     string        // 진입 주문 ID
}

// Age는 포지션 보유 경과 시간을 반환합니다
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// HoldExpired는 계획된 보유 시간이 지났는지 여부를 반환합니다
func (p *Position) HoldExpired(now time.Time) bool {
	return p.Age(now) >= p.PlannedHold
}

// UnrealizedPnL은 기준 가격 대비 미실현 손익을 반환합니다
func (p *Position) UnrealizedPnL(markPrice float64) float64 {
	if p.Side == LongPosition {
		return (markPrice - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - markPrice) * p.Quantity
}

// PositionStatus는 상태 조회용 포지션 요약입니다
type PositionStatus struct {
	Symbol      string       `json:"symbol"`
	Side        PositionSide `json:"side"`
	Quantity    float64      `json:"quantity"`
	EntryPrice  float64      `json:"entry_price"`
	OpenedAt    time.Time    `json:"opened_at"`
	PlannedHold float64      `json:"planned_hold_seconds"`
	AgeSeconds  float64      `json:"age_seconds"`
}

// StatusView는 상태 조회용 포지션 요약을 생성합니다
func (p *Position) StatusView(now time.Time) *PositionStatus {
	return &PositionStatus{
		Symbol:      p.Pair.Symbol,
		Side:        p.Side,
		Quantity:    p.Quantity,
		EntryPrice:  p.EntryPrice,
		OpenedAt:    p.OpenedAt,
		PlannedHold: p.PlannedHold.Seconds(),
		AgeSeconds:  p.Age(now).Seconds(),
	}
}

// BotStatus는 외부 감시자에게 노출되는 상태 스냅샷입니다
type BotStatus struct {
	State       BotState        `json:"-"`
	StateName   string          `json:"state"`
	Position    *PositionStatus `json:"position,omitempty"`
	DailyTrades int             `json:"daily_trades"`
	DailyLimit  int             `json:"daily_limit"`
	LastError   string          `json:"last_error,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
