package position

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
)

// SizingConfig는 포지션 크기 계산을 위한 설정을 정의합니다
type SizingConfig struct {
	MinPercent float64 // 잔고 대비 최소 비율 (%)
	MaxPercent float64 // 잔고 대비 최대 비율 (%)
	Ceiling    float64 // 추첨 결과에 적용되는 비율 상한 (%)
}

// SizeResult는 포지션 크기 계산 결과를 담는 구조체입니다
type SizeResult struct {
	RiskPercent float64 // 추첨된 잔고 비율 (%)
	Notional    float64 // 명목 포지션 가치 (USD)
	RawQuantity float64 // 로트 조정 전 수량
	Quantity    float64 // 로트 단위로 조정된 수량
	Amount      string  // 주문에 사용할 수량 문자열
}

// Sizer는 잔고 비율을 추첨해 포지션 크기를 계산합니다.
// 단일 고루틴에서만 사용해야 합니다 (rand.Rand는 동시 호출에 안전하지 않음)
type Sizer struct {
	cfg SizingConfig
	rng *rand.Rand
}

// NewSizer는 새로운 Sizer를 생성합니다. rng가 nil이면 현재 시각으로 시드합니다
func NewSizer(cfg SizingConfig, rng *rand.Rand) *Sizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sizer{cfg: cfg, rng: rng}
}

// ComputeSize는 계정 잔고와 현재 가격으로 주문 수량을 계산합니다.
// 비율은 [MinPercent, MaxPercent]에서 균등 추첨하고 Ceiling으로 제한합니다.
// 명목 가치 = 잔고 × 비율 × 레버리지, 수량 = 명목 가치 / 가격
func (s *Sizer) ComputeSize(account domain.AccountSnapshot, pair domain.TradingPair, price float64) (SizeResult, error) {
	if price <= 0 || math.IsNaN(price) {
		return SizeResult{}, NewPositionError(pair.Symbol, "compute_size", ErrInvalidPrice)
	}
	if pair.LotSize <= 0 {
		return SizeResult{}, NewPositionError(pair.Symbol, "compute_size", fmt.Errorf("잘못된 로트 크기: %v", pair.LotSize))
	}

	// 비율 추첨 및 상한 적용
	riskPercent := s.cfg.MinPercent + s.rng.Float64()*(s.cfg.MaxPercent-s.cfg.MinPercent)
	if riskPercent < 0 {
		riskPercent = 0
	}
	if riskPercent > s.cfg.Ceiling {
		riskPercent = s.cfg.Ceiling
	}

	notional := account.Balance * (riskPercent / 100) * float64(pair.Leverage)
	rawQuantity := notional / price

	// 최소 주문 단위 미만이면 주문 불가
	if rawQuantity < pair.LotSize {
		return SizeResult{}, NewPositionError(pair.Symbol, "compute_size",
			fmt.Errorf("%w: 계산 수량 %.8f < 최소 단위 %v", ErrInsufficientBalance, rawQuantity, pair.LotSize))
	}

	// 로트 단위 반올림 (최소 한 로트 보장)
	quantity := math.Round(rawQuantity/pair.LotSize) * pair.LotSize
	if quantity < pair.LotSize {
		quantity = pair.LotSize
	}

	return SizeResult{
		RiskPercent: riskPercent,
		Notional:    notional,
		RawQuantity: rawQuantity,
		Quantity:    quantity,
		Amount:      FormatAmount(quantity, pair.LotSize),
	}, nil
}

// FormatAmount는 수량을 로트 크기에 맞는 소수 자릿수 문자열로 변환합니다
func FormatAmount(quantity, lotSize float64) string {
	switch {
	case lotSize >= 1.0:
		return fmt.Sprintf("%.0f", quantity)
	case lotSize >= 0.01:
		return fmt.Sprintf("%.2f", quantity)
	default:
		return fmt.Sprintf("%.3f", quantity)
	}
}
