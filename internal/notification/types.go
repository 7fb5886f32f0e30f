package notification

import "time"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 생명주기 이벤트 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// NotifyStartup은 봇 시작 알림을 전송합니다
	NotifyStartup(info StartupInfo) error

	// NotifyShutdown은 봇 종료 알림을 전송합니다
	NotifyShutdown(reason string) error

	// NotifyPositionOpened는 포지션 진입 알림을 전송합니다
	NotifyPositionOpened(info TradeInfo) error

	// NotifyPositionClosed는 포지션 청산 알림을 전송합니다
	NotifyPositionClosed(info CloseInfo) error

	// NotifyLiquidation은 거래소 측에서 포지션이 사라졌을 때 알림을 전송합니다
	NotifyLiquidation(info LiquidationInfo) error

	// NotifyFault는 복구 불가 오류 알림을 전송합니다
	NotifyFault(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error
}

// StartupInfo는 봇 시작 알림 정보를 정의합니다
type StartupInfo struct {
	Mode       string   // "실거래" or "모의 거래"
	Pairs      []string // 거래 페어 목록 (레버리지 포함 표기)
	Balance    float64  // 기준 잔고 (USD)
	DailyLimit int      // 일일 거래 한도
}

// TradeInfo는 포지션 진입 정보를 정의합니다
type TradeInfo struct {
	Symbol       string        // 심볼 (예: BTC)
	PositionType string        // "LONG" or "SHORT"
	Quantity     float64       // 수량 (코인)
	EntryPrice   float64       // 진입가
	Notional     float64       // 명목 포지션 가치 (USD)
	RiskPercent  float64       // 사용된 잔고 비율 (%)
	Leverage     int           // 레버리지
	PlannedHold  time.Duration // 예정 보유 시간
	DailyTrades  int           // 오늘 거래 횟수
	DailyLimit   int           // 일일 거래 한도
}

// CloseInfo는 포지션 청산 정보를 정의합니다
type CloseInfo struct {
	Symbol       string        // 심볼
	PositionType string        // "LONG" or "SHORT"
	Quantity     float64       // 수량
	EntryPrice   float64       // 진입가
	ExitPrice    float64       // 청산 시점 가격 (0이면 미상)
	PnL          *float64      // 실현 손익 (nil이면 미상)
	HoldTime     time.Duration // 실제 보유 시간
}

// LiquidationInfo는 거래소 측 포지션 소멸 정보를 정의합니다
type LiquidationInfo struct {
	Symbol       string        // 심볼
	PositionType string        // "LONG" or "SHORT"
	Quantity     float64       // 마지막으로 알고 있던 수량
	EntryPrice   float64       // 진입가
	Age          time.Duration // 소멸 감지까지의 보유 시간
}

// GetColorForPosition은 포지션 타입에 따른 색상을 반환합니다
func GetColorForPosition(positionType string) int {
	switch positionType {
	case "LONG":
		return ColorSuccess
	case "SHORT":
		return ColorError
	default:
		return ColorInfo
	}
}
