package domain

// OrderSide는 주문 방향을 정의합니다. Pacifica는 bid(롱)/ask(숏)를 사용합니다
type OrderSide string

const (
	Bid OrderSide = "bid" // 매수 (롱 진입 / 숏 청산)
	Ask OrderSide = "ask" // 매도 (숏 진입 / 롱 청산)
)

// Opposite는 반대 주문 방향을 반환합니다 (청산 주문에 사용)
func (s OrderSide) Opposite() OrderSide {
	if s == Bid {
		return Ask
	}
	return Bid
}

// PositionSide는 OrderSide에 대응하는 포지션 방향을 반환합니다
func (s OrderSide) PositionSide() PositionSide {
	if s == Bid {
		return LongPosition
	}
	return ShortPosition
}

// PositionSide는 포지션 방향을 정의합니다
type PositionSide string

const (
	LongPosition  PositionSide = "LONG"
	ShortPosition PositionSide = "SHORT"
)

// OpenSide는 해당 포지션을 여는 주문 방향을 반환합니다
func (p PositionSide) OpenSide() OrderSide {
	if p == LongPosition {
		return Bid
	}
	return Ask
}

// CloseSide는 해당 포지션을 닫는 주문 방향을 반환합니다
func (p PositionSide) CloseSide() OrderSide {
	return p.OpenSide().Opposite()
}

// BotState는 포지션 생명주기 상태를 정의합니다
type BotState int

const (
	Idle    BotState = iota // 포지션 없음, 다음 진입 대기
	Opening                 // 진입 주문 제출 중
	Holding                 // 포지션 보유 중
	Closing                 // 청산 주문 제출 중
	Faulted                 // 복구 불가 오류로 정지됨
)

// String은 BotState의 문자열 표현을 반환합니다
func (s BotState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Opening:
		return "OPENING"
	case Holding:
		return "HOLDING"
	case Closing:
		return "CLOSING"
	case Faulted:
		return "FAULTED"
	default:
		return "UNKNOWN"
	}
}
