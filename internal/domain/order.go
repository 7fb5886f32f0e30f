package domain

// OrderRequest는 시장가 주문 요청 정보를 표현합니다
type OrderRequest struct {
	Symbol        string    // 심볼 (예: BTC)
	Side          OrderSide // 매수/매도 (bid/ask)
	Quantity      float64   // 수량 (내부 계산용)
	Amount        string    // 수량 문자열 (거래소 전송 형식, 로트 단위 반영)
	Slippage      float64   // 허용 슬리피지 (%)
	ReduceOnly    bool      // 청산 전용 주문 여부
	ClientOrderID string    // 클라이언트 측 주문 ID (비어있으면 자동 생성)
}

// OrderResult는 주문 실행 결과를 표현합니다
type OrderResult struct {
	Success   bool    // 체결 성공 여부
	OrderID   string  // 주문 ID
	FilledQty float64 // 체결된 수량
}

// CloseResult는 청산 주문 결과를 표현합니다
type CloseResult struct {
	Success bool   // 청산 성공 여부
	OrderID string // 청산 주문 ID
}
