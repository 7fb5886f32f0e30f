// internal/exchange/exchange.go
package exchange

import (
	"context"

	"github.com/assist-by/pacifica/internal/domain"
)

// Gateway는 거래소와의 상호작용을 위한 인터페이스입니다.
// 모든 호출은 실패하거나 타임아웃될 수 있으며, 타임아웃은 성공으로 간주하지 않습니다
type Gateway interface {
	// 계정 데이터 조회
	GetBalance(ctx context.Context) (float64, error)
	ListOpenPositions(ctx context.Context) ([]domain.Position, error)

	// 시장 데이터 조회
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// 거래 기능
	PlaceMarketOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResult, error)
	ClosePosition(ctx context.Context, symbol string, side domain.PositionSide, quantity float64) (*domain.CloseResult, error)
}
