package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError는 거래소 API가 반환한 에러를 표현합니다
type APIError struct {
	Status  int    // HTTP 상태 코드
	Code    int    // 거래소 에러 코드 (없으면 0)
	Message string // 에러 메시지
}

// Error는 error 인터페이스를 구현합니다
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("API 에러(HTTP %d, 코드: %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API 에러(HTTP %d): %s", e.Status, e.Message)
}

// IsRetryableError는 재시도 가능한 일시적 오류인지 판별합니다.
// 타임아웃, 일시적 네트워크 오류, 레이트 리밋, 서버 오류(5xx)가 해당합니다
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 취소는 재시도하지 않는다 (종료 경로)
	if errors.Is(err, context.Canceled) {
		return false
	}
	// 타임아웃은 일시적 오류로 취급한다
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusRequestTimeout:
			return true
		case apiErr.Status == http.StatusTooManyRequests:
			return true
		case apiErr.Status >= 500:
			return true
		default:
			return false
		}
	}

	// 분류되지 않은 전송 오류는 일시적 오류로 취급한다
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsFatalError는 재시도해도 회복될 수 없는 오류인지 판별합니다.
// 인증 실패, 잘못된 요청 등 4xx 계열이 해당합니다
func IsFatalError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return false
		default:
			return apiErr.Status >= 400 && apiErr.Status < 500
		}
	}
	return false
}
