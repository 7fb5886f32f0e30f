package exchange

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryConfig는 재시도 설정을 정의합니다
type RetryConfig struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
}

// DefaultRetryConfig는 일반 게이트웨이 호출에 사용하는 재시도 설정입니다
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
	}
}

// CloseRetryConfig는 청산 호출에 사용하는 재시도 설정입니다.
// 닫히지 않은 포지션은 무한한 리스크이므로 더 많이, 더 짧은 간격으로 재시도합니다
func CloseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Factor:     2.0,
	}
}

// WithRetry는 재시도 로직을 구현한 래퍼 함수입니다.
// 재시도 불가능한 오류는 즉시 반환하고, 재시도 사이에는 지수 백오프로 대기합니다
func WithRetry(ctx context.Context, operation string, retry RetryConfig, fn func() error) error {
	var lastErr error
	delay := retry.BaseDelay

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := fn(); err != nil {
				lastErr = err

				// 재시도 가능한 오류인지 확인
				if !IsRetryableError(err) {
					log.Printf("%s 실패 (재시도 불필요): %v", operation, err)
					return err
				}

				if attempt == retry.MaxRetries {
					return fmt.Errorf("최대 재시도 횟수 초과: %w", lastErr)
				}

				log.Printf("%s 실패 (attempt %d/%d): %v",
					operation, attempt+1, retry.MaxRetries, err)

				// 다음 재시도 전 대기
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
					// 대기 시간을 증가시키되, 최대 대기 시간을 넘지 않도록 함
					delay = time.Duration(float64(delay) * retry.Factor)
					if delay > retry.MaxDelay {
						delay = retry.MaxDelay
					}
				}
				continue
			}
			return nil
		}
	}
	return lastErr
}
