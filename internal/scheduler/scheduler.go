// Package scheduler는 포지션 보유 시간과 재진입 대기 시간을 무작위로 결정합니다.
// 고정 주기로 거래하면 패턴이 드러나므로 모든 시간은 설정 범위 안에서 추첨합니다.
package scheduler

import (
	"context"
	"math/rand"
	"time"
)

// Config는 스케줄 범위를 정의합니다
type Config struct {
	MinHold     time.Duration
	MaxHold     time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
	LogInterval time.Duration
}

// Scheduler는 설정 범위 안에서 보유/대기 시간을 추첨하는 스케줄러입니다.
// 단일 고루틴에서만 사용해야 합니다 (rand.Rand는 동시 호출에 안전하지 않음)
type Scheduler struct {
	cfg Config
	rng *rand.Rand
}

// NewScheduler는 새로운 스케줄러를 생성합니다.
// rng가 nil이면 현재 시각으로 시드합니다
func NewScheduler(cfg Config, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{cfg: cfg, rng: rng}
}

// NextHoldDuration은 다음 포지션 보유 시간을 추첨합니다
func (s *Scheduler) NextHoldDuration() time.Duration {
	return s.randomDuration(s.cfg.MinHold, s.cfg.MaxHold)
}

// NextWaitDuration은 다음 진입까지의 대기 시간을 추첨합니다
func (s *Scheduler) NextWaitDuration() time.Duration {
	return s.randomDuration(s.cfg.MinWait, s.cfg.MaxWait)
}

// LogInterval은 보유 중 상태 로그 주기를 반환합니다
func (s *Scheduler) LogInterval() time.Duration {
	return s.cfg.LogInterval
}

// Wait은 d만큼 대기합니다. 컨텍스트가 취소되면 즉시 false를 반환합니다
func (s *Scheduler) Wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// randomDuration은 [min, max] 범위에서 균등 추첨합니다
func (s *Scheduler) randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}
