package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/assist-by/pacifica/internal/exchange"
	"github.com/assist-by/pacifica/internal/monitor"
	"github.com/assist-by/pacifica/internal/notification"
	"github.com/assist-by/pacifica/internal/scheduler"
	"github.com/google/uuid"
)

// closeTimeout은 종료 신호 이후에도 청산을 끝까지 시도하는 최대 시간입니다
const closeTimeout = 2 * time.Minute

// MachineConfig는 상태 기계 동작 설정입니다
type MachineConfig struct {
	Pairs          []domain.TradingPair
	AccountBalance float64       // 정적 기준 잔고 (USD)
	UseLiveBalance bool          // true면 매 진입 전 거래소 잔고 조회
	Slippage       float64       // 슬리피지 허용 (%)
	CloseOnStart   bool          // 기동 시 기존 포지션 정리 여부
	CheckInterval  time.Duration // 보유 중 거래소 대조 주기
	OpenRetry      exchange.RetryConfig
	CloseRetry     exchange.RetryConfig
}

// Machine은 단일 포지션 슬롯을 소유하는 상태 기계입니다.
// Idle → Opening → Holding → Closing → Idle 전이를 반복하며
// 어떤 순간에도 열린 포지션을 최대 하나만 유지합니다
type Machine struct {
	gateway  exchange.Gateway
	sizer    *Sizer
	sched    *scheduler.Scheduler
	counter  *DailyCounter
	notifier notification.Notifier
	cfg      MachineConfig
	rng      *rand.Rand

	mu        sync.Mutex
	state     domain.BotState
	position  *domain.Position
	lastError string
}

// NewMachine은 새로운 상태 기계를 생성합니다. rng가 nil이면 현재 시각으로 시드합니다
func NewMachine(cfg MachineConfig, gateway exchange.Gateway, sizer *Sizer, sched *scheduler.Scheduler, counter *DailyCounter, notifier notification.Notifier, rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.OpenRetry.MaxRetries == 0 {
		cfg.OpenRetry = exchange.DefaultRetryConfig()
	}
	if cfg.CloseRetry.MaxRetries == 0 {
		cfg.CloseRetry = exchange.CloseRetryConfig()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}

	return &Machine{
		gateway:  gateway,
		sizer:    sizer,
		sched:    sched,
		counter:  counter,
		notifier: notifier,
		cfg:      cfg,
		rng:      rng,
		state:    domain.Idle,
	}
}

// cycleAbort는 이번 사이클만 포기하고 Idle로 돌아가는 에러입니다 (치명적 아님)
type cycleAbort struct {
	err error
}

func (e *cycleAbort) Error() string { return e.err.Error() }
func (e *cycleAbort) Unwrap() error { return e.err }

// Status는 외부 감시자용 상태 스냅샷을 반환합니다. 동시 호출에 안전합니다
func (m *Machine) Status() domain.BotStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	status := domain.BotStatus{
		State:       m.state,
		StateName:   m.state.String(),
		DailyTrades: m.counter.Count(),
		DailyLimit:  m.counter.Limit(),
		LastError:   m.lastError,
		UpdatedAt:   now,
	}
	if m.position != nil {
		status.Position = m.position.StatusView(now)
	}
	return status
}

// Run은 상태 기계 루프를 구동합니다. 컨텍스트 취소 시 보유 포지션을
// 청산한 뒤 nil을 반환하고, 복구 불가 오류 시 Faulted로 전이한 뒤
// 해당 에러를 반환합니다
func (m *Machine) Run(ctx context.Context) error {
	log.Printf("포지션 상태 기계 시작 (페어 %d개, 일일 한도 %d회)", len(m.cfg.Pairs), m.counter.Limit())

	if m.cfg.CloseOnStart {
		if err := m.cleanupExistingPositions(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return m.fault(fmt.Errorf("기존 포지션 정리 실패: %w", err))
		}
	}
	m.setState(domain.Idle)

	for ctx.Err() == nil {
		if err := m.cycle(ctx); err != nil {
			return m.fault(err)
		}
	}

	// 정상 종료 경로에서는 보유 포지션이 이미 청산된 상태다
	m.setState(domain.Idle)
	log.Printf("종료 신호 수신, 상태 기계 종료")
	return nil
}

// cycle은 진입 → 보유 → 청산 → 대기 한 사이클을 수행합니다
func (m *Machine) cycle(ctx context.Context) error {
	// 일일 한도 확인은 어떤 게이트웨이 호출보다 먼저 수행한다
	if !m.counter.Allow() {
		log.Printf("일일 거래 한도 도달 (%s), 리셋까지 대기", m.counter)
		m.sched.Wait(ctx, m.sched.NextWaitDuration())
		return nil
	}

	m.setState(domain.Opening)
	if err := m.openPosition(ctx); err != nil {
		if ctx.Err() != nil {
			// 종료 신호로 중단된 진입은 오류가 아니다
			return nil
		}
		var abort *cycleAbort
		if errors.As(err, &abort) {
			log.Printf("진입 중단, 다음 사이클에 재시도: %v", err)
			m.setState(domain.Idle)
			m.sched.Wait(ctx, m.sched.NextWaitDuration())
			return nil
		}
		return err
	}

	if closeNeeded := m.holdPosition(ctx); closeNeeded {
		reason := "보유 시간 만료"
		if ctx.Err() != nil {
			reason = "종료 신호"
		}
		if err := m.closePosition(reason); err != nil {
			return err
		}
	} else {
		// 거래소 측에서 이미 사라진 포지션은 청산 호출 없이 Idle로 돌아간다
		m.setState(domain.Idle)
	}

	m.sched.Wait(ctx, m.sched.NextWaitDuration())
	return nil
}

// openPosition은 페어와 방향을 추첨해 진입 주문까지 수행합니다.
// 성공 시 슬롯을 채우고 Holding으로 전이합니다
func (m *Machine) openPosition(ctx context.Context) error {
	// 1. 기준 잔고 결정
	balance := m.cfg.AccountBalance
	if m.cfg.UseLiveBalance {
		err := exchange.WithRetry(ctx, "잔고 조회", m.cfg.OpenRetry, func() error {
			b, err := m.gateway.GetBalance(ctx)
			if err != nil {
				return err
			}
			balance = b
			return nil
		})
		if err != nil {
			if exchange.IsFatalError(err) {
				return err
			}
			return &cycleAbort{fmt.Errorf("잔고 조회 실패: %w", err)}
		}
	}
	monitor.SetAccountBalance(balance)

	// 2. 페어와 방향 추첨
	pair := m.cfg.Pairs[m.rng.Intn(len(m.cfg.Pairs))]
	side := domain.Bid
	if m.rng.Intn(2) == 1 {
		side = domain.Ask
	}

	// 3. 사이징 직전 최신 가격 조회 (오래된 가격 허용 안 함)
	var price float64
	err := exchange.WithRetry(ctx, "가격 조회", m.cfg.OpenRetry, func() error {
		p, err := m.gateway.GetPrice(ctx, pair.Symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		if exchange.IsFatalError(err) {
			return err
		}
		return &cycleAbort{fmt.Errorf("가격 조회 실패: %w", err)}
	}

	// 4. 포지션 크기 계산
	account := domain.AccountSnapshot{Balance: balance, FetchedAt: time.Now()}
	size, err := m.sizer.ComputeSize(account, pair, price)
	if err != nil {
		if errors.Is(err, ErrInvalidPrice) || errors.Is(err, ErrInsufficientBalance) {
			return &cycleAbort{err}
		}
		return err
	}

	log.Printf("진입 준비: %s %s, 잔고 $%.2f의 %.1f%% × %dx = $%.2f (%s개 @ $%.2f)",
		pair.Symbol, side.PositionSide(), balance, size.RiskPercent, pair.Leverage, size.Notional, size.Amount, price)

	// 5. 진입 주문 (재시도 간 멱등성을 위해 주문 ID는 한 번만 생성)
	order := domain.OrderRequest{
		Symbol:        pair.Symbol,
		Side:          side,
		Quantity:      size.Quantity,
		Amount:        size.Amount,
		Slippage:      m.cfg.Slippage,
		ClientOrderID: uuid.NewString(),
	}

	var result *domain.OrderResult
	err = exchange.WithRetry(ctx, "진입 주문", m.cfg.OpenRetry, func() error {
		r, err := m.gateway.PlaceMarketOrder(ctx, order)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		monitor.IncOrderFailures()
		return NewPositionError(pair.Symbol, "place_entry_order", err)
	}

	// 6. 슬롯 생성 및 Holding 전이
	now := time.Now()
	hold := m.sched.NextHoldDuration()

	m.mu.Lock()
	m.state = domain.Holding
	m.position = &domain.Position{
		Pair:        pair,
		Side:        side.PositionSide(),
		Quantity:    size.Quantity,
		EntryPrice:  price,
		OpenedAt:    now,
		PlannedHold: hold,
		OrderID:     result.OrderID,
	}
	m.mu.Unlock()

	count := m.counter.Increment()
	monitor.SetState(int(domain.Holding))
	monitor.IncOrders(string(side))
	monitor.SetDailyTrades(count)

	log.Printf("포지션 진입 완료: %s %s %s @ $%.2f, 보유 예정 %s (오늘 %d/%d회)",
		pair.Symbol, side.PositionSide(), size.Amount, price, hold.Round(time.Second), count, m.counter.Limit())

	if m.notifier != nil {
		info := notification.TradeInfo{
			Symbol:       pair.Symbol,
			PositionType: string(side.PositionSide()),
			Quantity:     size.Quantity,
			EntryPrice:   price,
			Notional:     size.Notional,
			RiskPercent:  size.RiskPercent,
			Leverage:     pair.Leverage,
			PlannedHold:  hold,
			DailyTrades:  count,
			DailyLimit:   m.counter.Limit(),
		}
		if err := m.notifier.NotifyPositionOpened(info); err != nil {
			log.Printf("진입 알림 전송 실패: %v", err)
		}
	}

	return nil
}

// holdPosition은 보유 시간이 끝나거나 종료 신호가 올 때까지 포지션을 지켜봅니다.
// 청산이 필요하면 true, 거래소 측에서 이미 사라졌으면 false를 반환합니다
func (m *Machine) holdPosition(ctx context.Context) bool {
	m.mu.Lock()
	if m.position == nil {
		m.mu.Unlock()
		return false
	}
	snapshot := *m.position
	m.mu.Unlock()

	deadline := time.NewTimer(time.Until(snapshot.OpenedAt.Add(snapshot.PlannedHold)))
	defer deadline.Stop()
	heartbeat := time.NewTicker(m.sched.LogInterval())
	defer heartbeat.Stop()
	check := time.NewTicker(m.cfg.CheckInterval)
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return true

		case <-deadline.C:
			log.Printf("보유 시간 만료: %s (%s 경과)", snapshot.Pair.Symbol, snapshot.PlannedHold.Round(time.Second))
			return true

		case <-heartbeat.C:
			m.logHeartbeat(ctx)

		case <-check.C:
			if gone := m.reconcile(ctx); gone {
				return false
			}
		}
	}
}

// logHeartbeat은 보유 중 상태 로그를 남깁니다
func (m *Machine) logHeartbeat(ctx context.Context) {
	m.mu.Lock()
	if m.position == nil {
		m.mu.Unlock()
		return
	}
	snapshot := *m.position
	m.mu.Unlock()

	now := time.Now()
	age := snapshot.Age(now)
	remaining := snapshot.PlannedHold - age
	if remaining < 0 {
		remaining = 0
	}
	monitor.SetPositionAge(age.Seconds())

	// 가격 조회가 실패해도 하트비트는 계속한다
	if price, err := m.gateway.GetPrice(ctx, snapshot.Pair.Symbol); err == nil {
		log.Printf("포지션 보유 중: %s %s %v @ $%.2f, 현재가 $%.2f (손익 $%.2f), 경과 %s / 잔여 %s",
			snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity, snapshot.EntryPrice,
			price, snapshot.UnrealizedPnL(price), age.Round(time.Second), remaining.Round(time.Second))
	} else {
		log.Printf("포지션 보유 중: %s %s %v @ $%.2f, 경과 %s / 잔여 %s",
			snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity, snapshot.EntryPrice,
			age.Round(time.Second), remaining.Round(time.Second))
	}
}

// reconcile은 거래소 포지션 목록과 로컬 슬롯을 대조합니다.
// 거래소 측에서 포지션이 사라졌으면 (강제 청산 등) 슬롯을 비우고 true를 반환합니다
func (m *Machine) reconcile(ctx context.Context) bool {
	positions, err := m.gateway.ListOpenPositions(ctx)
	if err != nil {
		// 대조 실패는 다음 주기에 다시 시도한다
		log.Printf("포지션 대조 실패: %v", err)
		return false
	}

	m.mu.Lock()
	if m.position == nil {
		m.mu.Unlock()
		return true
	}

	for _, p := range positions {
		if p.Pair.Symbol != m.position.Pair.Symbol {
			continue
		}
		// 수량이 어긋나면 거래소 값을 채택한다 (거래소가 항상 기준)
		if math.Abs(p.Quantity-m.position.Quantity) > 1e-9 {
			log.Printf("수량 불일치 감지: %s 로컬 %v → 거래소 %v 채택",
				m.position.Pair.Symbol, m.position.Quantity, p.Quantity)
			m.position.Quantity = p.Quantity
		}
		m.mu.Unlock()
		return false
	}

	// 거래소에 포지션이 없다. 강제 청산 또는 외부 개입으로 판단한다
	vanished := *m.position
	m.position = nil
	m.mu.Unlock()

	age := vanished.Age(time.Now())
	log.Printf("포지션 소멸 감지: %s %s %v (보유 %s), 거래소 조회에 없음, 청산 호출 생략",
		vanished.Pair.Symbol, vanished.Side, vanished.Quantity, age.Round(time.Second))
	monitor.SetPositionAge(0)

	if m.notifier != nil {
		info := notification.LiquidationInfo{
			Symbol:       vanished.Pair.Symbol,
			PositionType: string(vanished.Side),
			Quantity:     vanished.Quantity,
			EntryPrice:   vanished.EntryPrice,
			Age:          age,
		}
		if err := m.notifier.NotifyLiquidation(info); err != nil {
			log.Printf("소멸 알림 전송 실패: %v", err)
		}
	}

	return true
}

// closePosition은 보유 포지션을 reduce-only 주문으로 청산합니다.
// 미청산 포지션은 무한 리스크로 남으므로 종료 신호와 무관하게 끝까지
// 시도하고, 재시도 소진 시 에러를 반환합니다 (조용한 Idle 복귀 금지)
func (m *Machine) closePosition(reason string) error {
	m.mu.Lock()
	if m.position == nil {
		m.state = domain.Idle
		m.mu.Unlock()
		return nil
	}
	m.state = domain.Closing
	snapshot := *m.position
	m.mu.Unlock()
	monitor.SetState(int(domain.Closing))

	log.Printf("포지션 청산 시작: %s %s %v (사유: %s)",
		snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity, reason)

	// 실행 컨텍스트가 취소된 뒤에도 청산은 완료해야 하므로 독립 컨텍스트를 사용한다
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := exchange.WithRetry(ctx, "포지션 청산", m.cfg.CloseRetry, func() error {
		_, err := m.gateway.ClosePosition(ctx, snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity)
		return err
	})
	if err != nil {
		return NewPositionError(snapshot.Pair.Symbol, "close_position", fmt.Errorf("%w: %v", ErrCloseFailed, err))
	}

	// 청산 시점 가격으로 손익 추정 (조회 실패 시 미상)
	var pnl *float64
	var exitPrice float64
	if price, err := m.gateway.GetPrice(ctx, snapshot.Pair.Symbol); err == nil {
		exitPrice = price
		v := snapshot.UnrealizedPnL(price)
		pnl = &v
	}

	m.mu.Lock()
	m.position = nil
	m.state = domain.Idle
	m.mu.Unlock()

	holdTime := time.Since(snapshot.OpenedAt)
	monitor.SetState(int(domain.Idle))
	monitor.SetPositionAge(0)
	monitor.IncCloses()

	if pnl != nil {
		log.Printf("포지션 청산 완료: %s %s %v, 보유 %s, 손익 $%.2f",
			snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity, holdTime.Round(time.Second), *pnl)
	} else {
		log.Printf("포지션 청산 완료: %s %s %v, 보유 %s",
			snapshot.Pair.Symbol, snapshot.Side, snapshot.Quantity, holdTime.Round(time.Second))
	}

	if m.notifier != nil {
		info := notification.CloseInfo{
			Symbol:       snapshot.Pair.Symbol,
			PositionType: string(snapshot.Side),
			Quantity:     snapshot.Quantity,
			EntryPrice:   snapshot.EntryPrice,
			ExitPrice:    exitPrice,
			PnL:          pnl,
			HoldTime:     holdTime,
		}
		if err := m.notifier.NotifyPositionClosed(info); err != nil {
			log.Printf("청산 알림 전송 실패: %v", err)
		}
	}

	return nil
}

// cleanupExistingPositions는 기동 시 남아있는 포지션을 모두 청산합니다.
// 포지션당 정확히 한 번의 청산 주문을 보냅니다
func (m *Machine) cleanupExistingPositions(ctx context.Context) error {
	var positions []domain.Position
	err := exchange.WithRetry(ctx, "기존 포지션 조회", m.cfg.OpenRetry, func() error {
		ps, err := m.gateway.ListOpenPositions(ctx)
		if err != nil {
			return err
		}
		positions = ps
		return nil
	})
	if err != nil {
		// 기존 포지션을 확인하지 못한 채 거래를 시작할 수 없다
		return err
	}

	if len(positions) == 0 {
		log.Printf("기동 시 정리할 기존 포지션 없음")
		return nil
	}

	log.Printf("기동 시 기존 포지션 %d개 발견, 정리 시작", len(positions))
	for _, pos := range positions {
		log.Printf("기존 포지션 청산: %s %s %v @ $%.2f", pos.Pair.Symbol, pos.Side, pos.Quantity, pos.EntryPrice)

		err := exchange.WithRetry(ctx, "기존 포지션 청산", m.cfg.CloseRetry, func() error {
			_, err := m.gateway.ClosePosition(ctx, pos.Pair.Symbol, pos.Side, pos.Quantity)
			return err
		})
		if err != nil {
			return NewPositionError(pos.Pair.Symbol, "startup_cleanup", fmt.Errorf("%w: %v", ErrCloseFailed, err))
		}
		monitor.IncCloses()
	}

	if m.notifier != nil {
		if err := m.notifier.SendInfo(fmt.Sprintf("🧹 기동 시 기존 포지션 %d개를 정리했습니다", len(positions))); err != nil {
			log.Printf("정리 알림 전송 실패: %v", err)
		}
	}
	return nil
}

// setState는 상태를 갱신하고 메트릭에 반영합니다
func (m *Machine) setState(state domain.BotState) {
	m.mu.Lock()
	old := m.state
	m.state = state
	m.mu.Unlock()

	if old != state {
		log.Printf("상태 전이: %s → %s", old, state)
	}
	monitor.SetState(int(state))
}

// fault는 기계를 Faulted 상태로 전이시키고 원인 에러를 반환합니다
func (m *Machine) fault(err error) error {
	m.mu.Lock()
	m.state = domain.Faulted
	m.lastError = err.Error()
	m.mu.Unlock()

	monitor.SetState(int(domain.Faulted))
	monitor.IncFaults()
	log.Printf("치명적 오류로 봇 정지: %v", err)

	if m.notifier != nil {
		if nerr := m.notifier.NotifyFault(err); nerr != nil {
			log.Printf("오류 알림 전송 실패: %v", nerr)
		}
	}
	return err
}
