// Package monitor는 외부 관제를 위한 상태 조회와 Prometheus 메트릭 표면을 제공합니다
package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	botState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_state",
			Help: "현재 상태 기계 상태 (0=IDLE 1=OPENING 2=HOLDING 3=CLOSING 4=FAULTED)",
		},
	)

	botDailyTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_daily_trades",
			Help: "오늘 실행된 거래 횟수",
		},
	)

	botPositionAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_position_age_seconds",
			Help: "현재 포지션 보유 시간 (초, 포지션이 없으면 0)",
		},
	)

	botAccountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_account_balance",
			Help: "마지막으로 확인된 계정 잔고 (USD)",
		},
	)

	botOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "제출된 진입 주문 수",
		},
		[]string{"side"}, // bid|ask
	)

	botOrderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_order_failures_total",
			Help: "재시도 후에도 실패한 주문 수",
		},
	)

	botCloses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_closes_total",
			Help: "완료된 포지션 청산 수",
		},
	)

	botFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_faults_total",
			Help: "복구 불가 오류로 정지한 횟수",
		},
	)
)

func init() {
	prometheus.MustRegister(botState, botDailyTrades, botPositionAge, botAccountBalance)
	prometheus.MustRegister(botOrders, botOrderFailures, botCloses, botFaults)
}

// SetState는 상태 기계 상태 게이지를 갱신합니다
func SetState(state int) { botState.Set(float64(state)) }

// SetDailyTrades는 오늘 거래 횟수 게이지를 갱신합니다
func SetDailyTrades(count int) { botDailyTrades.Set(float64(count)) }

// SetPositionAge는 포지션 보유 시간 게이지를 갱신합니다
func SetPositionAge(seconds float64) { botPositionAge.Set(seconds) }

// SetAccountBalance는 계정 잔고 게이지를 갱신합니다
func SetAccountBalance(balance float64) { botAccountBalance.Set(balance) }

// IncOrders는 진입 주문 카운터를 증가시킵니다
func IncOrders(side string) { botOrders.WithLabelValues(side).Inc() }

// IncOrderFailures는 주문 실패 카운터를 증가시킵니다
func IncOrderFailures() { botOrderFailures.Inc() }

// IncCloses는 청산 완료 카운터를 증가시킵니다
func IncCloses() { botCloses.Inc() }

// IncFaults는 치명적 오류 카운터를 증가시킵니다
func IncFaults() { botFaults.Inc() }
