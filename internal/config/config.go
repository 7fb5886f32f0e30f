package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// 심볼별 최소 주문 단위 (Pacifica 로트 규격)
var defaultLotSizes = map[string]float64{
	"BTC":  0.001,
	"ETH":  0.01,
	"HYPE": 1.0,
	"SOL":  0.01,
	"BNB":  0.01,
}

// 로트 규격이 알려지지 않은 심볼의 기본값
const fallbackLotSize = 0.01

type Config struct {
	// Pacifica API 설정
	Pacifica struct {
		PrivateKey     string        `envconfig:"PACIFICA_PRIVATE_KEY"`
		BaseURL        string        `envconfig:"PACIFICA_BASE_URL" default:"https://api.pacifica.fi/api/v1"`
		WSURL          string        `envconfig:"PACIFICA_WS_URL" default:"wss://ws.pacifica.fi/ws"`
		OrderTimeout   time.Duration `envconfig:"ORDER_TIMEOUT" default:"30s"`
		UsePriceStream bool          `envconfig:"USE_PRICE_STREAM" default:"false"`
	}

	// 디스코드 웹훅 설정 (비어있는 채널은 비활성화)
	Discord struct {
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
	}

	// 거래 설정
	Trading struct {
		Pairs           []string `envconfig:"TRADING_PAIRS" default:"BTC,ETH,HYPE,SOL,BNB"`
		DefaultLeverage int      `envconfig:"DEFAULT_LEVERAGE" default:"5"`
		AccountBalance  float64  `envconfig:"ACCOUNT_BALANCE" default:"500"`
		UseLiveBalance  bool     `envconfig:"USE_LIVE_BALANCE" default:"false"`
		MinPositionPct  float64  `envconfig:"MIN_POSITION_PERCENT" default:"50"`
		MaxPositionPct  float64  `envconfig:"MAX_POSITION_PERCENT" default:"80"`
		PositionPctCap  float64  `envconfig:"MAX_POSITION_PERCENT_CAP" default:"80"`
		Slippage        float64  `envconfig:"DEFAULT_SLIPPAGE" default:"0.5"`
		MaxDailyTrades  int      `envconfig:"MAX_DAILY_TRADES" default:"50"`
		DailyResetUTC   bool     `envconfig:"DAILY_RESET_UTC" default:"true"`
		CounterFile     string   `envconfig:"TRADE_COUNTER_FILE"`
		CloseOnStart    bool     `envconfig:"CLOSE_EXISTING_POSITIONS_ON_START" default:"true"`
		PaperTrading    bool     `envconfig:"PAPER_TRADING" default:"false"`
	}

	// 스케줄 설정
	Schedule struct {
		MinHoldMinutes   int `envconfig:"MIN_POSITION_HOLD_MINUTES" default:"3"`
		MaxHoldMinutes   int `envconfig:"MAX_POSITION_HOLD_MINUTES" default:"10"`
		MinWaitSeconds   int `envconfig:"MIN_WAIT_BETWEEN_POSITIONS" default:"10"`
		MaxWaitSeconds   int `envconfig:"MAX_WAIT_BETWEEN_POSITIONS" default:"50"`
		LogIntervalSec   int `envconfig:"POSITION_LOG_INTERVAL_SECONDS" default:"120"`
		CheckIntervalSec int `envconfig:"POSITION_CHECK_INTERVAL_SECONDS" default:"30"`
	}

	// 모니터링 설정
	Monitor struct {
		Port     int    `envconfig:"MONITOR_PORT" default:"8080"`
		LockFile string `envconfig:"LOCK_FILE" default:".pacifica_trading_bot.lock"`
	}

	// 파싱된 페어 테이블 (LoadConfig에서 구성)
	pairs []domain.TradingPair
}

// TradingPairs는 파싱된 거래 페어 테이블을 반환합니다
func (c *Config) TradingPairs() []domain.TradingPair {
	return c.pairs
}

// PairBySymbol은 심볼에 해당하는 거래 페어를 조회합니다
func (c *Config) PairBySymbol(symbol string) (domain.TradingPair, bool) {
	for _, p := range c.pairs {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return domain.TradingPair{}, false
}

// ParseTradingPairs는 TRADING_PAIRS 항목을 페어 테이블로 변환합니다.
// 각 항목은 "BTC" 또는 "BTC:10" (페어별 레버리지 지정) 형식입니다
func ParseTradingPairs(entries []string, defaultLeverage int) ([]domain.TradingPair, error) {
	pairs := make([]domain.TradingPair, 0, len(entries))
	seen := make(map[string]bool)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		symbol := entry
		leverage := defaultLeverage
		if idx := strings.IndexByte(entry, ':'); idx >= 0 {
			symbol = strings.TrimSpace(entry[:idx])
			lev, err := strconv.Atoi(strings.TrimSpace(entry[idx+1:]))
			if err != nil {
				return nil, fmt.Errorf("페어 레버리지 파싱 실패 (%s): %w", entry, err)
			}
			leverage = lev
		}

		symbol = strings.ToUpper(symbol)
		if symbol == "" {
			return nil, fmt.Errorf("빈 심볼이 포함되어 있습니다 (%s)", entry)
		}
		if leverage < 1 || leverage > 100 {
			return nil, fmt.Errorf("레버리지는 1 이상 100 이하이어야 합니다 (%s)", entry)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("중복된 심볼이 있습니다 (%s)", symbol)
		}
		seen[symbol] = true

		lotSize, ok := defaultLotSizes[symbol]
		if !ok {
			lotSize = fallbackLotSize
		}

		pairs = append(pairs, domain.TradingPair{
			Symbol:   symbol,
			Leverage: leverage,
			LotSize:  lotSize,
		})
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("거래 페어가 하나 이상 필요합니다")
	}
	return pairs, nil
}

// ValidateConfig는 설정이 유효한지 확인합니다.
// 모든 위반 사항을 수집하여 하나의 에러로 반환합니다
func ValidateConfig(cfg *Config) error {
	var problems []string

	if !cfg.Trading.PaperTrading && cfg.Pacifica.PrivateKey == "" {
		problems = append(problems, "실거래 모드에서는 PACIFICA_PRIVATE_KEY가 필요합니다")
	}
	if cfg.Pacifica.OrderTimeout < time.Second {
		problems = append(problems, "ORDER_TIMEOUT은 1초 이상이어야 합니다")
	}

	if cfg.Trading.MinPositionPct <= 0 || cfg.Trading.MinPositionPct > 100 {
		problems = append(problems, "MIN_POSITION_PERCENT는 0 초과 100 이하이어야 합니다")
	}
	if cfg.Trading.MaxPositionPct <= 0 || cfg.Trading.MaxPositionPct > 100 {
		problems = append(problems, "MAX_POSITION_PERCENT는 0 초과 100 이하이어야 합니다")
	}
	if cfg.Trading.MinPositionPct > cfg.Trading.MaxPositionPct {
		problems = append(problems, "MIN_POSITION_PERCENT는 MAX_POSITION_PERCENT보다 클 수 없습니다")
	}
	if cfg.Trading.PositionPctCap <= 0 || cfg.Trading.PositionPctCap > 100 {
		problems = append(problems, "MAX_POSITION_PERCENT_CAP은 0 초과 100 이하이어야 합니다")
	}
	if !cfg.Trading.UseLiveBalance && cfg.Trading.AccountBalance <= 0 {
		problems = append(problems, "정적 잔고 모드에서는 ACCOUNT_BALANCE가 0보다 커야 합니다")
	}
	if cfg.Trading.Slippage < 0 {
		problems = append(problems, "DEFAULT_SLIPPAGE는 음수일 수 없습니다")
	}
	if cfg.Trading.MaxDailyTrades < 1 {
		problems = append(problems, "MAX_DAILY_TRADES는 1 이상이어야 합니다")
	}

	if cfg.Schedule.MinHoldMinutes < 1 {
		problems = append(problems, "MIN_POSITION_HOLD_MINUTES는 1 이상이어야 합니다")
	}
	if cfg.Schedule.MinHoldMinutes > cfg.Schedule.MaxHoldMinutes {
		problems = append(problems, "MIN_POSITION_HOLD_MINUTES는 MAX_POSITION_HOLD_MINUTES보다 클 수 없습니다")
	}
	if cfg.Schedule.MinWaitSeconds < 0 {
		problems = append(problems, "MIN_WAIT_BETWEEN_POSITIONS는 음수일 수 없습니다")
	}
	if cfg.Schedule.MinWaitSeconds > cfg.Schedule.MaxWaitSeconds {
		problems = append(problems, "MIN_WAIT_BETWEEN_POSITIONS는 MAX_WAIT_BETWEEN_POSITIONS보다 클 수 없습니다")
	}
	if cfg.Schedule.LogIntervalSec < 1 {
		problems = append(problems, "POSITION_LOG_INTERVAL_SECONDS는 1 이상이어야 합니다")
	}
	if cfg.Schedule.CheckIntervalSec < 1 {
		problems = append(problems, "POSITION_CHECK_INTERVAL_SECONDS는 1 이상이어야 합니다")
	}

	if cfg.Monitor.Port < 1 || cfg.Monitor.Port > 65535 {
		problems = append(problems, "MONITOR_PORT는 1 이상 65535 이하이어야 합니다")
	}
	if cfg.Monitor.LockFile == "" {
		problems = append(problems, "LOCK_FILE은 비어있을 수 없습니다")
	}

	if len(problems) > 0 {
		return fmt.Errorf("설정 오류 %d건: %s", len(problems), strings.Join(problems, "; "))
	}
	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
// envPath의 .env 파일은 없어도 됩니다 (운영 환경은 실제 환경변수 사용)
func LoadConfig(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 페어 테이블 구성
	pairs, err := ParseTradingPairs(cfg.Trading.Pairs, cfg.Trading.DefaultLeverage)
	if err != nil {
		return nil, fmt.Errorf("거래 페어 파싱 실패: %w", err)
	}
	cfg.pairs = pairs

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}

// LogConfigSummary는 기동 시 적용된 설정 요약을 로그로 남깁니다 (비밀값 제외)
func LogConfigSummary(cfg *Config) {
	mode := "실거래"
	if cfg.Trading.PaperTrading {
		mode = "모의 거래"
	}
	balanceSource := fmt.Sprintf("정적 ($%.2f)", cfg.Trading.AccountBalance)
	if cfg.Trading.UseLiveBalance {
		balanceSource = "실시간 조회"
	}

	var pairDescs []string
	for _, p := range cfg.pairs {
		pairDescs = append(pairDescs, fmt.Sprintf("%s(%dx)", p.Symbol, p.Leverage))
	}

	log.Printf("===== 설정 요약 =====")
	log.Printf("거래 모드: %s", mode)
	log.Printf("거래 페어: %s", strings.Join(pairDescs, ", "))
	log.Printf("잔고 소스: %s", balanceSource)
	log.Printf("포지션 비율: %.0f%%~%.0f%% (상한 %.0f%%)", cfg.Trading.MinPositionPct, cfg.Trading.MaxPositionPct, cfg.Trading.PositionPctCap)
	log.Printf("보유 시간: %d~%d분, 대기 시간: %d~%d초", cfg.Schedule.MinHoldMinutes, cfg.Schedule.MaxHoldMinutes, cfg.Schedule.MinWaitSeconds, cfg.Schedule.MaxWaitSeconds)
	log.Printf("일일 거래 한도: %d회 (UTC 리셋: %v)", cfg.Trading.MaxDailyTrades, cfg.Trading.DailyResetUTC)
	log.Printf("기동 시 기존 포지션 정리: %v", cfg.Trading.CloseOnStart)
	log.Printf("모니터 포트: %d", cfg.Monitor.Port)
	log.Printf("=====================")
}
