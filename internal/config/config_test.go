package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradingPairs(t *testing.T) {
	tests := []struct {
		name            string
		entries         []string
		defaultLeverage int
		wantErr         bool
		wantSymbols     []string
		wantLeverages   []int
	}{
		{
			name:            "기본 페어 목록",
			entries:         []string{"BTC", "ETH", "HYPE", "SOL", "BNB"},
			defaultLeverage: 5,
			wantSymbols:     []string{"BTC", "ETH", "HYPE", "SOL", "BNB"},
			wantLeverages:   []int{5, 5, 5, 5, 5},
		},
		{
			name:            "페어별 레버리지 지정",
			entries:         []string{"BTC:10", "eth", " SOL : 3 "},
			defaultLeverage: 5,
			wantSymbols:     []string{"BTC", "ETH", "SOL"},
			wantLeverages:   []int{10, 5, 3},
		},
		{
			name:            "빈 항목은 무시",
			entries:         []string{"BTC", "", "ETH"},
			defaultLeverage: 5,
			wantSymbols:     []string{"BTC", "ETH"},
			wantLeverages:   []int{5, 5},
		},
		{
			name:            "잘못된 레버리지 형식",
			entries:         []string{"BTC:abc"},
			defaultLeverage: 5,
			wantErr:         true,
		},
		{
			name:            "레버리지 범위 초과",
			entries:         []string{"BTC:101"},
			defaultLeverage: 5,
			wantErr:         true,
		},
		{
			name:            "중복 심볼",
			entries:         []string{"BTC", "btc"},
			defaultLeverage: 5,
			wantErr:         true,
		},
		{
			name:            "페어 없음",
			entries:         []string{"", " "},
			defaultLeverage: 5,
			wantErr:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := ParseTradingPairs(tt.entries, tt.defaultLeverage)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, pairs, len(tt.wantSymbols))
			for i, p := range pairs {
				assert.Equal(t, tt.wantSymbols[i], p.Symbol)
				assert.Equal(t, tt.wantLeverages[i], p.Leverage, "심볼 %s의 레버리지", p.Symbol)
			}
		})
	}
}

func TestParseTradingPairsLotSize(t *testing.T) {
	pairs, err := ParseTradingPairs([]string{"BTC", "HYPE", "XYZ"}, 5)
	require.NoError(t, err)

	wantLots := map[string]float64{
		"BTC":  0.001, // 고가 자산은 작은 로트
		"HYPE": 1.0,   // 저가 자산은 큰 로트
		"XYZ":  0.01,  // 알려지지 않은 심볼은 기본 로트
	}
	for _, p := range pairs {
		assert.Equal(t, wantLots[p.Symbol], p.LotSize, "심볼 %s의 로트 크기", p.Symbol)
	}
}

// validConfig는 검증을 통과하는 기본 설정을 만듭니다
func validConfig() *Config {
	cfg := &Config{}
	cfg.Pacifica.PrivateKey = "test-key"
	cfg.Pacifica.OrderTimeout = 30 * time.Second
	cfg.Trading.MinPositionPct = 50
	cfg.Trading.MaxPositionPct = 80
	cfg.Trading.PositionPctCap = 80
	cfg.Trading.AccountBalance = 500
	cfg.Trading.MaxDailyTrades = 50
	cfg.Schedule.MinHoldMinutes = 3
	cfg.Schedule.MaxHoldMinutes = 10
	cfg.Schedule.MinWaitSeconds = 10
	cfg.Schedule.MaxWaitSeconds = 50
	cfg.Schedule.LogIntervalSec = 120
	cfg.Schedule.CheckIntervalSec = 30
	cfg.Monitor.Port = 8080
	cfg.Monitor.LockFile = ".test.lock"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "유효한 기본 설정",
			mutate: func(cfg *Config) {},
		},
		{
			name: "모의 거래 모드에서는 키 없이 통과",
			mutate: func(cfg *Config) {
				cfg.Pacifica.PrivateKey = ""
				cfg.Trading.PaperTrading = true
			},
		},
		{
			name: "실거래 모드에서 키 누락",
			mutate: func(cfg *Config) {
				cfg.Pacifica.PrivateKey = ""
			},
			wantErr: true,
		},
		{
			name: "포지션 비율 최소가 최대보다 큼",
			mutate: func(cfg *Config) {
				cfg.Trading.MinPositionPct = 90
				cfg.Trading.MaxPositionPct = 80
			},
			wantErr: true,
		},
		{
			name: "정적 잔고 모드에서 잔고 0",
			mutate: func(cfg *Config) {
				cfg.Trading.AccountBalance = 0
			},
			wantErr: true,
		},
		{
			name: "실시간 잔고 모드에서는 잔고 0 허용",
			mutate: func(cfg *Config) {
				cfg.Trading.AccountBalance = 0
				cfg.Trading.UseLiveBalance = true
			},
		},
		{
			name: "보유 시간 범위 역전",
			mutate: func(cfg *Config) {
				cfg.Schedule.MinHoldMinutes = 20
				cfg.Schedule.MaxHoldMinutes = 10
			},
			wantErr: true,
		},
		{
			name: "일일 한도 0",
			mutate: func(cfg *Config) {
				cfg.Trading.MaxDailyTrades = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Trading.MaxDailyTrades = 0
	cfg.Monitor.Port = 0
	cfg.Schedule.LogIntervalSec = 0

	err := ValidateConfig(cfg)
	require.Error(t, err)

	// 위반 사항이 하나의 에러로 모두 수집되어야 한다
	for _, want := range []string{"MAX_DAILY_TRADES", "MONITOR_PORT", "POSITION_LOG_INTERVAL_SECONDS"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PAPER_TRADING", "true")
	t.Setenv("TRADING_PAIRS", "BTC:10,ETH")
	t.Setenv("DEFAULT_LEVERAGE", "7")
	t.Setenv("MAX_DAILY_TRADES", "20")

	// .env 파일이 없어도 환경변수만으로 로드되어야 한다
	cfg, err := LoadConfig("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "https://api.pacifica.fi/api/v1", cfg.Pacifica.BaseURL)
	assert.Equal(t, 20, cfg.Trading.MaxDailyTrades)

	pairs := cfg.TradingPairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "BTC", pairs[0].Symbol)
	assert.Equal(t, 10, pairs[0].Leverage)
	assert.Equal(t, "ETH", pairs[1].Symbol)
	assert.Equal(t, 7, pairs[1].Leverage)

	btc, ok := cfg.PairBySymbol("BTC")
	require.True(t, ok)
	assert.Equal(t, 0.001, btc.LotSize)

	_, ok = cfg.PairBySymbol("DOGE")
	assert.False(t, ok)
}
