package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/assist-by/pacifica/internal/config"
	"github.com/assist-by/pacifica/internal/exchange"
	"github.com/assist-by/pacifica/internal/exchange/pacifica"
	"github.com/assist-by/pacifica/internal/exchange/paper"
	"github.com/assist-by/pacifica/internal/guard"
	"github.com/assist-by/pacifica/internal/monitor"
	"github.com/assist-by/pacifica/internal/notification"
	"github.com/assist-by/pacifica/internal/notification/discord"
	"github.com/assist-by/pacifica/internal/position"
	"github.com/assist-by/pacifica/internal/scheduler"
)

func main() {
	// 명령줄 플래그 정의
	envFlag := flag.String("env", ".env", ".env 파일 경로")
	portFlag := flag.Int("port", 0, "모니터 서버 포트 (설정값 대신 사용)")
	flag.Parse()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Pacifica 트레이딩 봇 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig(*envFlag)
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}
	if *portFlag != 0 {
		cfg.Monitor.Port = *portFlag
	}
	config.LogConfigSummary(cfg)

	// 단일 인스턴스 잠금 획득
	lock, err := guard.Acquire(cfg.Monitor.LockFile)
	if err != nil {
		log.Fatalf("프로세스 잠금 획득 실패: %v", err)
	}
	defer lock.Release()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 거래소 게이트웨이 생성
	mode := "실거래"
	var gateway exchange.Gateway
	var stream *pacifica.PriceStream
	if cfg.Trading.PaperTrading {
		mode = "모의 거래"
		gateway = paper.NewClient(cfg.Trading.AccountBalance)

		if err := discordClient.SendInfo("⚠️ 모의 거래 모드로 실행 중입니다. 실제 주문은 전송되지 않습니다."); err != nil {
			log.Printf("알림 전송 실패: %v", err)
		}
	} else {
		opts := []pacifica.ClientOption{
			pacifica.WithBaseURL(cfg.Pacifica.BaseURL),
			pacifica.WithTimeout(cfg.Pacifica.OrderTimeout),
			pacifica.WithSlippage(cfg.Trading.Slippage),
		}
		if cfg.Pacifica.UsePriceStream {
			stream = pacifica.NewPriceStream(cfg.Pacifica.WSURL)
			opts = append(opts, pacifica.WithPriceStream(stream))
		}

		client, err := pacifica.NewClient(cfg.Pacifica.PrivateKey, opts...)
		if err != nil {
			log.Fatalf("Pacifica 클라이언트 생성 실패: %v", err)
		}
		log.Printf("Pacifica 계정: %s", client.Account())
		gateway = client

		if err := discordClient.SendInfo("⚠️ 실거래 모드로 실행 중입니다. 실제 자산이 사용됩니다!"); err != nil {
			log.Printf("알림 전송 실패: %v", err)
		}
	}

	// 가격 스트림 시작
	if stream != nil {
		stream.Start(ctx)
		defer stream.Stop()
	}

	// 시작 알림용 기준 잔고 (실시간 모드는 조회 실패 시 정적 값을 표시)
	balance := cfg.Trading.AccountBalance
	if cfg.Trading.UseLiveBalance {
		if b, err := gateway.GetBalance(ctx); err == nil {
			balance = b
		} else {
			log.Printf("기동 잔고 조회 실패: %v", err)
		}
	}

	// 상태 기계 구성 요소 생성
	sched := scheduler.NewScheduler(scheduler.Config{
		MinHold:     time.Duration(cfg.Schedule.MinHoldMinutes) * time.Minute,
		MaxHold:     time.Duration(cfg.Schedule.MaxHoldMinutes) * time.Minute,
		MinWait:     time.Duration(cfg.Schedule.MinWaitSeconds) * time.Second,
		MaxWait:     time.Duration(cfg.Schedule.MaxWaitSeconds) * time.Second,
		LogInterval: time.Duration(cfg.Schedule.LogIntervalSec) * time.Second,
	}, nil)

	sizer := position.NewSizer(position.SizingConfig{
		MinPercent: cfg.Trading.MinPositionPct,
		MaxPercent: cfg.Trading.MaxPositionPct,
		Ceiling:    cfg.Trading.PositionPctCap,
	}, nil)

	counter := position.NewDailyCounter(cfg.Trading.MaxDailyTrades, cfg.Trading.DailyResetUTC, cfg.Trading.CounterFile)

	machine := position.NewMachine(position.MachineConfig{
		Pairs:          cfg.TradingPairs(),
		AccountBalance: cfg.Trading.AccountBalance,
		UseLiveBalance: cfg.Trading.UseLiveBalance,
		Slippage:       cfg.Trading.Slippage,
		CloseOnStart:   cfg.Trading.CloseOnStart,
		CheckInterval:  time.Duration(cfg.Schedule.CheckIntervalSec) * time.Second,
	}, gateway, sizer, sched, counter, discordClient, nil)

	// 모니터 서버 시작
	monitorServer := monitor.NewServer(cfg.Monitor.Port, machine)
	monitorServer.Start()

	// 시작 알림 전송
	var pairDescs []string
	for _, p := range cfg.TradingPairs() {
		pairDescs = append(pairDescs, fmt.Sprintf("%s(%dx)", p.Symbol, p.Leverage))
	}
	if err := discordClient.NotifyStartup(notification.StartupInfo{
		Mode:       mode,
		Pairs:      pairDescs,
		Balance:    balance,
		DailyLimit: cfg.Trading.MaxDailyTrades,
	}); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 상태 기계 시작
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- machine.Run(ctx) }()

	// 종료 신호 또는 기계 정지 대기
	var runErr error
	reason := "정상 종료"
	select {
	case sig := <-sigChan:
		log.Printf("시스템 종료 신호 수신: %v", sig)
		reason = fmt.Sprintf("%v 신호 수신", sig)
		cancel()
		// 보유 중인 포지션 청산이 끝날 때까지 기다린다
		runErr = <-runErrCh
	case runErr = <-runErrCh:
		cancel()
	}

	// 모니터 서버 종료
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := monitorServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("모니터 서버 종료 실패: %v", err)
	}

	// 치명적 오류로 정지한 경우 비정상 종료 코드로 끝낸다
	if runErr != nil {
		log.Printf("치명적 오류로 종료합니다: %v", runErr)
		lock.Release()
		os.Exit(1)
	}

	// 종료 알림 전송
	if err := discordClient.NotifyShutdown(reason); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}

	log.Println("프로그램을 종료합니다.")
}
