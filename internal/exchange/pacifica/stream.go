package pacifica

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 기본 웹소켓 주소
const defaultWSURL = "wss://ws.pacifica.fi/ws"

// 스트림 가격의 신선도 한계. 이보다 오래된 가격은 REST 조회로 대체합니다
const defaultStaleAfter = 10 * time.Second

// streamPrice는 스트림으로 수신한 가격과 수신 시각입니다
type streamPrice struct {
	value float64
	at    time.Time
}

// PriceStream은 Pacifica 웹소켓의 prices 채널을 구독하여
// 심볼별 마크 가격을 유지합니다. 연결이 끊기면 백오프 후 재연결합니다
type PriceStream struct {
	url        string
	staleAfter time.Duration
	dialer     *websocket.Dialer

	mu     sync.RWMutex
	prices map[string]streamPrice

	stopOnce sync.Once
	stop     chan struct{}
}

// NewPriceStream은 새로운 가격 스트림을 생성합니다
func NewPriceStream(url string) *PriceStream {
	if url == "" {
		url = defaultWSURL
	}
	return &PriceStream{
		url:        url,
		staleAfter: defaultStaleAfter,
		dialer:     websocket.DefaultDialer,
		prices:     make(map[string]streamPrice),
		stop:       make(chan struct{}),
	}
}

// Start는 백그라운드에서 스트림 소비를 시작합니다
func (s *PriceStream) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop은 스트림을 종료합니다. 여러 번 호출해도 안전합니다
func (s *PriceStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Price는 심볼의 최신 스트림 가격을 반환합니다.
// 신선도 한계를 넘은 가격은 없는 것으로 취급합니다
func (s *PriceStream) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prices[symbol]
	if !ok || time.Since(p.at) > s.staleAfter {
		return 0, false
	}
	return p.value, true
}

// run은 재연결 루프입니다
func (s *PriceStream) run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		started := time.Now()
		if err := s.consume(ctx); err != nil {
			log.Printf("가격 스트림 연결 종료: %v", err)
		} else {
			return
		}

		// 충분히 오래 연결되어 있었다면 백오프를 초기화한다
		if time.Since(started) > time.Minute {
			backoff = time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// consume은 한 번의 연결 수명 동안 메시지를 소비합니다.
// 정상 종료(취소/정지)는 nil을 반환합니다
func (s *PriceStream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("웹소켓 연결 실패: %w", err)
	}
	defer conn.Close()

	// 취소/정지 시 읽기를 깨우기 위해 연결을 닫는다
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-s.stop:
			conn.Close()
		case <-watchDone:
		}
	}()

	// prices 채널 구독
	subscribe := map[string]any{
		"method": "subscribe",
		"params": map[string]any{"source": "prices"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("구독 요청 실패: %w", err)
	}

	go s.pingLoop(conn, watchDone)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			// 종료 경로에서 발생한 읽기 오류는 정상 종료로 취급한다
			select {
			case <-ctx.Done():
				return nil
			case <-s.stop:
				return nil
			default:
				return fmt.Errorf("메시지 수신 실패: %w", err)
			}
		}
		s.handleMessage(message)
	}
}

// pingLoop는 연결 유지를 위해 주기적으로 핑을 전송합니다
func (s *PriceStream) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage는 수신한 프레임에서 가격을 갱신합니다
func (s *PriceStream) handleMessage(message []byte) {
	var frame struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}
	if frame.Channel != "prices" {
		// 구독 확인 등 다른 프레임은 무시한다
		return
	}

	var updates []struct {
		Symbol string `json:"symbol"`
		Mark   string `json:"mark"`
	}
	if err := json.Unmarshal(frame.Data, &updates); err != nil {
		log.Printf("가격 프레임 파싱 실패: %v", err)
		return
	}

	now := time.Now()
	s.mu.Lock()
	for _, u := range updates {
		price, err := strconv.ParseFloat(u.Mark, 64)
		if err != nil {
			continue
		}
		s.prices[u.Symbol] = streamPrice{value: price, at: now}
	}
	s.mu.Unlock()
}
