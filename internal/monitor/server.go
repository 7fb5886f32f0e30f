package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/assist-by/pacifica/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusSource는 현재 봇 상태 스냅샷을 제공합니다
type StatusSource interface {
	Status() domain.BotStatus
}

// Server는 상태 조회용 HTTP 서버입니다.
// /healthz, /status, /metrics 엔드포인트를 제공합니다
type Server struct {
	httpServer *http.Server
}

// NewServer는 지정한 포트에서 동작하는 모니터 서버를 생성합니다
func NewServer(port int, source StatusSource) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newHandler(source),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// newHandler는 모니터 엔드포인트 핸들러를 구성합니다
func newHandler(source StatusSource) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(source.Status()); err != nil {
			log.Printf("상태 응답 직렬화 실패: %v", err)
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start는 백그라운드 고루틴에서 서버를 시작합니다
func (s *Server) Start() {
	go func() {
		log.Printf("모니터 서버 시작: %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("모니터 서버 오류: %v", err)
		}
	}()
}

// Shutdown은 서버를 정상 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
