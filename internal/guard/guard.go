// Package guard는 같은 계정으로 봇이 두 개 실행되는 것을 막는 단일 인스턴스 잠금을 제공합니다.
// 커널이 프로세스 종료 시 flock을 자동으로 해제하므로 죽은 프로세스가 남긴
// 잠금 파일은 다음 기동에서 그대로 재사용됩니다.
package guard

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning은 다른 인스턴스가 잠금을 보유 중일 때 반환됩니다
var ErrAlreadyRunning = errors.New("다른 인스턴스가 이미 실행 중입니다")

// Guard는 획득된 단일 인스턴스 잠금입니다
type Guard struct {
	lock     *flock.Flock
	mu       sync.Mutex
	released bool
}

// Acquire는 잠금 파일에 비차단 배타 잠금을 시도합니다.
// 이미 잠겨 있으면 보유자 PID를 담은 ErrAlreadyRunning을 반환합니다
func Acquire(path string) (*Guard, error) {
	lock := flock.New(path)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("잠금 파일 열기 실패 (%s): %w", path, err)
	}
	if !locked {
		if holder := readHolderPID(path); holder > 0 {
			return nil, fmt.Errorf("%w (PID %d, 잠금 파일: %s)", ErrAlreadyRunning, holder, path)
		}
		return nil, fmt.Errorf("%w (잠금 파일: %s)", ErrAlreadyRunning, path)
	}

	// 보유자 식별용 PID 기록 (잠금 자체는 flock이 담당)
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("잠금 파일에 PID 기록 실패: %w", err)
	}

	return &Guard{lock: lock}, nil
}

// Release는 잠금을 해제하고 잠금 파일을 제거합니다. 여러 번 호출해도 안전합니다
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return nil
	}
	g.released = true

	path := g.lock.Path()
	if err := g.lock.Unlock(); err != nil {
		return fmt.Errorf("잠금 해제 실패: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("잠금 파일 제거 실패: %w", err)
	}
	return nil
}

// readHolderPID는 잠금 파일에 기록된 보유자 PID를 읽습니다. 실패하면 0을 반환합니다
func readHolderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
