package position

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// counterState는 파일에 저장되는 카운터 스냅샷입니다
type counterState struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DailyCounter는 하루 동안의 거래 횟수를 추적합니다.
// 자정(UTC 또는 로컬)을 넘으면 자동으로 0부터 다시 셉니다.
// 파일 경로가 지정되면 재시작 후에도 같은 날의 카운트를 이어갑니다
type DailyCounter struct {
	mu       sync.Mutex
	limit    int
	resetUTC bool
	file     string
	day      string
	count    int
}

// NewDailyCounter는 새로운 일일 카운터를 생성합니다.
// file이 비어있지 않으면 저장된 같은 날의 카운트를 복원합니다
func NewDailyCounter(limit int, resetUTC bool, file string) *DailyCounter {
	c := &DailyCounter{
		limit:    limit,
		resetUTC: resetUTC,
		file:     file,
	}
	c.day = c.today()
	c.restore()
	return c
}

// Allow는 오늘 추가 거래가 허용되는지 확인합니다
func (c *DailyCounter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.count < c.limit
}

// Increment는 거래 횟수를 1 증가시키고 현재 카운트를 반환합니다
func (c *DailyCounter) Increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	c.count++
	c.persistLocked()
	return c.count
}

// Count는 오늘의 거래 횟수를 반환합니다
func (c *DailyCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.count
}

// Limit은 일일 거래 한도를 반환합니다
func (c *DailyCounter) Limit() int {
	return c.limit
}

// today는 설정된 기준 시간대의 오늘 날짜를 반환합니다
func (c *DailyCounter) today() string {
	now := time.Now()
	if c.resetUTC {
		now = now.UTC()
	}
	return now.Format("2006-01-02")
}

// rolloverLocked는 날짜가 바뀌었으면 카운트를 초기화합니다. 락을 잡은 상태에서 호출해야 합니다
func (c *DailyCounter) rolloverLocked() {
	today := c.today()
	if c.day != today {
		log.Printf("일일 거래 카운터 리셋: %s → %s (어제 %d회)", c.day, today, c.count)
		c.day = today
		c.count = 0
		c.persistLocked()
	}
}

// restore는 저장 파일에서 같은 날의 카운트를 복원합니다
func (c *DailyCounter) restore() {
	if c.file == "" {
		return
	}

	data, err := os.ReadFile(c.file)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("거래 카운터 파일 읽기 실패: %v", err)
		}
		return
	}

	var state counterState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("거래 카운터 파일 파싱 실패: %v", err)
		return
	}

	// 같은 날의 기록만 이어간다
	if state.Day == c.day {
		c.count = state.Count
		log.Printf("일일 거래 카운터 복원: %s %d회", state.Day, state.Count)
	}
}

// persistLocked는 현재 카운트를 임시 파일에 쓴 뒤 원자적으로 교체합니다.
// 저장 실패는 기록만 하고 거래는 계속합니다
func (c *DailyCounter) persistLocked() {
	if c.file == "" {
		return
	}

	data, err := json.MarshalIndent(counterState{Day: c.day, Count: c.count}, "", " ")
	if err != nil {
		log.Printf("거래 카운터 직렬화 실패: %v", err)
		return
	}

	tmp := c.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("거래 카운터 저장 실패: %v", err)
		return
	}
	if err := os.Rename(tmp, c.file); err != nil {
		log.Printf("거래 카운터 교체 실패: %v", err)
	}
}

// String은 "N/limit" 형태의 진행 상황을 반환합니다
func (c *DailyCounter) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return fmt.Sprintf("%d/%d", c.count, c.limit)
}
