package position

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDailyCounterLimit(t *testing.T) {
	c := NewDailyCounter(3, true, "")

	for i := 1; i <= 3; i++ {
		if !c.Allow() {
			t.Fatalf("%d번째 거래는 허용되어야 함", i)
		}
		if got := c.Increment(); got != i {
			t.Fatalf("카운트가 다름: got %d, want %d", got, i)
		}
	}

	if c.Allow() {
		t.Error("한도 도달 후에는 거부되어야 함")
	}
	if got := c.Count(); got != 3 {
		t.Errorf("카운트가 다름: got %d, want 3", got)
	}
}

func TestDailyCounterRollover(t *testing.T) {
	c := NewDailyCounter(3, true, "")
	c.Increment()
	c.Increment()
	c.Increment()
	if c.Allow() {
		t.Fatal("한도 도달 후에는 거부되어야 함")
	}

	// 날짜가 바뀐 것처럼 조작하면 카운트가 리셋된다
	c.mu.Lock()
	c.day = "2000-01-01"
	c.mu.Unlock()

	if got := c.Count(); got != 0 {
		t.Errorf("자정 이후 카운트가 리셋되어야 함: got %d", got)
	}
	if !c.Allow() {
		t.Error("자정 이후 거래가 다시 허용되어야 함")
	}
}

func TestDailyCounterPersistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "trades.json")

	c := NewDailyCounter(50, true, file)
	c.Increment()
	c.Increment()

	// 재시작해도 같은 날의 카운트를 이어간다
	restored := NewDailyCounter(50, true, file)
	if got := restored.Count(); got != 2 {
		t.Errorf("복원된 카운트가 다름: got %d, want 2", got)
	}
}

func TestDailyCounterIgnoresStaleFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "trades.json")

	// 다른 날짜의 기록은 무시한다
	if err := os.WriteFile(file, []byte(`{"day":"2000-01-01","count":40}`), 0o644); err != nil {
		t.Fatalf("테스트 파일 쓰기 실패: %v", err)
	}

	c := NewDailyCounter(50, true, file)
	if got := c.Count(); got != 0 {
		t.Errorf("지난 날짜의 카운트는 무시되어야 함: got %d", got)
	}
}

func TestDailyCounterCorruptFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "trades.json")

	if err := os.WriteFile(file, []byte("not json"), 0o644); err != nil {
		t.Fatalf("테스트 파일 쓰기 실패: %v", err)
	}

	// 깨진 파일은 무시하고 0부터 시작한다
	c := NewDailyCounter(50, true, file)
	if got := c.Count(); got != 0 {
		t.Errorf("깨진 파일은 무시되어야 함: got %d", got)
	}
	if got := c.Increment(); got != 1 {
		t.Errorf("증가가 정상 동작해야 함: got %d", got)
	}
}

func TestDailyCounterString(t *testing.T) {
	c := NewDailyCounter(50, true, "")
	c.Increment()
	if got := c.String(); got != "1/50" {
		t.Errorf("진행 표시가 다름: got %s", got)
	}
}
