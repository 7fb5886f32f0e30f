package domain

import "time"

// AccountSnapshot은 사이징 직전에 조회한 계정 잔고를 표현합니다.
// 잔고는 사이징의 읽기 전용 입력이며 코어 로직이 변경하지 않습니다
type AccountSnapshot struct {
	Balance   float64   // USD 기준 잔고
	FetchedAt time.Time // 조회 시각
}
