package pacifica

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// 서명 만료 윈도우 (밀리초)
const expiryWindowMs = 5_000

// ParseKeypair는 base58로 인코딩된 솔라나 개인키를 파싱합니다.
// 32바이트 시드와 64바이트 전체 키 형식을 모두 지원합니다
func ParseKeypair(privateKey string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(privateKey)
	if err != nil {
		return nil, fmt.Errorf("개인키 디코딩 실패: %w", err)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("개인키 길이가 잘못됨: %d바이트 (32 또는 64바이트 필요)", len(raw))
	}
}

// AccountAddress는 개인키에 대응하는 계정 주소(base58 공개키)를 반환합니다
func AccountAddress(key ed25519.PrivateKey) string {
	pub := key.Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

// buildSignMessage는 서명 대상 메시지를 생성합니다.
// 작업 헤더와 페이로드를 합친 뒤 키를 재귀적으로 정렬한 압축 JSON이 서명 대상입니다
func buildSignMessage(opType string, timestamp int64, payload map[string]any) ([]byte, error) {
	message := map[string]any{
		"type":          opType,
		"timestamp":     timestamp,
		"expiry_window": int64(expiryWindowMs),
		"data":          payload,
	}

	// json.Marshal은 맵 키를 정렬하고 공백 없이 직렬화한다
	raw, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("서명 메시지 직렬화 실패: %w", err)
	}
	return raw, nil
}

// signOperation은 작업에 대한 base58 서명을 생성합니다
func signOperation(key ed25519.PrivateKey, opType string, timestamp int64, payload map[string]any) (string, error) {
	message, err := buildSignMessage(opType, timestamp, payload)
	if err != nil {
		return "", err
	}

	signature := ed25519.Sign(key, message)
	return base58.Encode(signature), nil
}
